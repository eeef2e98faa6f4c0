package app

import (
	"errors"
	"fmt"

	"github.com/yungbote/draftcut-backend/internal/platform/gcp"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

var newBucketServiceWithConfig = gcp.NewBucketServiceWithConfig

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidConfig StorageProviderBootstrapErrorCode = "invalid_config"
	StorageProviderBootstrapErrorConnectFailed StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code       StorageProviderBootstrapErrorCode
	ConfigCode gcp.ObjectStorageConfigErrorCode
	Mode       string
	Cause      error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf("object storage bootstrap failed (code=%s mode=%q): %v", e.Code, e.Mode, e.Cause)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func resolveBucketService(log *logger.Logger, cfg gcp.ObjectStorageConfig) (gcp.BucketService, error) {
	log.Info("Selecting object storage provider", "mode", cfg.Mode, "emulator_host", cfg.EmulatorHost)

	bucket, err := newBucketServiceWithConfig(log, cfg)
	if err != nil {
		classified := classifyStorageProviderBootstrapError(cfg, err)
		log.Error("Object storage provider bootstrap failed", "mode", cfg.Mode, "error", classified)
		return nil, classified
	}
	return bucket, nil
}

func classifyStorageProviderBootstrapError(cfg gcp.ObjectStorageConfig, err error) error {
	out := &StorageProviderBootstrapError{
		Code:  StorageProviderBootstrapErrorConnectFailed,
		Mode:  string(cfg.Mode),
		Cause: err,
	}
	var cfgErr *gcp.ObjectStorageConfigError
	if errors.As(err, &cfgErr) {
		out.Code = StorageProviderBootstrapErrorInvalidConfig
		out.ConfigCode = cfgErr.Code
	}
	return out
}
