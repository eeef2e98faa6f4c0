package app

import (
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/yungbote/draftcut-backend/internal/data/db"
	"github.com/yungbote/draftcut-backend/internal/modules/media/timeline"
	"github.com/yungbote/draftcut-backend/internal/observability"
	"github.com/yungbote/draftcut-backend/internal/platform/envutil"
	"github.com/yungbote/draftcut-backend/internal/platform/gcp"
	"github.com/yungbote/draftcut-backend/internal/platform/imagegen"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	LogMode     string
	Environment string

	DB      dbpkg.Config
	Storage gcp.ObjectStorageConfig
	Otel    observability.OtelConfig

	ImageProvider          imagegen.Config
	ImageModel             string
	ImageSize              string
	ImageConcurrency       int
	ImageMaxAssetBytes     int64
	ExportWorkDir          string
	ExportOutputDir        string
	ExportRetention        time.Duration
	ExportSweepInterval    time.Duration
	ExportDriftPolicy      timeline.DriftPolicy
	RedisAddr              string
	ExportLockTTL          time.Duration
	CORSAllowOrigins       []string
	MetricsEndpointEnabled bool
}

func LoadConfig(log *logger.Logger) (Config, error) {
	storage, err := gcp.ResolveObjectStorageConfigFromEnv()
	if err != nil {
		return Config{}, fmt.Errorf("object storage config: %w", err)
	}
	policy, err := timeline.ParseDriftPolicy(envutil.String("EXPORT_DRIFT_POLICY", string(timeline.DriftWarn)))
	if err != nil {
		return Config{}, err
	}
	otelCfg := observability.OtelConfigFromEnv()
	otelCfg.Environment = envutil.String("APP_ENV", "development")
	cfg := Config{
		Port:                   envutil.String("PORT", "8080"),
		LogMode:                envutil.String("LOG_MODE", "development"),
		Environment:            otelCfg.Environment,
		DB:                     dbpkg.ConfigFromEnv(),
		Storage:                storage,
		Otel:                   otelCfg,
		ImageProvider:          imagegen.ConfigFromEnv(),
		ImageModel:             envutil.String("IMAGE_MODEL", imagegen.DefaultModel),
		ImageSize:              envutil.String("IMAGE_SIZE", imagegen.DefaultSize),
		ImageConcurrency:       envutil.Int("IMAGE_GENERATION_CONCURRENCY", 0),
		ImageMaxAssetBytes:     int64(envutil.Int("IMAGE_MAX_ASSET_BYTES", 0)),
		ExportWorkDir:          envutil.String("EXPORT_WORK_DIR", ""),
		ExportOutputDir:        envutil.String("EXPORT_OUTPUT_DIR", ""),
		ExportRetention:        envutil.Duration("EXPORT_RETENTION", 24*time.Hour),
		ExportSweepInterval:    envutil.Duration("EXPORT_SWEEP_INTERVAL", 15*time.Minute),
		ExportDriftPolicy:      policy,
		RedisAddr:              strings.TrimSpace(envutil.String("REDIS_ADDR", "")),
		ExportLockTTL:          envutil.Duration("EXPORT_LOCK_TTL", 10*time.Minute),
		CORSAllowOrigins:       envutil.List("CORS_ALLOW_ORIGINS", nil),
		MetricsEndpointEnabled: envutil.Bool("METRICS_ENABLED", false),
	}
	log.Info("Configuration loaded",
		"port", cfg.Port,
		"db_driver", cfg.DB.Driver,
		"storage_mode", cfg.Storage.Mode,
		"image_model", cfg.ImageModel,
		"drift_policy", cfg.ExportDriftPolicy,
		"distributed_lock", cfg.RedisAddr != "",
		"tracing", cfg.Otel.Enabled,
	)
	return cfg, nil
}
