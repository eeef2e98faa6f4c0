package app

import (
	"gorm.io/gorm"

	dbpkg "github.com/yungbote/draftcut-backend/internal/data/db"
	"github.com/yungbote/draftcut-backend/internal/data/repos"
	"github.com/yungbote/draftcut-backend/internal/modules/media/export"
	"github.com/yungbote/draftcut-backend/internal/observability"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
	"github.com/yungbote/draftcut-backend/internal/services"
)

type Services struct {
	Images    services.ImageGenerationService
	Export    services.ExportService
	Sentences services.SentenceService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r repos.Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	packager := export.NewPackager(export.Deps{
		Log:     log,
		Bucket:  clients.Bucket,
		Metrics: metrics,
	}, export.Config{
		WorkRoot:    cfg.ExportWorkDir,
		OutputDir:   cfg.ExportOutputDir,
		DriftPolicy: cfg.ExportDriftPolicy,
	})

	return Services{
		Images: services.NewImageGenerationService(
			log,
			services.ImageGenerationConfig{
				Model:          cfg.ImageModel,
				Size:           cfg.ImageSize,
				MaxConcurrency: cfg.ImageConcurrency,
				MaxAssetBytes:  cfg.ImageMaxAssetBytes,
			},
			r,
			clients.Bucket,
			services.NewProviderFactory(log, cfg.ImageProvider),
			metrics,
		),
		Export:    services.NewExportService(log, r, packager, clients.ExportLock),
		Sentences: services.NewSentenceService(log, dbpkg.NewGormTxRunner(db), r),
	}
}
