package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/draftcut-backend/internal/http"
	httpH "github.com/yungbote/draftcut-backend/internal/http/handlers"
	httpMW "github.com/yungbote/draftcut-backend/internal/http/middleware"
	"github.com/yungbote/draftcut-backend/internal/observability"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

type Middleware struct {
	Identity *httpMW.IdentityMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Export   *httpH.ExportHandler
	Image    *httpH.ImageHandler
	Sentence *httpH.SentenceHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Export:   httpH.NewExportHandler(log, services.Export),
		Image:    httpH.NewImageHandler(log, services.Images),
		Sentence: httpH.NewSentenceHandler(services.Sentences, clients.Bucket),
	}
}

func wireMiddleware(log *logger.Logger) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Identity: httpMW.NewIdentityMiddleware(log),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *http.Server {
	rc := http.RouterConfig{
		Log:                log,
		CORSOrigins:        cfg.CORSAllowOrigins,
		IdentityMiddleware: middleware.Identity,
		ExportHandler:      handlers.Export,
		ImageHandler:       handlers.Image,
		SentenceHandler:    handlers.Sentence,
		HealthHandler:      handlers.Health,
	}
	if cfg.MetricsEndpointEnabled {
		rc.Metrics = metrics
	}
	return http.NewServer(rc)
}
