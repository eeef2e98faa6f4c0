package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/draftcut-backend/internal/http/handlers"
	httpMW "github.com/yungbote/draftcut-backend/internal/http/middleware"
	"github.com/yungbote/draftcut-backend/internal/observability"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log                *logger.Logger
	Metrics            *observability.Metrics
	CORSOrigins        []string
	IdentityMiddleware *httpMW.IdentityMiddleware

	ExportHandler   *httpH.ExportHandler
	ImageHandler    *httpH.ImageHandler
	SentenceHandler *httpH.SentenceHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(observability.TracerName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins...))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.IdentityMiddleware != nil {
		api.Use(cfg.IdentityMiddleware.RequireUser())
	}
	{
		// Export
		if cfg.ExportHandler != nil {
			api.POST("/export/jianying/:chapter_id", cfg.ExportHandler.ExportJianYing)
			api.GET("/export/jianying/download/:filename", cfg.ExportHandler.Download)
		}

		// Images
		if cfg.ImageHandler != nil {
			api.POST("/images/generate", cfg.ImageHandler.Generate)
		}

		// Sentences
		if cfg.SentenceHandler != nil {
			api.PUT("/sentences/:id/assets", cfg.SentenceHandler.UpdateAssets)
			api.POST("/sentences/:id/video-cache", cfg.SentenceHandler.SaveVideoCache)
			api.GET("/sentences/:id/cache", cfg.SentenceHandler.GetCache)
		}
	}

	return r
}
