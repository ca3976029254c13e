// File: backend/services/impersonation-service/internal/handler/http/router.go
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/config"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/interfaces"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/repository"
	domainService "github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/service"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/handler/http/middleware"
	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/service"
)

// SetupRouter wires middleware and routes.
func SetupRouter(
	impersonationHandler *ImpersonationHandler,
	healthHandler *HealthHandler,
	tokens domainService.TokenService,
	sessions repository.SessionRepository,
	auditSink service.AuditSink,
	stepUp interfaces.StepUpVerifier,
	cfg *config.Config,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CorsMiddleware())
	router.Use(middleware.MetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", healthHandler.Health)
	router.GET("/readiness", healthHandler.Readiness)

	api := router.Group("/api/v1/impersonation")
	api.Use(middleware.AuthMiddleware(tokens, sessions, logger))
	api.Use(middleware.AuditTrail(auditSink, cfg.Audit.SkipEndpoints, logger))
	{
		api.GET("/active", impersonationHandler.GetActiveImpersonation)
		api.POST("/end", impersonationHandler.EndImpersonation)

		admin := api.Group("/")
		admin.Use(middleware.PreventCascadeImpersonation(tokens))
		admin.Use(middleware.RequireSuperAdmin(logger))
		{
			start := admin.Group("/")
			start.Use(middleware.RequireStepUp(stepUp, cfg.StepUp.Enabled, logger))
			{
				start.POST("/start", impersonationHandler.StartImpersonation)
			}

			admin.GET("/history", impersonationHandler.GetImpersonationHistory)
			admin.GET("/audit/:sessionId", impersonationHandler.GetSessionAuditLogs)
			admin.POST("/force-end/:sessionId", impersonationHandler.ForceEndImpersonation)
		}
	}

	return router
}
