package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/lavapop/campaign-service/environments"
	"github.com/lavapop/campaign-service/handlers"
	"github.com/lavapop/campaign-service/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	eligibilityHandler *handlers.EligibilityHandler,
	campaignHandler *handlers.CampaignHandler,
	contactHandler *handlers.ContactHandler,
	dispatchHandler *handlers.DispatchHandler,
	schedulerHandler *handlers.SchedulerHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 base group
	v1 := e.Group("/api/v1")

	// Campaign-authoring surface with its own API key
	authoring := middlewares.APIKeyAuth(cfg.Auth.CampaignsAPIKey)

	eligibility := v1.Group("/eligibility", authoring)
	eligibility.POST("/batch", eligibilityHandler.CheckEligibilityBatch)
	eligibility.GET("/:customerId", eligibilityHandler.CheckEligibility)

	campaigns := v1.Group("/campaigns", authoring)
	campaigns.POST("", campaignHandler.ScheduleCampaign)
	campaigns.GET("", campaignHandler.GetCampaigns)
	campaigns.GET("/:id", campaignHandler.GetCampaign)
	campaigns.POST("/:id/cancel", campaignHandler.CancelCampaign)
	campaigns.GET("/:id/sends", campaignHandler.GetSendHistory)

	contacts := v1.Group("/contacts", authoring)
	contacts.POST("", contactHandler.RecordContact)
	contacts.POST("/returns", contactHandler.IngestReturnSignal)
	contacts.GET("/stats", contactHandler.GetStats)
	contacts.POST("/:id/clear", contactHandler.ClearContact)

	// Dispatch and scheduler surface with its own API key
	operating := middlewares.APIKeyAuth(cfg.Auth.DispatchAPIKey)

	dispatch := v1.Group("/dispatch", operating)
	dispatch.POST("/run", dispatchHandler.RunDispatch)
	dispatch.POST("/reap", dispatchHandler.ReapStale)
	dispatch.GET("/cached", dispatchHandler.GetCachedDispatches)

	schedulerGroup := v1.Group("/scheduler", operating)
	schedulerGroup.POST("/start", schedulerHandler.StartScheduler)
	schedulerGroup.POST("/stop", schedulerHandler.StopScheduler)
	schedulerGroup.GET("/status", schedulerHandler.GetSchedulerStatus)
}
