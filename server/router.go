package server

import (
	httpHandler "kayzen-ingest/interfaces/http"
	"kayzen-ingest/interfaces/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InitiateRouter wires the trigger, history and operational endpoints.
// secretKey enables bearer token checks on the trigger and history routes.
func InitiateRouter(ingestHandler httpHandler.IIngestHandler, secretKey string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", ingestHandler.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Cloud Scheduler and Pub/Sub push subscriptions post to the root path.
	trigger := router.Group("/")
	trigger.Use(middleware.Auth(secretKey))
	trigger.POST("/", ingestHandler.Ingest)
	trigger.POST("/ingest", ingestHandler.Ingest)
	trigger.GET("/runs", ingestHandler.Runs)

	return router
}
