// Package apigateway assembles the Gin router for the PulseEcho API.
package apigateway

import (
	"github.com/gin-gonic/gin"

	"pulseecho/backend/internal/alerting"
	"pulseecho/backend/internal/auth"
	"pulseecho/backend/internal/metrics"
	"pulseecho/backend/internal/patients"
	"pulseecho/backend/internal/screening"
)

// Deps are the handler sets the router wires up.
type Deps struct {
	Screening *screening.Handlers
	Patients  *patients.Handlers
	Alerts    *alerting.Handlers
	Auth      *auth.Auth
	Metrics   *metrics.Metrics
}

// SetupRouter builds the full route table: the public screening API,
// patient management, metrics, and the authenticated admin group for
// alert maintenance.
func SetupRouter(deps Deps) *gin.Engine {
	router := gin.Default()

	router.GET("/health", deps.Screening.HealthHandler)
	router.POST("/analyze", deps.Screening.AnalyzeHandler)
	router.POST("/mock-analyze", deps.Screening.MockAnalyzeHandler)
	router.GET("/history/:patient_id", deps.Screening.HistoryHandler)
	router.GET("/stats", deps.Screening.StatsHandler)
	router.GET("/audio/:object", deps.Screening.AudioHandler)

	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	patientRoutes := router.Group("/patients")
	{
		patientRoutes.POST("/register", deps.Patients.RegisterHandler)
		patientRoutes.POST("/check", deps.Patients.CheckHandler)
		patientRoutes.GET("/:patient_id", deps.Patients.GetHandler)
	}

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/login", deps.Auth.LoginHandler)
		authRoutes.POST("/logout", deps.Auth.LogoutHandler)
	}

	adminRoutes := router.Group("/admin")
	adminRoutes.Use(deps.Auth.Middleware())
	{
		adminRoutes.GET("/alerts", deps.Alerts.ListHandler)
		adminRoutes.POST("/alerts/:id/retry", deps.Alerts.RetryHandler)
	}

	return router
}
