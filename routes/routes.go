package routes

import (
	"net/http"
	"os"

	"github.com/nunocosta1921/quiz-paywall/controllers"
	"github.com/nunocosta1921/quiz-paywall/metrics"
	"github.com/nunocosta1921/quiz-paywall/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterPaywallRoutes sets up the checkout and verification endpoints.
// limiter guards session creation, which costs a provider call.
func RegisterPaywallRoutes(r *gin.Engine, pc *controllers.PaywallController, limiter gin.HandlerFunc) {
	api := r.Group("/")
	api.Use(middleware.NoStore())

	api.POST("/create-checkout-session", limiter, pc.CreateCheckoutSession)
	api.GET("/verify", pc.Verify)
}

// RegisterOpsRoutes exposes liveness and Prometheus metrics.
func RegisterOpsRoutes(r *gin.Engine, serviceName string) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})
	r.GET("/metrics", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		metrics.WritePrometheus(c.Writer)
	})
}

// RegisterStaticFiles serves the quiz front end from dir for any GET or HEAD
// that matches no API route. It is a no-op when dir does not exist.
func RegisterStaticFiles(r *gin.Engine, dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}

	files := http.FileServer(http.Dir(dir))
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	})
	return true
}
