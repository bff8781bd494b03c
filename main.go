package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nunocosta1921/quiz-paywall/config"
	"github.com/nunocosta1921/quiz-paywall/controllers"
	"github.com/nunocosta1921/quiz-paywall/logger"
	"github.com/nunocosta1921/quiz-paywall/metrics"
	"github.com/nunocosta1921/quiz-paywall/middleware"
	aws_pkg "github.com/nunocosta1921/quiz-paywall/pkg/aws"
	"github.com/nunocosta1921/quiz-paywall/routes"
	"github.com/nunocosta1921/quiz-paywall/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadConfig()
	ctx := context.Background()

	// AWS is optional; every AWS-backed feature is opt-in.
	var awsCfg sdkaws.Config
	var awsCfgLoaded bool
	if needsAWS(cfg) {
		loaded, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			log.Printf("[QuizPaywall] AWS config unavailable, AWS features disabled: %v", err)
		} else {
			awsCfg, awsCfgLoaded = loaded, true
		}
	}

	var remote io.Writer
	if awsCfgLoaded && cfg.CloudWatchEnabled {
		cwLogs, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.ServiceName, true)
		if err != nil {
			log.Printf("[QuizPaywall] CloudWatch Logs disabled: %v", err)
		} else {
			remote = cwLogs
		}
	}

	zapLogger, err := logger.New(cfg.Env, remote)
	if err != nil {
		log.Fatal("[QuizPaywall] ❌ Failed to initialize logger:", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	if awsCfgLoaded && cfg.UseSecrets {
		if err := cfg.ApplySecrets(ctx, aws_pkg.NewSecretsClient(awsCfg)); err != nil {
			zapLogger.Warn("Falling back to environment for Stripe settings", zap.Error(err))
		}
	}
	for _, w := range cfg.Warnings() {
		zapLogger.Warn(w)
	}

	var snsClient aws_pkg.SNSPublisher
	if awsCfgLoaded && cfg.EventsTopicARN != "" {
		snsClient = aws_pkg.NewSNSClient(awsCfg)
	}
	var cloudMetrics *aws_pkg.MetricsClient
	if awsCfgLoaded && cfg.CloudWatchEnabled {
		cloudMetrics = aws_pkg.NewMetricsClient(awsCfg, "", true)
	}
	var counts services.CountRecorder
	if cloudMetrics != nil {
		counts = cloudMetrics
	}

	if err := metrics.StartPush(cfg.MetricsPushURL, 15*time.Second, `service="`+cfg.ServiceName+`"`); err != nil {
		zapLogger.Warn("Metrics push disabled", zap.Error(err))
	}

	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, services.StripeOptions{
		APIURL:  cfg.StripeAPIURL,
		Timeout: cfg.StripeTimeout,
	}, zapLogger)
	paywallSvc := services.NewPaywallService(stripeSvc, cfg, snsClient, counts, zapLogger)
	pc := controllers.NewPaywallController(paywallSvc, zapLogger)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, 5*time.Minute)
	stopLimiter := make(chan struct{})
	go limiter.Run(stopLimiter)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(zapLogger))
	r.Use(middleware.MetricsMiddleware(cloudMetrics, cfg.ServiceName))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	routes.RegisterOpsRoutes(r, cfg.ServiceName)
	routes.RegisterPaywallRoutes(r, pc, limiter.Middleware())
	if !routes.RegisterStaticFiles(r, cfg.PublicDir) {
		zapLogger.Warn("Static directory not found, front end not served", zap.String("dir", cfg.PublicDir))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	zapLogger.Info("Quiz paywall started",
		zap.String("port", cfg.Port),
		zap.String("base_url", cfg.BaseURL),
	)
	<-quit
	zapLogger.Info("Shutting down quiz paywall...")
	close(stopLimiter)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exited cleanly")
}

func needsAWS(cfg *config.Config) bool {
	return cfg.UseSecrets || cfg.CloudWatchEnabled || cfg.EventsTopicARN != ""
}
