package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aish-attendance/attendance-api/config"
	"github.com/aish-attendance/attendance-api/internal/handlers"
	"github.com/aish-attendance/attendance-api/internal/middleware"
	"github.com/aish-attendance/attendance-api/internal/schema"
	"github.com/aish-attendance/attendance-api/internal/services"
	"github.com/aish-attendance/attendance-api/internal/session"
	"github.com/aish-attendance/attendance-api/pkg/httpclient"
	"github.com/aish-attendance/attendance-api/pkg/jwt"
	"github.com/aish-attendance/attendance-api/pkg/logger"
	"github.com/aish-attendance/attendance-api/pkg/mailgun"
	"github.com/aish-attendance/attendance-api/pkg/metrics"
	"github.com/aish-attendance/attendance-api/pkg/profiling"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"github.com/aish-attendance/attendance-api/pkg/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const version = "1.0.0"

// registerAPIRoutes registers the versioned API routes. Everything under the
// session middleware talks to Salesforce with the caller's own credential.
func registerAPIRoutes(
	router *gin.Engine,
	cfg *config.Config,
	generalRateLimiter, authRateLimiter, emailRateLimiter *middleware.RateLimiter,
	sessionMW gin.HandlerFunc,
	authHandler *handlers.AuthHandler,
	meetingHandler *handlers.MeetingHandler,
	rosterHandler *handlers.RosterHandler,
	queryHandler *handlers.QueryHandler,
	emailHandler *handlers.EmailHandler,
) {
	v1 := router.Group("/api/v1")
	v1.Use(generalRateLimiter.Middleware())
	v1.Use(middleware.TokenAuthMiddleware(cfg.Auth.APIBearerToken))

	// Authentication routes. Login and callback must work without a session.
	auth := v1.Group("/auth")
	auth.GET("/login", authRateLimiter.Middleware(), authHandler.Login)
	auth.GET("/callback", authRateLimiter.Middleware(), authHandler.Callback)
	auth.POST("/login-password", authRateLimiter.Middleware(), authHandler.LoginPassword)
	auth.POST("/logout", sessionMW, authHandler.Logout)
	auth.GET("/whoami", sessionMW, authHandler.WhoAmI)

	// Data routes (session required)
	data := v1.Group("")
	data.Use(sessionMW)
	data.GET("/query", queryHandler.Query)
	data.GET("/teachers/by-period", rosterHandler.GetByPeriod)
	data.GET("/attendance/by-meeting", meetingHandler.GetByMeeting)
	data.POST("/attendance/updates", meetingHandler.ApplyUpdates)
	data.POST("/classes/request-add", emailRateLimiter.Middleware(), emailHandler.RequestClassAdd)
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Attendance API",
		zap.String("version", version),
		zap.String("environment", cfg.Server.AppEnv),
	)

	// Initialize distributed tracing
	tracerShutdown, err := tracing.InitTracer(
		cfg.Observability.ServiceName,
		cfg.Observability.ServiceNamespace,
		cfg.Observability.ServiceVersion,
		cfg.Observability.ServiceInstanceID,
		cfg.Server.AppEnv,
		cfg.Observability.ExporterEndpoint,
	)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	// Initialize continuous profiling
	profilerStop, err := profiling.InitProfiler(
		profiling.Config{
			Enabled:               cfg.Profiling.Enabled,
			Endpoint:              cfg.Profiling.Endpoint,
			AppName:               cfg.Profiling.AppName,
			SampleTypes:           cfg.Profiling.SampleTypes,
			UploadIntervalSeconds: cfg.Profiling.UploadIntervalSeconds,
		},
		cfg.Observability.ServiceName,
		cfg.Observability.ServiceNamespace,
		cfg.Observability.ServiceVersion,
		cfg.Observability.ServiceInstanceID,
		cfg.Server.AppEnv,
	)
	if err != nil {
		logger.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer profilerStop()

	// Start infrastructure metrics collection
	metrics.RecordInfrastructureMetrics()

	// Initialize HTTP client for external API calls
	httpClient := httpclient.NewStandardClient()

	// Salesforce OAuth flows and per-session client factory
	oauth := salesforce.NewOAuth(salesforce.OAuthConfig{
		ClientID:      cfg.Salesforce.ClientID,
		ClientSecret:  cfg.Salesforce.ClientSecret,
		CallbackURL:   cfg.Salesforce.CallbackURL,
		LoginURL:      cfg.Salesforce.LoginURL,
		Username:      cfg.Salesforce.Username,
		Password:      cfg.Salesforce.Password,
		SecurityToken: cfg.Salesforce.SecurityToken,
	}, httpClient)
	factory := salesforce.NewFactory(httpClient, cfg.Salesforce.APIVersion)

	// Session infrastructure
	sessionStore := session.NewStore(time.Duration(cfg.Session.TTLHours) * time.Hour)
	tokenManager := jwt.NewTokenManager(cfg.Session.JWTSecret, cfg.Session.JWTIssuer, cfg.Session.TTLHours)

	// Schema discovery with optional describe cache
	describeCache := schema.NewDescribeCache(time.Duration(cfg.Schema.CacheTTLSeconds) * time.Second)
	discoverer := schema.NewDiscoverer(describeCache)
	if describeCache.Enabled() {
		logger.Info("Schema describe cache enabled",
			zap.Int("ttl_seconds", cfg.Schema.CacheTTLSeconds))
	}

	// Mailgun sender
	mailSender := mailgun.NewSender(mailgun.Config{
		APIKey:  cfg.Mailgun.APIKey,
		Domain:  cfg.Mailgun.Domain,
		BaseURL: cfg.Mailgun.BaseURL,
		From:    cfg.Mailgun.From,
	}, httpClient)
	if !mailSender.Configured() {
		logger.Warn("Mailgun not configured: class add requests will be rejected")
	}

	// Initialize services
	authService := services.NewAuthService(oauth, sessionStore)
	meetingService := services.NewMeetingService(discoverer)
	studentService := services.NewStudentService(cfg.Schema.ContactChunkSize)
	attendanceService := services.NewAttendanceService(discoverer, meetingService, studentService)
	rosterService := services.NewRosterService()
	emailService := services.NewEmailService(mailSender)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, factory, tokenManager,
		cfg.Session.CookieDomain, cfg.Session.CookieSecure, cfg.Server.FrontendURL)
	meetingHandler := handlers.NewMeetingHandler(attendanceService, factory)
	rosterHandler := handlers.NewRosterHandler(rosterService, factory)
	queryHandler := handlers.NewQueryHandler(factory)
	emailHandler := handlers.NewEmailHandler(emailService)
	healthHandler := handlers.NewHealthHandler(version)

	// Set up Gin router
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName)) // OpenTelemetry tracing
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.BodySizeLimitMiddleware(cfg.Server.MaxBodyBytes))

	// CORS configuration - only the configured front-end origins are allowed
	allowedOrigins := cfg.Server.AllowedOrigins
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "traceparent", "tracestate"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true, // Required for session cookies
		MaxAge:           12 * time.Hour,
	}))

	// Rate limiters per endpoint class
	generalRateLimiter := middleware.NewRateLimiter(50, 100) // 50 req/sec, burst of 100
	authRateLimiter := middleware.NewRateLimiter(1, 5)       // login endpoints, abuse prevention
	emailRateLimiter := middleware.NewRateLimiter(0.1, 3)    // 1 email per 10 sec, burst of 3

	// Utility endpoints (not versioned - operational endpoints)
	api := router.Group("/api")
	api.GET("/healthcheck", generalRateLimiter.Middleware(), healthHandler.Healthcheck)
	api.GET("/metrics", generalRateLimiter.Middleware(), gin.WrapH(promhttp.Handler()))

	sessionMW := middleware.SessionMiddleware(tokenManager, sessionStore, authService,
		cfg.Session.CookieDomain, cfg.Session.CookieSecure)

	registerAPIRoutes(router, cfg, generalRateLimiter, authRateLimiter, emailRateLimiter,
		sessionMW, authHandler, meetingHandler, rosterHandler, queryHandler, emailHandler)

	// Create HTTP server
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
