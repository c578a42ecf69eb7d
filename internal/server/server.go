package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deepfake-detector/internal/config"
	"deepfake-detector/internal/handlers"
	"deepfake-detector/internal/middleware"
	"deepfake-detector/internal/monitoring"
	"deepfake-detector/internal/services"
	"deepfake-detector/internal/web"
)

// analysisHeadroom is added to the predict timeout to get the response write timeout
const analysisHeadroom = 15 * time.Second

type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	log        *zap.Logger
	service    *services.DetectorService
	metrics    *monitoring.Metrics
	rateLimit  *middleware.RateLimitMiddleware
}

// New wires middlewares, handlers and routes around predictor
func New(cfg *config.Config, predictor services.Predictor, log *zap.Logger) (*Server, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	metrics := monitoring.NewMetrics()
	service := services.NewDetectorService(cfg, predictor, metrics, log)

	healthHandler := handlers.NewHealthHandler(service)
	pageHandler := handlers.NewPageHandler(cfg.MaxFileSizeMB)
	uploadHandler := handlers.NewUploadHandler(service, cfg.MaxFileSizeBytes())
	navigationHandler := handlers.NewNavigationHandler()
	statsHandler := handlers.NewStatsHandler(service)

	authMiddleware := middleware.NewAuthMiddleware(cfg)
	loggerMiddleware := middleware.NewLoggerMiddleware(log)
	recoveryMiddleware := middleware.NewRecoveryMiddleware(log)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.AllowedOrigins)
	sessionMiddleware := middleware.NewSessionMiddleware(cfg.SessionSecret, cfg.SessionTTL, log)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(
		log,
		cfg.RateLimit,
		cfg.RateLimitWindow,
		cfg.RateLimitBlock,
	)

	router := gin.New()
	router.SetHTMLTemplate(tmpl)

	router.Use(loggerMiddleware.LogRequests())
	router.Use(recoveryMiddleware.RecoveryWithZap())
	router.Use(corsMiddleware.SetupCORS())

	// Health, readiness and metrics stay outside the rate limit
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.StaticFS("/static", web.Static())

	// The page polls navigation while scrolling; it is a pure computation and must not
	// spend the budget that guards uploads and analyses
	router.GET("/api/navigation", navigationHandler.Active)

	page := router.Group("/")
	page.Use(sessionMiddleware.Session())
	{
		page.GET("/", pageHandler.Index)
	}

	api := router.Group("/api")
	api.Use(rateLimitMiddleware.RateLimit())
	api.Use(sessionMiddleware.Session())
	{
		api.GET("/state", uploadHandler.State)
		api.POST("/upload", uploadHandler.Upload)
		api.DELETE("/upload", uploadHandler.Clear)
		api.POST("/analyze", uploadHandler.Analyze)
	}

	protected := router.Group("/")
	protected.Use(authMiddleware.AuthRequired())
	{
		protected.GET("/stats", statsHandler.GetStats)
	}

	// an analysis holds the response open until the remote endpoint answers
	var writeTimeout time.Duration
	if cfg.PredictTimeout > 0 {
		writeTimeout = cfg.PredictTimeout + analysisHeadroom
	}

	server := &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      writeTimeout,
			MaxHeaderBytes:    1 << 20, // 1 MB
		},
		cfg:       cfg,
		log:       log,
		service:   service,
		metrics:   metrics,
		rateLimit: rateLimitMiddleware,
	}

	log.Info("Server created",
		zap.String("port", cfg.Port),
		zap.String("predict_url", cfg.PredictURL),
		zap.Int64("max_file_size_mb", cfg.MaxFileSizeMB))

	return server, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Service returns the detector service behind the routes
func (s *Server) Service() *services.DetectorService {
	return s.service
}

// Run blocks serving HTTP until Shutdown is called
func (s *Server) Run() error {
	s.log.Info("Starting server", zap.String("address", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down server...")
	defer s.rateLimit.Close()
	return s.httpServer.Shutdown(ctx)
}

// Close releases background resources without serving
func (s *Server) Close() {
	s.rateLimit.Close()
}
