package server

import (
	"fmt"
	"net/http"
	"time"

	"inventory-api/internal/config"
	"inventory-api/internal/database"
	custommiddleware "inventory-api/internal/middleware"
	"inventory-api/internal/service"
	"inventory-api/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config    *config.Config
	logger    *zap.Logger
	dbService database.Service
}

// NewServer assembles the router and wires handlers to services. redisClient
// may be nil, in which case rate limiting is disabled.
func NewServer(cfg *config.Config, logger *zap.Logger, dbService database.Service, redisClient *redis.Client) *Server {
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env == "development"))

	// Health check endpoint; always 200, the body carries the DB status
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "OK",
			"message":   "Inventory Management API is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"database":  dbService.Health(),
		})
	})

	db := dbService.DB()

	// Initialize services
	productService := service.NewProductService(db)
	tagService := service.NewTagService(db)

	// Initialize handlers
	productHandler := transport.NewProductHandler(productService, logger)
	tagHandler := transport.NewTagHandler(tagService, logger)

	// Register API routes, rate limited when Redis is configured
	router.Group(func(r chi.Router) {
		if redisClient != nil && cfg.RateLimit.Enabled {
			r.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.RateLimit.Requests,
				Window:            cfg.RateLimit.Window,
				KeyPrefix:         "rate_limit",
			}, logger))
		}

		productHandler.RegisterRoutes(r)
		tagHandler.RegisterRoutes(r)
	})

	// Unknown routes answer JSON like everything else
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "Route not found",
			fmt.Sprintf("The requested route %s does not exist", r.URL.Path))
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:    cfg,
		logger:    logger,
		dbService: dbService,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.dbService != nil {
		if err := s.dbService.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
