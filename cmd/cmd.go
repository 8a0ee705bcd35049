package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"groupsnap-backend/internal/cache"
	"groupsnap-backend/internal/config"
	"groupsnap-backend/internal/database"
	"groupsnap-backend/internal/handlers"
	"groupsnap-backend/internal/metrics"
	"groupsnap-backend/internal/middleware"
	"groupsnap-backend/internal/repository"
	"groupsnap-backend/internal/services"
	"groupsnap-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx := context.Background()

	// Apply schema migrations before serving
	if err := database.RunMigrations(cfg.Database.MigrationURL()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Connect to database
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	redisCache, err := cache.NewRedisCache(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to redis")
	}
	defer redisCache.Close()

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to create object store")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	photoRepo := repository.NewPhotoRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, redisCache, cfg.JWT.Secret, cfg.JWT.TTL)
	userService := services.NewUserService(userRepo)
	membershipService := services.NewMembershipService(membershipRepo)
	groupService := services.NewGroupService(groupRepo, membershipService, services.NewCodeGenerator(nil), recorder)
	photoService := services.NewPhotoService(photoRepo, objects, redisCache, cfg.Storage.PresignTTL)
	uploads := services.NewUploadOrchestrator(objects, photoService, cfg.Storage.Folder, recorder)
	wsHub := services.NewWSHub(membershipService)
	authService.OnAuthStateChange(wsHub.HandleAuthEvent)
	authService.OnAuthStateChange(wsHub.ProfilePusher(userService))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	groupHandler := handlers.NewGroupHandler(groupService, wsHub)
	photoHandler := handlers.NewPhotoHandler(photoService, membershipService, uploads, wsHub, cfg.Server.MaxUploadBytes)
	healthHandler := handlers.NewHealthHandler(map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error { return database.Check(ctx, db) },
		"redis":    redisCache.Ping,
		"storage":  objects.CheckBucket,
	})
	wsHandler := handlers.NewWebSocketHandler(wsHub, authService, userService, originChecker(cfg.Server.AllowedOrigins))

	joinLimiter := middleware.NewRateLimiter("join", cfg.RateLimit.JoinPerMinute, cfg.RateLimit.JoinBurst, middleware.ByUser)
	defer joinLimiter.Stop()
	signInLimiter := middleware.NewRateLimiter("signin", cfg.RateLimit.SignInPerMinute, cfg.RateLimit.SignInBurst, middleware.ByClientIP)
	defer signInLimiter.Stop()

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsHandler(cfg.Server.AllowedOrigins))

	r.Get("/health", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", metrics.Handler(registry))

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/signup", authHandler.SignUp)
		r.With(signInLimiter.Middleware).Post("/auth/signin", authHandler.SignIn)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(authService))
			r.Post("/auth/signout", authHandler.SignOut)

			r.Get("/me", userHandler.Me)
			r.Put("/me/name", userHandler.SetName)

			r.Post("/groups", groupHandler.CreateGroup)
			r.With(joinLimiter.Middleware).Post("/groups/join", groupHandler.JoinGroup)
			r.Get("/groups", groupHandler.ListGroups)
			r.Get("/groups/{group_id}/photos", photoHandler.ListGroupPhotos)
			r.Post("/groups/{group_id}/photos", photoHandler.UploadPhoto)

			r.Get("/photos/mine", photoHandler.ListMyPhotos)
			r.Delete("/photos/{photo_id}", photoHandler.DeletePhoto)
			r.Get("/uploads/status", photoHandler.UploadStatus)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("storage", cfg.Storage.Driver).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsHandler allows the configured origins, or any origin when none are set
func corsHandler(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}
	if anyOrigin(origins) {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowCredentials = true
	}
	return cors.Handler(opts)
}

// originChecker matches WebSocket upgrades against the CORS origins
func originChecker(origins []string) func(r *http.Request) bool {
	if anyOrigin(origins) {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}

func anyOrigin(origins []string) bool {
	return len(origins) == 0 || slices.Contains(origins, "*")
}
