package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/quillpost/apiserver/config"
	"github.com/quillpost/apiserver/internal/db"
	"github.com/quillpost/apiserver/internal/handlers"
	"github.com/quillpost/apiserver/internal/llm"
	"github.com/quillpost/apiserver/internal/mq"
	"github.com/quillpost/apiserver/internal/ratelimit"
	"github.com/quillpost/apiserver/internal/services"
	"github.com/quillpost/apiserver/internal/storage"
	"github.com/quillpost/apiserver/internal/store"
	"go.uber.org/zap"
)

const defaultPort = 5000

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	objects    *storage.Storage
	logger     *zap.Logger
}

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Content *handlers.ContentHandler
	User    *handlers.UserHandler
}

// New opens every backing resource named by cfg and builds the router.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	model, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init llm client: %w", err)
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = objects.Close()
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	contentRepo := store.NewContentRepository(dbConn)
	generationRepo := store.NewGenerationRepository(dbConn)

	var events services.EventPublisher
	if queue != nil {
		events = queue
	}
	var avatarObjects services.ObjectStore
	if objects != nil {
		avatarObjects = objects
	}

	userService := services.NewUserService(userRepo)
	contentService := services.NewContentService(contentRepo, generationRepo, model, events, logger)
	avatarService := services.NewAvatarService(userRepo, avatarObjects, cfg.Storage.PublicURL, logger)

	router := NewRouter(cfg, logger, Handlers{
		Auth:    handlers.NewAuthHandler(userService, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger),
		Content: handlers.NewContentHandler(contentService, ratelimit.New(cfg.RateLimit.GenerateRPS, cfg.RateLimit.GenerateBurst), logger),
		User:    handlers.NewUserHandler(userService, avatarService, logger),
	})

	port := cfg.ServerPort
	if port == 0 {
		port = defaultPort
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	logger.Info("server configured",
		zap.Int("port", port),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("mq_backend", cfg.MQ.Backend),
	)

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         queue,
		objects:    objects,
		logger:     logger,
	}, nil
}

// NewRouter mounts the API routes with the shared middleware stack.
func NewRouter(cfg config.Config, logger *zap.Logger, h Handlers) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger(logger),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.Timeout(90*time.Second),
	)

	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, h.Auth)
		})
		r.Route("/content", func(r chi.Router) {
			r.Use(h.Auth.RequireAuth)
			handlers.ContentRouter(r, h.Content)
		})
		r.Route("/user", func(r chi.Router) {
			r.Use(h.Auth.RequireAuth)
			handlers.UserRouter(r, h.User)
		})
		r.Route("/media", func(r chi.Router) {
			handlers.MediaRouter(r, h.User)
		})
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases resources.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		if closeErr := s.mq.Close(); closeErr != nil {
			s.logger.Warn("failed to close message queue", zap.Error(closeErr))
		}
	}
	if closeErr := s.objects.Close(); closeErr != nil {
		s.logger.Warn("failed to close object storage", zap.Error(closeErr))
	}
	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil {
			s.logger.Warn("failed to close database", zap.Error(closeErr))
		}
	}
	return err
}
