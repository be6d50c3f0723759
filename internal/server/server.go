package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/userdesk/apiserver/config"
	"github.com/userdesk/apiserver/internal/auth"
	"github.com/userdesk/apiserver/internal/db"
	"github.com/userdesk/apiserver/internal/events"
	"github.com/userdesk/apiserver/internal/handlers"
	"github.com/userdesk/apiserver/internal/services"
	"github.com/userdesk/apiserver/internal/storage"
	"github.com/userdesk/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	publisher  *events.Publisher
}

// New constructs a Server with all dependencies wired.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(cfg.JWT.Secret)
	if jwtSecret == "" {
		jwtSecret = config.DefaultJWTSecret
		log.Warn("JWT_SECRET is not set, using the insecure built-in default; set JWT_SECRET in any deployed environment")
	}

	publisher, err := newEventPublisher(ctx, cfg, log)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	avatars, err := newAvatarStore(ctx, cfg, log)
	if err != nil {
		_ = dbConn.Close()
		if publisher != nil {
			_ = publisher.Close()
		}
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	hasher := auth.NewPasswordHasher()
	tokens := auth.NewTokenService(jwtSecret)

	var eventSink services.EventPublisher
	if publisher != nil {
		eventSink = publisher
	}
	userService := services.NewUserService(userRepo, hasher, tokens, eventSink, log)

	authHandler := handlers.NewAuthHandler(userService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, avatars, authHandler.RequireAuth)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		publisher:  publisher,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	return s.httpServer.Close()
}

func newEventPublisher(ctx context.Context, cfg config.Config, log *slog.Logger) (*events.Publisher, error) {
	switch cfg.Events.Backend {
	case "":
		log.Info("no event broker configured, user lifecycle events disabled")
		return nil, nil
	case "rabbitmq":
		backend, err := events.NewRabbitMQClient(cfg.Events.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		return events.NewPublisher(backend, cfg.Events.Channel), nil
	case "pubsub":
		backend, err := events.NewPubSubClient(ctx, cfg.Events.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		return events.NewPublisher(backend, cfg.Events.Channel), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}
}

func newAvatarStore(ctx context.Context, cfg config.Config, log *slog.Logger) (*storage.AvatarStore, error) {
	var backend storage.ObjectStorage
	switch cfg.Storage.Backend {
	case "":
		log.Info("no object storage configured, avatar endpoints disabled")
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Storage.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	avatars := storage.NewAvatarStore(backend)
	if err := avatars.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure avatar bucket: %w", err)
	}
	return avatars, nil
}
