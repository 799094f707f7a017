// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects the store, the external
// adapters (identity provider, page cache, media signer), the services and
// the handlers, and decides which URL maps to which handler behind which
// middleware.
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config.Config and the logger, then
//
//	server.New creates: Store → Services → Handlers → routes
//
// This is the "composition root": every concrete type is chosen here, once,
// from configuration. Nothing below this package picks an implementation.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/devpulse/devpulse/internal/auth"
	"github.com/devpulse/devpulse/internal/cache"
	"github.com/devpulse/devpulse/internal/config"
	"github.com/devpulse/devpulse/internal/handler"
	"github.com/devpulse/devpulse/internal/identity"
	"github.com/devpulse/devpulse/internal/media"
	"github.com/devpulse/devpulse/internal/middleware"
	"github.com/devpulse/devpulse/internal/repository"
	"github.com/devpulse/devpulse/internal/repository/postgres"
	sqliteRepo "github.com/devpulse/devpulse/internal/repository/sqlite"
	"github.com/devpulse/devpulse/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store and, when configured, the Redis client. Both
// are closed by Close, which Start calls during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.Store
	redis  *cache.Redis
}

// New opens the store, builds the adapters the config asks for and wires
// every route. The context bounds startup work (database retries, Redis
// ping).
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// openStore picks the storage backend from DB_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL, logger, postgres.Options{})
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, nil

	default:
		if cfg.DBPath != ":memory:" {
			// os.MkdirAll is a no-op when the directory already exists.
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return db, nil
	}
}

// pageCache returns the Redis page cache, or Nop when REDIS_URL is unset or
// unreachable. The cache only ever speeds up public reads, so running
// without it is safe.
func (s *Server) pageCache(ctx context.Context) cache.PageCache {
	if s.config.RedisURL == "" {
		return cache.Nop{}
	}
	r, err := cache.NewRedis(ctx, s.config.RedisURL, s.config.PageCacheTTL)
	if err != nil {
		s.logger.Warn("page cache unavailable, serving uncached", slog.String("error", err.Error()))
		return cache.Nop{}
	}
	s.redis = r
	return r
}

func (s *Server) identityProvider() identity.Provider {
	if s.config.IdentityProvider == config.ProviderClerk {
		return identity.NewClerkClient(identity.ClerkConfig{
			BaseURL:   s.config.ClerkAPIURL,
			SecretKey: s.config.ClerkSecretKey,
			Timeout:   s.config.RequestTimeout,
		}, s.logger)
	}
	s.logger.Warn("using local identity provider; account deletions stay local")
	return identity.NewLocalProvider(s.logger)
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /post-signup                → end the sign-up session, 303 to sign-in
// GET    /api/health                 → store connectivity + user count
// POST   /api/webhooks/clerk         → identity lifecycle events (signed)
// GET    /api/users/{identifier}     → profile by username or ID
// GET    /api/me                     → own profile (provisioned on first view)
// PATCH  /api/me                     → partial profile edit
// POST   /api/sections               → create or update a showcase item
// DELETE /api/sections/{id}          → delete a showcase item
// POST   /api/account/delete         → delete the account everywhere
// GET    /api/media/signature        → signed upload authorization
// GET    /api/settings, PATCH        → preferences
// GET    /api/notifications, POST, PATCH, DELETE → inbox
// GET    /api/posts                  → community feed, newest first
// POST   /api/posts                  → publish a post
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns an ID the logger includes on every line
// 2. RealIP: extracts the client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Recoverer: turns panics into 500s instead of crashing
// 5. Timeout: bounds every request, including outbound store/provider calls
func (s *Server) setupRoutes(ctx context.Context) error {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Timeout(s.config.RequestTimeout))

	s.router.NotFound(handler.NotFound)
	s.router.MethodNotAllowed(handler.MethodNotAllowed)

	// === Adapters ===
	pages := s.pageCache(ctx)
	provider := s.identityProvider()

	var webhookVerifier *identity.Verifier
	if s.config.ClerkWebhookSecret != "" {
		v, err := identity.NewVerifier(s.config.ClerkWebhookSecret)
		if err != nil {
			return fmt.Errorf("creating webhook verifier: %w", err)
		}
		webhookVerifier = v
	} else {
		s.logger.Warn("CLERK_WEBHOOK_SECRET not set; webhook deliveries will be rejected")
	}

	var sessions *auth.SessionVerifier
	if s.config.ClerkJWTKey != "" {
		v, err := auth.NewSessionVerifier(s.config.ClerkJWTKey)
		if err != nil {
			return fmt.Errorf("creating session verifier: %w", err)
		}
		sessions = v
	} else {
		s.logger.Warn("CLERK_JWT_KEY not set; authenticated routes are disabled")
	}

	signer := media.NewSigner(media.Config{
		CloudName:     s.config.CloudinaryCloudName,
		APIKey:        s.config.CloudinaryAPIKey,
		APISecret:     s.config.CloudinaryAPISecret,
		DefaultFolder: s.config.MediaDefaultFolder,
		ExtraFolders:  []string{s.config.MediaPostsFolder},
	})

	// === Services ===
	// Every service receives repository interfaces; s.store satisfies all
	// of them.
	syncService := service.NewSyncService(s.store, s.store, pages, s.logger)
	profileService := service.NewProfileService(s.store, syncService, provider, pages, s.logger)
	sectionService := service.NewSectionService(s.store, s.store, profileService, pages, s.logger)
	accountService := service.NewAccountService(s.store, provider, pages, s.logger)
	settingsService := service.NewSettingsService(s.store, s.store, pages, s.logger)
	notificationService := service.NewNotificationService(s.store, s.logger)
	healthService := service.NewHealthService(s.store, s.config.DBDriver)
	postService := service.NewPostService(s.store, profileService, s.logger)

	// === Handlers ===
	webhookHandler := handler.NewWebhookHandler(webhookVerifier, syncService, s.logger)
	profileHandler := handler.NewProfileHandler(profileService, s.logger)
	sectionHandler := handler.NewSectionHandler(sectionService, s.logger)
	accountHandler := handler.NewAccountHandler(accountService, s.config.SignInURL, s.logger)
	mediaHandler := handler.NewMediaHandler(signer, s.logger)
	settingsHandler := handler.NewSettingsHandler(settingsService, s.logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, s.logger)
	healthHandler := handler.NewHealthHandler(healthService, s.logger)
	sessionHandler := handler.NewSessionHandler(provider, s.config.SignInURL, s.logger)
	postHandler := handler.NewPostHandler(postService, s.logger)

	// === Routes ===
	s.router.With(auth.OptionalAuth(sessions)).Get("/post-signup", sessionHandler.HandlePostSignup)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HandleCheck)
		r.Post("/webhooks/clerk", webhookHandler.HandleIdentityEvent)
		r.With(auth.OptionalAuth(sessions)).Get("/users/{identifier}", profileHandler.HandleGet)
		r.Get("/posts", postHandler.HandleList)

		if sessions == nil {
			return
		}

		// Protected routes: auth.RequireAuth rejects missing or invalid
		// session tokens with 401 before any handler runs.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(sessions))

			r.Get("/me", profileHandler.HandleMe)
			r.Patch("/me", profileHandler.HandleUpdate)

			r.Post("/sections", sectionHandler.HandleSave)
			r.Delete("/sections/{id}", sectionHandler.HandleDelete)

			r.Post("/account/delete", accountHandler.HandleDelete)
			r.Get("/media/signature", mediaHandler.HandleSignature)

			r.Get("/settings", settingsHandler.HandleGet)
			r.Patch("/settings", settingsHandler.HandlePatch)

			r.Get("/notifications", notificationHandler.HandleList)
			r.Post("/notifications", notificationHandler.HandleCreate)
			r.Patch("/notifications", notificationHandler.HandleMarkRead)
			r.Delete("/notifications", notificationHandler.HandleClear)

			r.Post("/posts", postHandler.HandleCreate)
		})
	})

	return nil
}

// Handler exposes the router, for tests and for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store and the cache connection.
func (s *Server) Close() error {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("closing redis failed", slog.String("error", err.Error()))
		}
	}
	return s.store.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the store (flushes the sqlite WAL / returns pool connections)
func (s *Server) Start() error {
	// Runs after everything else in this function finishes.
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBDriver),
			slog.String("identity_provider", s.config.IdentityProvider),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
