// Package server is the composition root: it owns the router, wires the
// repository, services, and handlers together, and runs the HTTP server
// with graceful shutdown. main.go only builds a Config and calls Start.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/amine-dev/localq/internal/auth"
	"github.com/amine-dev/localq/internal/handler"
	"github.com/amine-dev/localq/internal/middleware"
	sqliteRepo "github.com/amine-dev/localq/internal/repository/sqlite"
	"github.com/amine-dev/localq/internal/service"
)

// Config holds everything the server needs, filled from the environment in
// main.go.
type Config struct {
	Port   int
	DBPath string

	JWTSecret string

	// Google OAuth is optional: leave the client ID empty and the /auth/google
	// routes are simply not mounted.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	// FrontendURL is where OAuth callbacks redirect to, e.g. a Vite dev
	// server on http://localhost:5173.
	FrontendURL string

	AllowedOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	// SeedUsers creates two well-known dev accounts on an empty database.
	SeedUsers bool
}

// Server bundles the router with the resources it owns. The database
// connection closes during shutdown, after in-flight requests drain.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and assembles the full dependency chain:
// repository → services → handlers → routes. Each layer sees only the layer
// directly below it; handlers never touch the database.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and mounts every route.
//
// Middleware order: request ID and real IP first so the logger and rate
// limiter see them, then panic recovery, logging, CORS, and the per-IP
// throttle.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if s.config.RateLimitRequests > 0 {
		limiter := middleware.NewRateLimiter(s.config.RateLimitRequests, s.config.RateLimitWindow)
		s.router.Use(limiter.Handler)
	}

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	userService := service.NewUserService(s.db, passwords, s.logger)
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	questionService := service.NewQuestionService(s.db, s.logger)
	answerService := service.NewAnswerService(s.db, s.db, s.logger)

	if s.config.SeedUsers {
		if err := userService.Seed(context.Background()); err != nil {
			return fmt.Errorf("seeding users: %w", err)
		}
	}

	var google *auth.GoogleProvider
	if s.config.GoogleClientID != "" {
		google = auth.NewGoogleProvider(
			s.config.GoogleClientID,
			s.config.GoogleClientSecret,
			s.config.GoogleCallbackURL,
		)
	}

	authHandler := handler.NewAuthHandler(google, authService, s.config.FrontendURL, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	questionHandler := handler.NewQuestionHandler(questionService, s.logger)
	answerHandler := handler.NewAnswerHandler(answerService, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		if google != nil {
			r.Get("/google", authHandler.HandleGoogleLogin)
			r.Get("/google/callback", authHandler.HandleGoogleCallback)
		}
	})

	s.router.Route("/users", func(r chi.Router) {
		r.Post("/", userHandler.HandleRegister)
		r.With(requireAuth).Get("/me", userHandler.HandleMe)
	})

	s.router.Route("/questions", func(r chi.Router) {
		r.Get("/", questionHandler.HandleList)

		// Fixed paths before the {id} wildcard.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/mine", questionHandler.HandleMine)
			r.Get("/liked", questionHandler.HandleLiked)
			r.Post("/", questionHandler.HandleCreate)
			r.Delete("/{id}", questionHandler.HandleDelete)
			r.Patch("/{id}/vote", questionHandler.HandleVote)
		})

		r.Get("/{id}", questionHandler.HandleGet)
	})

	s.router.Route("/answers", func(r chi.Router) {
		r.Get("/question/{id}", answerHandler.HandleListByQuestion)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", answerHandler.HandleCreate)
			r.Delete("/{id}", answerHandler.HandleDelete)
			r.Patch("/{id}/vote", answerHandler.HandleVote)
		})
	})

	return nil
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the server's resources without going through Start.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start runs the server until SIGINT/SIGTERM, then drains in-flight
// requests and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

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
			slog.String("database", s.config.DBPath),
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
