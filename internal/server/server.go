// Package server is the composition root: it wires the stores, services and
// handlers together, defines every route, and runs the HTTP server with
// graceful shutdown.
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

	"github.com/reardon/codeverse/internal/auth"
	"github.com/reardon/codeverse/internal/handler"
	"github.com/reardon/codeverse/internal/middleware"
	sqliteRepo "github.com/reardon/codeverse/internal/repository/sqlite"
	"github.com/reardon/codeverse/internal/service"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string

	// GitHub OAuth is optional; the routes are registered only when both
	// credentials are present.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the database connection. The connection is
// closed during shutdown so the WAL is flushed and the file lock released.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires the full dependency chain:
// store → service → handler → route.
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

// Router exposes the configured routes. Handler tests serve requests
// through this without starting a listener.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the server's database connection. Only needed when the
// server is used without Start (tests).
func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	userStore := sqliteRepo.NewUserStore(s.db)
	projectStore := sqliteRepo.NewProjectStore(s.db)
	checkInStore := sqliteRepo.NewCheckInStore(s.db)
	activityStore := sqliteRepo.NewActivityStore(s.db)
	discussionStore := sqliteRepo.NewDiscussionStore(s.db)

	authService := service.NewAuthService(userStore, tokens, passwords, s.logger)
	userService := service.NewUserService(userStore, projectStore, s.logger)
	projectService := service.NewProjectService(projectStore, userStore, checkInStore,
		activityStore, discussionStore, s.logger)
	activityService := service.NewActivityService(activityStore, userStore, s.logger)
	discussionService := service.NewDiscussionService(discussionStore, projectStore,
		userStore, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	projectHandler := handler.NewProjectHandler(projectService, s.logger)
	activityHandler := handler.NewActivityHandler(activityService, s.logger)
	discussionHandler := handler.NewDiscussionHandler(discussionService, s.logger)

	requireAuth := auth.RequireAuth(tokens)
	optionalAuth := auth.OptionalAuth(tokens)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Health(r.Context()); err != nil {
			http.Error(w, `{"status":"unhealthy"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		r.With(requireAuth).Get("/me", authHandler.HandleMe)

		r.Route("/users", func(r chi.Router) {
			r.Get("/search", userHandler.HandleSearch)
			r.Get("/{username}", userHandler.HandleGetByUsername)
			r.Get("/{id}/friends", userHandler.HandleFriends)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Put("/{id}", userHandler.HandleUpdate)
				r.Delete("/{id}", userHandler.HandleDelete)
				r.Post("/friend-request", userHandler.HandleSendFriendRequest)
				r.Post("/accept-friend", userHandler.HandleAcceptFriendRequest)
				r.Post("/decline-friend", userHandler.HandleDeclineFriendRequest)
				r.Post("/unfriend", userHandler.HandleUnfriend)
				r.Get("/{id}/saved", userHandler.HandleSavedProjects)
				r.Post("/{id}/saved/{projectId}", userHandler.HandleSaveProject)
				r.Delete("/{id}/saved/{projectId}", userHandler.HandleUnsaveProject)
			})
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/featured", projectHandler.HandleFeatured)
			r.Get("/search", projectHandler.HandleSearch)
			r.Get("/{id}", projectHandler.HandleGet)
			r.Get("/{id}/checkins", projectHandler.HandleCheckIns)
			r.Get("/{id}/activity", projectHandler.HandleActivity)
			r.Get("/{id}/discussions", discussionHandler.HandleList)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", projectHandler.HandleCreate)
				r.Put("/{id}", projectHandler.HandleUpdate)
				r.Delete("/{id}", projectHandler.HandleDelete)
				r.Post("/{id}/checkout", projectHandler.HandleCheckout)
				r.Post("/{id}/checkin", projectHandler.HandleCheckIn)
				r.Post("/{id}/members", projectHandler.HandleAddMember)
				r.Delete("/{id}/members/{userId}", projectHandler.HandleRemoveMember)
				r.Post("/{id}/discussions", discussionHandler.HandlePost)
			})
		})

		r.Route("/activity", func(r chi.Router) {
			r.With(optionalAuth).Get("/", activityHandler.HandleFeed)
			r.Get("/search", activityHandler.HandleSearch)
		})
	})

	return nil
}

// Start runs the server until SIGINT/SIGTERM, then drains in-flight
// requests before closing the database.
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
