package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expense-manager/internal/auth"
	"expense-manager/internal/config"
	"expense-manager/internal/expenses"
	"expense-manager/internal/handlers"
	"expense-manager/internal/logger"
	"expense-manager/internal/metrics"
	"expense-manager/internal/middleware"
	"expense-manager/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:       logger.LogLevel(cfg.LogLevel),
		Development: cfg.LogDevelopment,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	key, generated, err := cfg.SigningKey()
	if err != nil {
		return err
	}
	if generated {
		log.Warn("SESSION_SECRET is not set, using a random key; sessions will not survive a restart")
	}

	db, err := storage.Open(ctx, storage.Options{Driver: cfg.DBDriver, DSN: cfg.DSN()})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	log.Info("Database ready", zap.String("driver", db.Driver()))

	creds := auth.NewCredentials(db)
	if cfg.AdminUser != "" {
		if err := bootstrapAdmin(ctx, creds, cfg.AdminUser, cfg.AdminPassword, log); err != nil {
			return err
		}
	}

	authenticator, err := auth.NewAuthenticator(auth.Config{
		SigningKey:      key,
		SessionDuration: cfg.SessionDuration,
	}, creds, db, log)
	if err != nil {
		return fmt.Errorf("init authenticator: %w", err)
	}

	reg := metrics.NewRegistry()
	h := handlers.NewHandlers(handlers.Deps{
		Auth:        authenticator,
		Credentials: creds,
		Expenses:    expenses.NewService(db),
		Store:       db,
		Metrics:     reg,
		Logger:      log,
	}, cfg.TemplateDir, cfg.SecureCookie)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           withMiddleware(setupRouter(h, cfg.StaticDir), log, reg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
		ErrorLog:          zap.NewStdLog(log),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server stopped gracefully")
	return nil
}

// setupRouter registers every route. Expense pages sit behind AuthMiddleware.
func setupRouter(h *handlers.Handlers, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /metrics", h.Metrics)

	mux.HandleFunc("GET /{$}", h.LoginForm)
	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /register", h.RegisterForm)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("GET /logout", h.Logout)
	mux.HandleFunc("POST /logout", h.Logout)

	protected := func(f http.HandlerFunc) http.Handler {
		return h.AuthMiddleware(f)
	}
	mux.Handle("GET /dashboard", protected(h.Dashboard))
	mux.Handle("GET /manage_expenses", protected(h.CreateExpenseForm))
	mux.Handle("POST /manage_expenses", protected(h.CreateExpense))
	mux.Handle("GET /update_expense/{id}", protected(h.EditExpenseForm))
	mux.Handle("POST /update_expense/{id}", protected(h.UpdateExpense))
	mux.Handle("GET /delete_expense/{id}", protected(h.DeleteExpense))
	mux.Handle("POST /delete_expense/{id}", protected(h.DeleteExpense))

	return mux
}

func withMiddleware(next http.Handler, log *zap.Logger, reg *metrics.Registry) http.Handler {
	return middleware.Chain(next,
		middleware.RequestID,
		middleware.Trace(log, reg),
		middleware.Recover(log),
		middleware.SecurityHeaders(middleware.DefaultHeadersConfig()),
	)
}

// bootstrapAdmin creates the configured admin account unless it exists.
func bootstrapAdmin(ctx context.Context, creds *auth.Credentials, username, password string, log *zap.Logger) error {
	_, err := creds.FindByUsername(ctx, username)
	if err == nil {
		log.Debug("Admin user already exists", zap.String("username", username))
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("look up admin user: %w", err)
	}

	user, err := creds.Register(ctx, username, password)
	if errors.Is(err, storage.ErrDuplicateUsername) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Info("Created admin user", zap.String("username", user.Username), zap.Int64("user_id", user.ID))
	return nil
}
