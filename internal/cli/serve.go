package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/checkedin/internal/database"
	"github.com/Shivanand-hulikatti/checkedin/internal/handler"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port    string
	Migrate bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Long: `Run the HTTP API for browser clients.

Requires JWT_SECRET. Set REDIS_URL to share realtime events between several
instances; without it events only reach clients of this process.

Example:
  checkedin serve --migrate
  checkedin serve --port 9090 --config ./checkedin.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Port, "port", "p", "", "listen port (overrides PORT)")
	cmd.Flags().BoolVar(&opts.Migrate, "migrate", false, "apply the database schema before serving")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg := opts.Config
	if opts.Port != "" {
		cfg.Port = opts.Port
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		return WrapExitError(ExitCommandError, "serve", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logrus.WithField("component", "server")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	log.Info("Connected to PostgreSQL")

	if opts.Migrate {
		if err := database.Migrate(ctx, a.pool); err != nil {
			return WrapExitError(ExitCommandError, "migrate", err)
		}
		log.Info("Schema applied")
	}

	tokens, err := handler.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return WrapExitError(ExitCommandError, "serve", err)
	}
	h := handler.New(a.venues, a.checkins, a.messages, tokens, a.broker)
	router := handler.NewRouter(h, handler.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		WebDir:         cfg.WebDir,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Server listening on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return WrapExitError(ExitCommandError, "server error", err)
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "graceful shutdown failed", err)
	}
	log.Info("Server stopped")
	return nil
}
