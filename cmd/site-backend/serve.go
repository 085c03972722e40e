package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/site-backend/internal/config"
	httpapi "github.com/tbourn/site-backend/internal/http"
	"github.com/tbourn/site-backend/internal/notify"
	"github.com/tbourn/site-backend/internal/observability"
	"github.com/tbourn/site-backend/internal/repo"
	"github.com/tbourn/site-backend/internal/sysutil"
	"github.com/tbourn/site-backend/internal/tasks"
)

// Addresses used by the log transport when mail is not configured.
const (
	fallbackFrom      = "noreply@example.com"
	fallbackRecipient = "operator@example.com"
)

// setupOTel is replaced in tests.
var setupOTel = observability.SetupOTel

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe wires every collaborator, serves until SIGINT/SIGTERM, then shuts
// down in order: HTTP server, post-response tasks, tracing, database.
func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	sysutil.SetLogLevel(cfg.LogLevel)
	lg := sysutil.NewLogger(os.Stdout, cfg.LogPretty, cfg.OTEL.ServiceName)
	log.Logger = lg
	zerolog.DefaultContextLogger = &lg

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := setupOTel(ctx, cfg.OTEL, appVersion(), lg)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	flushOTel := sync.OnceFunc(func() {
		fctx, fcancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer fcancel()
		if err := shutdownOTel(fctx); err != nil {
			lg.Warn().Err(err).Msg("otel shutdown")
		}
	})
	defer flushOTel()

	db, err := repo.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.DB.Driver, err)
	}
	defer func() {
		if err := repo.Close(db); err != nil {
			lg.Error().Err(err).Msg("close database")
		}
	}()
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	store, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	transport, err := notify.NewTransport(ctx, cfg.Mail, lg)
	if err != nil {
		return fmt.Errorf("mail transport: %w", err)
	}
	from, recipient := cfg.Mail.From, cfg.Mail.Recipient
	if cfg.Mail.Transport == config.TransportLog {
		from = sysutil.FirstNonEmpty(from, fallbackFrom)
		recipient = sysutil.FirstNonEmpty(recipient, fallbackRecipient)
	}
	sender, err := notify.NewSender(from, recipient, transport)
	if err != nil {
		return err
	}

	runner := tasks.NewRunner(cfg.TaskConcurrency, lg)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, cfg, httpapi.Deps{
		DB:      db,
		Catalog: store,
		Sender:  sender,
		Tasks:   runner,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info().
			Str("addr", srv.Addr).
			Str("version", appVersion()).
			Str("db_driver", cfg.DB.Driver).
			Str("mail_transport", cfg.Mail.Transport).
			Int("services", store.Len()).
			Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		lg.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("http shutdown")
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		lg.Warn().Err(err).Msg("post-response tasks did not finish")
	}
	flushOTel()
	lg.Info().Msg("server stopped")
	return nil
}
