package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/reachly/wallet"
	"github.com/reachly/wallet/audit_hook"
	"github.com/reachly/wallet/internal/api"
	"github.com/reachly/wallet/internal/daemon"
	"github.com/reachly/wallet/observability"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wallet HTTP API",
	Long:  `Start the walletd HTTP API and serve until interrupted.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}

	logger := cfg.Logger()

	st, err := cfg.OpenStore()
	if err != nil {
		return err
	}

	opts := []wallet.Option{
		wallet.WithLogger(logger),
		wallet.WithRetry(cfg.Retry.MaxAttempts, cfg.RetryInterval()),
		wallet.WithHook(audithook.New(audithook.SlogRecorder(logger))),
	}
	if cfg.API.MetricsEnabled {
		opts = append(opts, wallet.WithHook(observability.New(prometheus.DefaultRegisterer)))
	}

	w := wallet.New(st, opts...)

	ctx := cmd.Context()
	if err := w.Start(ctx); err != nil {
		return err
	}

	server := api.NewServer(w)
	server.SetTimeout(cfg.RequestTimeout())
	if cfg.API.MetricsEnabled {
		server.EnableMetrics()
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("walletd listening", "addr", cfg.Addr(), "backend", cfg.Store.Backend)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = w.Stop() //nolint:errcheck // already failing
			return err
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}

	return w.Stop()
}
