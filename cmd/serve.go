package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adalundhe/museswarm/core/config"
	"github.com/adalundhe/museswarm/core/session"
	"github.com/adalundhe/museswarm/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat web UI",
	Long: `Start the web chat UI and its JSON API. Config files are watched and
reloaded; the next prompt uses the new settings.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr := serveAddr
	if addr == "" {
		addr = app.manager.Get().Server.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := newEngine()
	defer eng.Close()

	app.manager.OnChange(func(*config.Config) {
		if err := eng.Reset(); err != nil {
			app.logger.Warn("closing provider clients", slog.String("error", err.Error()))
		}
	})
	go func() {
		if err := app.manager.Watch(ctx, app.logger); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Warn("config watch stopped", slog.String("error", err.Error()))
		}
	}()

	store, err := session.NewStore(
		session.WithCapacity(app.manager.Get().Server.MaxSessions),
		session.WithStoreLogger(app.logger),
	)
	if err != nil {
		return err
	}
	srv := server.New(eng, store, server.WithLogger(app.logger))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
