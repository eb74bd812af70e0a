package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func serveCmd(c config.Config) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the route table behind the guards, with /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, c, func(ctx context.Context, a *app) error {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
				mux.Handle("/", a.authorizer.Handler(func(w http.ResponseWriter, r *http.Request) {
					fmt.Fprintf(w, "%s\n", r.URL.Path)
				}, pageMiddleware(c.GetEnv())...))

				server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				errs := make(chan error, 1)
				go func() { errs <- listenAndServe(server) }()

				select {
				case err := <-errs:
					return err
				case <-waitForStopSignal():
				}
				return shutdown(server)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}
