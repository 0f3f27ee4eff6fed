package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/synthetic-patients/internal/httpapi"
	"github.com/fpang/synthetic-patients/internal/lambdaboot"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve every pipeline endpoint over plain HTTP for local testing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		cfg, set, closeSource, err := setup(ctx)
		if err != nil {
			return err
		}
		defer closeSource()
		if cfg.Secrets.SharedSecret == "" {
			return errors.New("SHARED_SECRET must be set to serve")
		}

		handler := httpapi.NewServer(httpapi.ServerOptions{
			Service:    "synth-cli",
			AuthHeader: cfg.Auth.Header,
			Secret:     cfg.Secrets.SharedSecret,
			Defaults:   lambdaboot.Defaults(cfg),
			Pipelines: map[string]httpapi.Runner{
				"/api/headshots/generate":    set.Headshots,
				"/api/instructions/generate": set.Instructions,
				"/api/descriptions/generate": set.Descriptions,
			},
		})
		srv := &http.Server{Addr: serveAddr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		log.Info().Str("addr", serveAddr).Msg("Serving pipelines")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
}
