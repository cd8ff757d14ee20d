package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/splenwilz/clipslot/internal/authsvc"
	"github.com/splenwilz/clipslot/internal/broker"
	"github.com/splenwilz/clipslot/internal/config"
	"github.com/splenwilz/clipslot/internal/httpapi"
	"github.com/splenwilz/clipslot/internal/logging"
	"github.com/splenwilz/clipslot/internal/metrics"
	"github.com/splenwilz/clipslot/internal/natsfanout"
	"github.com/splenwilz/clipslot/internal/store"
	"github.com/splenwilz/clipslot/internal/sweeper"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return err
	}

	log := logging.New("relay-server", logging.Options{Level: cfg.LogLevel, Pretty: cfg.LogFormat != "json"})

	st, err := store.Open(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer st.Close()

	authManager := authsvc.NewManager(cfg.JWTSecret)
	m := metrics.New()
	br := broker.New(log, m.BroadcastDropped.Inc)

	var fanout httpapi.FanOut
	if cfg.NATSURL != "" {
		relay, err := natsfanout.Connect(cfg.NATSURL, br, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, continuing with single-instance broker only")
		} else {
			fanout = relay
			defer relay.Close()
		}
	}

	_, handler := httpapi.New(st, authManager, br, fanout, m, log, cfg.CORSOriginList(), cfg.LoginRateLimitPerMinute)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(ctx, st, log)

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("relay server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	return nil
}
