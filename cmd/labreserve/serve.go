package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"labreserve/internal/config"
	"labreserve/internal/fetch"
	"labreserve/internal/httpapi"
	"labreserve/internal/repoapi"
)

func runServe(ctx context.Context, a *app, args []string) error {
	flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	interval := flagSet.Duration("watch-interval", 30*time.Second, "devices.yaml poll interval")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	watcher := config.NewDevicesWatcher(a.cfg.DevicesFile, *interval, a.logger, func(change config.DevicesChange) {
		a.devices.Replace(change.Config.Devices)
		a.logger.Info().
			Int("devices", len(change.Config.Devices)).
			Ints64("added", change.Added).
			Ints64("removed", change.Removed).
			Msg("devices config reloaded")
	})
	if err := watcher.Start(ctx); err != nil {
		a.logger.Error().Err(err).Msg("devices watch failed")
	}

	port := a.cfg.Monitoring.HealthCheckPort
	if port == 0 {
		port = 8090
	}
	mux := healthHandler(ctx, a.client, a.rdb)
	httpapi.NewServer(a.devices, a.fetcher, a.cfg.Schedule, a.logger).Register(mux)
	go startHealthServer(ctx, port, mux, &a.logger)

	if a.cfg.Monitoring.PrometheusEnabled {
		promPort := a.cfg.Monitoring.PrometheusPort
		if promPort == 0 {
			promPort = 9090
		}
		go startMetricsServer(ctx, promPort, &a.logger)
	}

	if a.cfg.Fetch.PrefetchWeeks > 0 {
		prefetcher := fetch.NewPrefetcher(fetch.PrefetchConfig{
			Weeks:    a.cfg.Fetch.PrefetchWeeks,
			Interval: a.cfg.PrefetchInterval(),
		}, a.fetcher, a.logger)
		go prefetcher.Start(ctx)
	}

	a.logger.Info().Int("health_port", port).Msg("labreserve serving")
	<-ctx.Done()
	return nil
}

func startHealthServer(ctx context.Context, port int, handler http.Handler, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func healthHandler(ctx context.Context, client *repoapi.Client, rdb *redis.Client) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Health(ctxPing); err != nil {
			http.Error(w, "repository not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	return mux
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
