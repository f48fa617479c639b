package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"labreserve/internal/config"
	"labreserve/internal/directory"
	"labreserve/internal/events"
	"labreserve/internal/fetch"
	"labreserve/internal/metrics"
	"labreserve/internal/repoapi"
	"labreserve/internal/submit"
)

// app holds the wired components shared by every command.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	client    *repoapi.Client
	rdb       *redis.Client
	fetcher   *fetch.Fetcher
	devices   *directory.Devices
	users     *directory.Users
	submitter *submit.Submitter
	bus       *events.EventBus
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url is required")
	}

	metrics.Register()

	client := repoapi.NewClient(cfg.API.BaseURL, cfg.API.APIKey, cfg.APITimeout())
	if cfg.API.RatePerSecond > 0 {
		client.UseRateLimit(cfg.API.RatePerSecond, cfg.Fetch.Concurrency)
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	policy := fetch.RetryPolicy{Attempts: cfg.Fetch.Attempts, Backoff: cfg.FetchBackoff()}
	fetcher := fetch.NewFetcher(client, policy, cfg.Fetch.Concurrency, logger)
	fetcher.UseTTL(cfg.CacheTTL())

	a := &app{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		rdb:       rdb,
		fetcher:   fetcher,
		devices:   directory.NewDevices(nil, logger),
		users:     directory.NewUsers(client, logger),
		submitter: submit.NewSubmitter(client, cfg.Schedule, logger),
		bus:       events.NewEventBus(),
	}

	a.bus.Subscribe(events.BookingsChanged, func(events.Event) error {
		fetcher.Invalidate()
		ctxDrop, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		n, err := client.Invalidate(ctxDrop)
		if err != nil {
			return fmt.Errorf("drop cached reads: %w", err)
		}
		logger.Debug().Int("keys", n).Msg("cached reads dropped")
		return nil
	})

	if err := a.loadDevices(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// loadDevices prefers devices.yaml and falls back to the repository catalogue.
func (a *app) loadDevices(ctx context.Context) error {
	cfg, err := config.LoadDevicesConfig(a.cfg.DevicesFile)
	if err == nil {
		a.devices.Replace(cfg.Devices)
		return nil
	}
	a.logger.Debug().Err(err).Str("path", a.cfg.DevicesFile).Msg("devices file unavailable, asking repository")
	return a.devices.Refresh(ctx, a.client)
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
		a.rdb = nil
	}
}
