// SPDX-License-Identifier: MIT

package main

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/talosproj/talos/internal/cache"
	"github.com/talosproj/talos/internal/config"
	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/panelapp"
)

// newPanelCache picks the response cache for PanelApp queries. A
// configured redis address is tried first; an unreachable server
// degrades to the in-process cache rather than failing the stage.
func newPanelCache(cfg config.Config) cache.Cache {
	logger := log.WithComponent("cli")
	if cfg.Cache.RedisAddr != "" {
		c, err := cache.NewRedisCache(cache.RedisConfig{Addr: cfg.Cache.RedisAddr}, logger)
		if err == nil {
			return c
		}
		logger.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).
			Msg("redis unreachable, falling back to in-process cache")
	}
	return cache.NewMemoryCache(5 * time.Minute)
}

// newPanelClient builds the PanelApp client from the panels and cache
// sections. Zero-valued settings take the client defaults.
func newPanelClient(cfg config.Config) *panelapp.Client {
	return panelapp.NewClient(cfg.Panels.PanelApp, panelapp.Options{
		Timeout:        cfg.Panels.RequestTimeout(),
		MaxRetries:     cfg.Panels.Retries,
		RateLimit:      rate.Limit(cfg.Panels.RateLimit),
		RateLimitBurst: cfg.Panels.Burst,
		Cache:          newPanelCache(cfg),
		CacheTTL:       cfg.Cache.TTL(),
	})
}
