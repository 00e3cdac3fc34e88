package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ifews/nsurplus/internal/config"
	"github.com/ifews/nsurplus/internal/db"
	"github.com/ifews/nsurplus/internal/fetcher"
	"github.com/ifews/nsurplus/internal/quickstats"
	"github.com/ifews/nsurplus/internal/store"
)

// newHTTPFetcher builds the uncached downloader from config.
func newHTTPFetcher(c *config.Config) *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:      c.QuickStats.Timeout(),
		MaxRetries:   c.QuickStats.MaxRetries,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})
}

// newQuickStats builds a QuickStats client, routing downloads through the response
// cache when cache.path is set. The returned close func is never nil.
func newQuickStats(ctx context.Context, c *config.Config, f fetcher.Fetcher) (*quickstats.Client, func(), error) {
	closeFn := func() {}
	if c.Cache.Path != "" {
		cache, err := store.NewResponseCache(ctx, c.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		if n, err := cache.DeleteExpired(ctx); err != nil {
			zap.L().Warn("cache cleanup failed", zap.Error(err))
		} else if n > 0 {
			zap.L().Debug("expired cache entries removed", zap.Int("count", n))
		}
		f = store.NewCachingFetcher(f, cache, c.Cache.TTL())
		closeFn = func() { _ = cache.Close() }
	}

	client := quickstats.NewClient(f, quickstats.Options{
		APIKey:      c.QuickStats.APIKey,
		BaseURL:     c.QuickStats.BaseURL,
		MirrorURL:   c.QuickStats.MirrorURL,
		State:       c.QuickStats.State,
		StartYear:   c.QuickStats.StartYear,
		Concurrency: c.QuickStats.Concurrency,
	})
	return client, closeFn, nil
}

// storePool opens the results database and applies pending migrations.
func storePool(ctx context.Context, c *config.Config) (*pgxpool.Pool, error) {
	if c.Store.DatabaseURL == "" {
		return nil, eris.New("store: no database_url configured (set store.database_url)")
	}
	pool, err := db.Connect(ctx, c.Store.DatabaseURL, c.Store.MaxConns)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "store: migrate")
	}
	return pool, nil
}
