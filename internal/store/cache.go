package store

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/ifews/nsurplus/internal/fetcher"
)

// CachedResponse is one cached upstream body.
type CachedResponse struct {
	URL       string
	Body      []byte
	ETag      string
	FetchedAt time.Time
	ExpiresAt time.Time
}

// Fresh reports whether the entry is still within its TTL at now.
func (c *CachedResponse) Fresh(now time.Time) bool {
	return now.Before(c.ExpiresAt)
}

// ResponseCache stores upstream CSV responses in SQLite keyed by redacted URL.
type ResponseCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewResponseCache opens a SQLite database at dsn, configures WAL mode, and creates the cache table.
func NewResponseCache(ctx context.Context, dsn string) (*ResponseCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	c := &ResponseCache{db: db, now: time.Now}
	if err := c.migrate(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return c, nil
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS response_cache (
	url        TEXT PRIMARY KEY,
	body       BLOB NOT NULL,
	etag       TEXT NOT NULL DEFAULT '',
	fetched_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_response_cache_expires_at ON response_cache(expires_at);
`

func (c *ResponseCache) migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, cacheSchema)
	return eris.Wrap(err, "cache: migrate")
}

// Close closes the underlying database.
func (c *ResponseCache) Close() error {
	return c.db.Close()
}

// Get returns the cached entry for url, fresh or stale, or nil if there is none.
func (c *ResponseCache) Get(ctx context.Context, url string) (*CachedResponse, error) {
	key := fetcher.Redact(url)
	row := c.db.QueryRowContext(ctx,
		`SELECT body, etag, fetched_at, expires_at FROM response_cache WHERE url = ?`, key)

	e := CachedResponse{URL: key}
	var fetched, expires int64
	err := row.Scan(&e.Body, &e.ETag, &fetched, &expires)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "cache: get")
	}
	e.FetchedAt = time.Unix(fetched, 0).UTC()
	e.ExpiresAt = time.Unix(expires, 0).UTC()
	return &e, nil
}

// Put stores body for url with the given ttl, replacing any previous entry.
func (c *ResponseCache) Put(ctx context.Context, url string, body []byte, etag string, ttl time.Duration) error {
	now := c.now().UTC()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO response_cache (url, body, etag, fetched_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET body = excluded.body, etag = excluded.etag,
		 fetched_at = excluded.fetched_at, expires_at = excluded.expires_at`,
		fetcher.Redact(url), body, etag, now.Unix(), now.Add(ttl).Unix(),
	)
	return eris.Wrap(err, "cache: put")
}

// Touch extends the expiry of an entry that upstream reported unchanged.
func (c *ResponseCache) Touch(ctx context.Context, url string, ttl time.Duration) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE response_cache SET expires_at = ? WHERE url = ?`,
		c.now().UTC().Add(ttl).Unix(), fetcher.Redact(url),
	)
	return eris.Wrap(err, "cache: touch")
}

// DeleteExpired removes entries past their expiry and returns how many were deleted.
func (c *ResponseCache) DeleteExpired(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM response_cache WHERE expires_at <= ?`, c.now().UTC().Unix())
	if err != nil {
		return 0, eris.Wrap(err, "cache: delete expired")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "cache: rows affected")
	}
	return int(n), nil
}

// CachingFetcher serves downloads from a ResponseCache, revalidating stale entries by ETag.
type CachingFetcher struct {
	inner fetcher.Fetcher
	cache *ResponseCache
	ttl   time.Duration
	log   *zap.Logger
}

var _ fetcher.Fetcher = (*CachingFetcher)(nil)

// NewCachingFetcher wraps inner with cache. Entries live for ttl.
func NewCachingFetcher(inner fetcher.Fetcher, cache *ResponseCache, ttl time.Duration) *CachingFetcher {
	return &CachingFetcher{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   zap.L().With(zap.String("component", "store.cache")),
	}
}

// Download returns the cached body when fresh. Stale entries with an ETag are revalidated;
// everything else is fetched and stored.
func (f *CachingFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	entry, err := f.cache.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if entry != nil && entry.Fresh(f.cache.now()) {
		f.log.Debug("cache hit", zap.String("url", entry.URL))
		return io.NopCloser(bytes.NewReader(entry.Body)), nil
	}

	if entry != nil && entry.ETag != "" {
		body, etag, changed, err := f.inner.DownloadIfChanged(ctx, url, entry.ETag)
		if err != nil {
			return nil, err
		}
		if !changed {
			if err := f.cache.Touch(ctx, url, f.ttl); err != nil {
				return nil, err
			}
			f.log.Debug("cache revalidated", zap.String("url", entry.URL))
			return io.NopCloser(bytes.NewReader(entry.Body)), nil
		}
		return f.store(ctx, url, body, etag)
	}

	body, err := f.inner.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	return f.store(ctx, url, body, "")
}

// DownloadIfChanged bypasses the cache.
func (f *CachingFetcher) DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error) {
	return f.inner.DownloadIfChanged(ctx, url, etag)
}

func (f *CachingFetcher) store(ctx context.Context, url string, body io.ReadCloser, etag string) (io.ReadCloser, error) {
	defer body.Close() //nolint:errcheck
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "cache: read body")
	}
	if err := f.cache.Put(ctx, url, data, etag, f.ttl); err != nil {
		return nil, err
	}
	f.log.Debug("cache stored", zap.String("url", fetcher.Redact(url)), zap.Int("bytes", len(data)))
	return io.NopCloser(bytes.NewReader(data)), nil
}
