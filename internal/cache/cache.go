package cache

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HeaderCache is set to HIT on responses served from the cache.
const HeaderCache = "X-Cache"

// Cache is the read-through layer in front of the account read handlers.
// A failed eviction may leave stale entries behind, so the cache stops serving reads
// until every entry written before the failure has expired.
type Cache struct {
	backend       Backend
	maxTTL        time.Duration
	degradedUntil atomic.Int64
	now           func() time.Time
}

// New returns Cache. maxTTL must be at least the longest ttl passed to Middleware.
func New(backend Backend, maxTTL time.Duration) *Cache {
	return &Cache{
		backend: backend,
		maxTTL:  maxTTL,
		now:     time.Now,
	}
}

// Ping checks the cache backend.
func (c *Cache) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}

// Degraded reports whether reads currently bypass the cache.
func (c *Cache) Degraded() bool {
	return c.now().UnixNano() < c.degradedUntil.Load()
}

func (c *Cache) degrade() {
	c.degradedUntil.Store(c.now().Add(c.maxTTL).UnixNano())
}

type bodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware serves GET requests from the cache. On a miss the handler runs and its
// response is stored for ttl when the status is 200, unless the resource was evicted while
// the handler ran. identity returns the requester the response was produced for; it is part
// of the key. Requests whose route parameters are not numeric bypass the cache.
func (c *Cache) Middleware(ttl time.Duration, identity func(*gin.Context) string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet || c.Degraded() {
			ctx.Next()
			return
		}

		key, genKey, ok := requestKeys(ctx, identity(ctx))
		if !ok {
			ctx.Next()
			return
		}

		l := zerolog.Ctx(ctx.Request.Context())

		cached, err := c.backend.Get(ctx.Request.Context(), key)
		switch {
		case err == nil:
			ctx.Header(HeaderCache, "HIT")
			ctx.Data(http.StatusOK, gin.MIMEJSON+"; charset=utf-8", cached)
			ctx.Abort()
			return
		case !errors.Is(err, ErrMiss):
			l.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}

		// Read before the handler loads so an eviction racing the load is detected on store.
		gen, err := c.backend.Generation(ctx.Request.Context(), genKey)
		if err != nil {
			l.Warn().Err(err).Str("key", genKey).Msg("cache generation read failed")
			ctx.Next()
			return
		}

		w := &bodyWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = w

		ctx.Next()

		if w.Status() != http.StatusOK || w.body.Len() == 0 || c.Degraded() {
			return
		}

		stored, err := c.backend.SetIfGeneration(ctx.Request.Context(), genKey, gen, key, w.body.Bytes(), ttl)
		if err != nil {
			l.Warn().Err(err).Str("key", key).Msg("cache write failed")
			return
		}

		if !stored {
			l.Debug().Str("key", key).Msg("evicted while loading, response not cached")
		}
	}
}

// InvalidateAccount evicts every view of the account and the owner's account listings.
func (c *Cache) InvalidateAccount(ctx context.Context, owner string, accountID int32) {
	c.evict(ctx,
		[]string{AccountGeneration(accountID), OwnerGeneration(owner)},
		append(AccountPatterns(accountID), OwnerPatterns(owner)...),
	)
}

// InvalidateOwner evicts the owner's account listings.
func (c *Cache) InvalidateOwner(ctx context.Context, owner string) {
	c.evict(ctx, []string{OwnerGeneration(owner)}, OwnerPatterns(owner))
}

// evict bumps the generations first so that loads already in flight cannot store, then
// deletes what was stored before.
func (c *Cache) evict(ctx context.Context, generations, patterns []string) {
	// The mutation is already committed, eviction must not be skipped because the client went away.
	ctx = context.WithoutCancel(ctx)
	l := zerolog.Ctx(ctx)

	for _, gen := range generations {
		if err := c.backend.BumpGeneration(ctx, gen); err != nil {
			c.degrade()
			l.Error().Err(err).Str("generation", gen).Msg("cache generation bump failed, bypassing cache reads")
		}
	}

	for _, pattern := range patterns {
		n, err := c.backend.DeletePattern(ctx, pattern)
		if err != nil {
			c.degrade()
			l.Error().Err(err).Str("pattern", pattern).Msg("cache eviction failed, bypassing cache reads")

			continue
		}

		l.Debug().Str("pattern", pattern).Int("deleted", n).Send()
	}
}
