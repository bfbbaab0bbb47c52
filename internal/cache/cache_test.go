package cache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type failingDeletes struct {
	Backend
}

func (failingDeletes) DeletePattern(context.Context, string) (int, error) {
	return 0, errors.New("connection refused")
}

func newTestServer(c *Cache, balance *atomic.Int64, hits *atomic.Int64) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	server := gin.New()

	identity := func(ctx *gin.Context) string { return ctx.GetHeader("X-Owner") }

	server.GET("/accounts/:id", c.Middleware(time.Minute, identity), func(ctx *gin.Context) {
		hits.Add(1)
		if ctx.Param("id") == "404" {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"balance": balance.Load()})
	})

	return server
}

func get(t *testing.T, server http.Handler, path, owner string) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		t.Fatalf("http.NewRequest returned error: %v", err)
	}
	req.Header.Set("X-Owner", owner)

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	return recorder
}

func TestMiddleware(t *testing.T) {
	backend, _ := newTestBackend(t)
	c := New(backend, time.Minute)

	var balance, hits atomic.Int64
	balance.Store(100)
	server := newTestServer(c, &balance, &hits)

	first := get(t, server, "/accounts/1", "alice")
	if first.Code != http.StatusOK || first.Header().Get(HeaderCache) != "" {
		t.Fatalf("first read: status %d, X-Cache %q", first.Code, first.Header().Get(HeaderCache))
	}

	second := get(t, server, "/accounts/1", "alice")
	if second.Header().Get(HeaderCache) != "HIT" {
		t.Errorf("second read X-Cache = %q, want HIT", second.Header().Get(HeaderCache))
	}

	if second.Body.String() != first.Body.String() {
		t.Errorf("cached body %q, want %q", second.Body.String(), first.Body.String())
	}

	if hits.Load() != 1 {
		t.Errorf("handler ran %d times, want 1", hits.Load())
	}

	// Another requester gets its own entry.
	get(t, server, "/accounts/1", "bob")
	if hits.Load() != 2 {
		t.Errorf("handler ran %d times, want 2", hits.Load())
	}

	// Failures are not cached.
	get(t, server, "/accounts/404", "alice")
	get(t, server, "/accounts/404", "alice")
	if hits.Load() != 4 {
		t.Errorf("handler ran %d times, want 4", hits.Load())
	}
}

func TestMutationThenReadSeesNewState(t *testing.T) {
	ctx := context.Background()
	backend, _ := newTestBackend(t)
	c := New(backend, time.Minute)

	var balance, hits atomic.Int64
	balance.Store(100)
	server := newTestServer(c, &balance, &hits)

	get(t, server, "/accounts/1", "alice")
	get(t, server, "/accounts/1", "alice")

	// deposit 50 commits, then the service invalidates
	balance.Add(50)
	c.InvalidateAccount(ctx, "alice", 1)

	got := get(t, server, "/accounts/1", "alice")
	if got.Header().Get(HeaderCache) == "HIT" {
		t.Fatal("read after invalidation was served from the cache")
	}

	if want := `{"balance":150}`; got.Body.String() != want {
		t.Errorf("body %q, want %q", got.Body.String(), want)
	}
}

func TestEquivalentPathsShareEntry(t *testing.T) {
	ctx := context.Background()
	backend, mr := newTestBackend(t)
	c := New(backend, time.Minute)

	var balance, hits atomic.Int64
	balance.Store(100)
	server := newTestServer(c, &balance, &hits)

	for _, path := range []string{"/accounts/012", "/accounts/12", "/accounts/+12", "/accounts/%31%32"} {
		get(t, server, path, "alice")
	}

	if hits.Load() != 1 {
		t.Errorf("handler ran %d times, want 1", hits.Load())
	}

	if !mr.Exists("cache:/accounts/12|alice") {
		t.Errorf("canonical key missing, keys: %v", mr.Keys())
	}

	balance.Store(40)
	c.InvalidateAccount(ctx, "alice", 12)

	got := get(t, server, "/accounts/012", "alice")
	if got.Header().Get(HeaderCache) == "HIT" {
		t.Fatal("read after invalidation was served from the cache")
	}

	if want := `{"balance":40}`; got.Body.String() != want {
		t.Errorf("body %q, want %q", got.Body.String(), want)
	}

	// Ids the handler rejects are never cached.
	get(t, server, "/accounts/abc", "alice")
	get(t, server, "/accounts/abc", "alice")

	if hits.Load() != 4 {
		t.Errorf("handler ran %d times, want 4", hits.Load())
	}
}

func TestEvictionDuringLoadIsNotCached(t *testing.T) {
	ctx := context.Background()
	backend, _ := newTestBackend(t)
	c := New(backend, time.Minute)

	var (
		balance  atomic.Int64
		blocking atomic.Bool
		loaded   = make(chan struct{})
		release  = make(chan struct{})
	)

	balance.Store(100)
	blocking.Store(true)

	gin.SetMode(gin.ReleaseMode)
	server := gin.New()
	identity := func(ctx *gin.Context) string { return ctx.GetHeader("X-Owner") }

	server.GET("/accounts/:id", c.Middleware(time.Minute, identity), func(ctx *gin.Context) {
		body := gin.H{"balance": balance.Load()}

		if blocking.CompareAndSwap(true, false) {
			close(loaded)
			<-release
		}

		ctx.JSON(http.StatusOK, body)
	})

	req := httptest.NewRequest(http.MethodGet, "/accounts/1", nil)
	req.Header.Set("X-Owner", "alice")

	slow := httptest.NewRecorder()
	done := make(chan struct{})

	go func() {
		server.ServeHTTP(slow, req)
		close(done)
	}()

	<-loaded

	// withdraw 70 commits and evicts while the slow read still holds the old balance
	balance.Store(30)
	c.InvalidateAccount(ctx, "alice", 1)

	close(release)
	<-done

	if want := `{"balance":100}`; slow.Body.String() != want {
		t.Fatalf("slow read body %q, want %q", slow.Body.String(), want)
	}

	got := get(t, server, "/accounts/1", "alice")
	if got.Header().Get(HeaderCache) == "HIT" {
		t.Fatal("response loaded before the eviction was served from the cache")
	}

	if want := `{"balance":30}`; got.Body.String() != want {
		t.Errorf("body %q, want %q", got.Body.String(), want)
	}

	if again := get(t, server, "/accounts/1", "alice"); again.Header().Get(HeaderCache) != "HIT" {
		t.Error("read after a quiet load was not cached")
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	backend, mr := newTestBackend(t)
	c := New(backend, time.Minute)

	keys := map[string]bool{
		"cache:/accounts/1|alice":                       false,
		"cache:/accounts/1?x=1|alice":                   false,
		"cache:/accounts/1/transactions|alice":          false,
		"cache:/accounts/1/transactions?limit=5|alice":  false,
		"cache:/accounts|alice":                         false,
		"cache:/accounts?page_id=1&page_size=5|alice":   false,
		"cache:/accounts/12|alice":                      true,
		"cache:/accounts/12/transactions?limit=5|alice": true,
		"cache:/accounts|bob":                           true,
		"cache:/accounts?page_id=1&page_size=5|bob":     true,
		"cache:/accounts?page_id=1&page_size=5|alice2":  true,
	}
	for k := range keys {
		mr.Set(k, "{}")
	}

	c.InvalidateAccount(ctx, "alice", 1)

	for k, survives := range keys {
		if mr.Exists(k) != survives {
			t.Errorf("key %q exists = %v, want %v", k, mr.Exists(k), survives)
		}
	}

	// Evicting again is a no-op.
	c.InvalidateAccount(ctx, "alice", 1)
	c.InvalidateOwner(ctx, "nobody")

	if c.Degraded() {
		t.Error("cache degraded after evicting absent keys")
	}

	c.InvalidateOwner(ctx, "bob")
	if mr.Exists("cache:/accounts|bob") {
		t.Error("InvalidateOwner left the owner listing")
	}

	if !mr.Exists("cache:/accounts/12|alice") {
		t.Error("InvalidateOwner removed an account view")
	}
}

func TestFailedEvictionBypassesCache(t *testing.T) {
	ctx := context.Background()
	backend, _ := newTestBackend(t)
	c := New(failingDeletes{Backend: backend}, time.Minute)

	now := time.Now()
	c.now = func() time.Time { return now }

	var balance, hits atomic.Int64
	server := newTestServer(c, &balance, &hits)

	get(t, server, "/accounts/1", "alice")
	get(t, server, "/accounts/1", "alice")
	if hits.Load() != 1 {
		t.Fatalf("handler ran %d times, want 1", hits.Load())
	}

	balance.Store(10)
	c.InvalidateAccount(ctx, "alice", 1)

	if !c.Degraded() {
		t.Fatal("cache not degraded after failed eviction")
	}

	got := get(t, server, "/accounts/1", "alice")
	if want := `{"balance":10}`; got.Body.String() != want {
		t.Errorf("body %q, want %q", got.Body.String(), want)
	}

	now = now.Add(2 * time.Minute)

	if c.Degraded() {
		t.Error("cache still degraded after max ttl")
	}
}
