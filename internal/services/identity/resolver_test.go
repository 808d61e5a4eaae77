package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"BoltX/internal/domain/service"
	"BoltX/pkg/cache"
	apphttp "BoltX/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderResolver(t *testing.T) {
	r := NewHeaderResolver()

	_, err := r.Resolve(context.Background(), "  ")
	assert.ErrorIs(t, err, service.ErrMissingCredential)

	id, err := r.Resolve(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, service.Identity{CustomerID: "cust-1", Entitled: true}, id)
}

func TestHTTPResolver_ResolvesAndCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"customerId":"cust-9","entitled":true}`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(apphttp.NewClient(apphttp.WithTimeout(time.Second)), srv.URL, cache.NewMemoryCache(), time.Minute)
	defer r.Close()

	for i := 0; i < 2; i++ {
		id, err := r.Resolve(context.Background(), "Bearer tok")
		require.NoError(t, err)
		assert.Equal(t, "cust-9", id.CustomerID)
		assert.True(t, id.Entitled)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPResolver_Errors(t *testing.T) {
	var status int32 = http.StatusUnauthorized
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(atomic.LoadInt32(&status)))
	}))
	defer srv.Close()

	r := NewHTTPResolver(apphttp.NewClient(), srv.URL, nil, 0)

	_, err := r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, service.ErrMissingCredential)

	_, err = r.Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, service.ErrInvalidCredential)

	atomic.StoreInt32(&status, http.StatusBadGateway)
	_, err = r.Resolve(context.Background(), "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrInvalidCredential)
}

func TestHTTPResolver_CacheStaysBounded(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"customerId":"cust-1","entitled":true}`))
	}))
	defer srv.Close()

	mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(2), cache.WithMemoryDefaultTTL(time.Minute))
	r := NewHTTPResolver(apphttp.NewClient(), srv.URL, mc, time.Minute)
	defer r.Close()

	for _, tok := range []string{"t1", "t2", "t3", "t4", "t5"} {
		_, err := r.Resolve(context.Background(), tok)
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, mc.Len(), 2)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))

	_, err := r.Resolve(context.Background(), "t5")
	require.NoError(t, err)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls), "most recent credential still cached")
}

func TestHTTPResolver_ExpiredEntryRefetches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"customerId":"cust-1","entitled":false}`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(apphttp.NewClient(), srv.URL, cache.NewMemoryCache(), 20*time.Millisecond)
	defer r.Close()

	id, err := r.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.False(t, id.Entitled)

	time.Sleep(40 * time.Millisecond)
	_, err = r.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
