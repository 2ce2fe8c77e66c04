package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baselinegate/baselinegate/internal/baseline"
	"github.com/baselinegate/baselinegate/internal/config"
	"github.com/baselinegate/baselinegate/internal/logging"
)

func testConfig(endpoint string) config.ResolverConfig {
	return config.ResolverConfig{
		Endpoint:         endpoint,
		BatchSize:        20,
		Concurrency:      3,
		RequestTimeout:   2 * time.Second,
		MaxRetries:       0,
		BreakerThreshold: 5,
		BreakerCooldown:  30 * time.Second,
	}
}

func newTestResolver(cfg config.ResolverConfig) *Resolver {
	r := New(cfg, logging.NewNop(), nil)
	r.httpBackoff = time.Millisecond
	r.netBackoff = time.Millisecond
	return r
}

// queriedIDs extracts the feature IDs from an authority query.
func queriedIDs(r *http.Request) []string {
	var ids []string
	for _, clause := range strings.Split(r.URL.Query().Get("q"), " OR ") {
		ids = append(ids, strings.TrimPrefix(clause, "id:"))
	}
	return ids
}

// statusHandler answers every queried ID from the given status map;
// IDs mapped to "" are returned without baseline data, IDs absent from
// the map are omitted from the response.
func statusHandler(statuses map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entries []map[string]interface{}
		for _, id := range queriedIDs(r) {
			status, ok := statuses[id]
			if !ok {
				continue
			}
			entry := map[string]interface{}{"feature_id": id}
			if status != "" {
				entry["baseline"] = map[string]string{"status": status, "low_date": "2020-01-15"}
			}
			entries = append(entries, entry)
		}
		if entries == nil {
			entries = []map[string]interface{}{}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data":     entries,
			"metadata": map[string]int{"total": len(entries)},
		})
	}
}

func TestResolveEveryIDExactlyOnce(t *testing.T) {
	server := httptest.NewServer(statusHandler(map[string]string{
		"grid":    "widely",
		"popover": "newly",
		"webusb":  "limited",
		"novel":   "", // present, no baseline data
		// "missing" omitted from the response entirely
	}))
	defer server.Close()

	r := newTestResolver(testConfig(server.URL))

	ids := []string{"grid", "popover", "webusb", "novel", "missing", "grid", "bad id!"}
	got, err := r.Resolve(context.Background(), ids)
	require.NoError(t, err)

	assert.Len(t, got, 6) // duplicates collapse, nothing omitted
	assert.Equal(t, baseline.StatusWidely, got["grid"].Status)
	assert.Equal(t, baseline.StatusNewly, got["popover"].Status)
	assert.Equal(t, baseline.StatusLimited, got["webusb"].Status)
	assert.Equal(t, baseline.StatusUnknown, got["novel"].Status)
	assert.Equal(t, baseline.StatusUnknown, got["missing"].Status)
	assert.Equal(t, baseline.StatusUnknown, got["bad id!"].Status)
	assert.Equal(t, "2020-01-15", got["grid"].LowDate)
}

func TestResolveBatching(t *testing.T) {
	var requests atomic.Int32
	base := statusHandler(map[string]string{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.LessOrEqual(t, len(queriedIDs(r)), 20)
		base.ServeHTTP(w, r)
	}))
	defer server.Close()

	r := newTestResolver(testConfig(server.URL))

	ids := make([]string, 45)
	for i := range ids {
		ids[i] = fmt.Sprintf("feature-%02d", i)
	}

	got, err := r.Resolve(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, got, 45)
	assert.Equal(t, int32(3), requests.Load())
}

func TestResolveUnreachableAuthority(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // connection refused from here on

	r := newTestResolver(testConfig(server.URL))

	got, err := r.Resolve(context.Background(), []string{"grid", "flexbox"})
	assert.ErrorIs(t, err, ErrDegraded)

	require.Len(t, got, 2)
	for id, rec := range got {
		assert.Equal(t, baseline.StatusUnknown, rec.Status, id)
	}
}

func TestResolveClientErrorNotRetried(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 3
	r := newTestResolver(cfg)

	got, err := r.Resolve(context.Background(), []string{"grid"})
	assert.ErrorIs(t, err, ErrDegraded)
	assert.Equal(t, baseline.StatusUnknown, got["grid"].Status)
	assert.Equal(t, int32(1), requests.Load(), "4xx must not be retried")
}

func TestResolveRetriesThrottling(t *testing.T) {
	var requests atomic.Int32
	ok := statusHandler(map[string]string{"grid": "widely"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		ok.ServeHTTP(w, r)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 2
	r := newTestResolver(cfg)

	got, err := r.Resolve(context.Background(), []string{"grid"})
	require.NoError(t, err, "breaker counter resets on the eventual success")
	assert.Equal(t, baseline.StatusWidely, got["grid"].Status)
	assert.Equal(t, int32(2), requests.Load())
}

func TestResolveMalformedResponseRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>gateway</html>"},
		{"missing data", `{"items": []}`},
		{"entry without feature_id", `{"data": [{"baseline": {"status": "widely"}}]}`},
		{"invalid status", `{"data": [{"feature_id": "grid", "baseline": {"status": "great"}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			cfg := testConfig(server.URL)
			cfg.MaxRetries = 2
			r := newTestResolver(cfg)

			got, err := r.Resolve(context.Background(), []string{"grid"})
			assert.ErrorIs(t, err, ErrDegraded)
			assert.Equal(t, baseline.StatusUnknown, got["grid"].Status)
			assert.Equal(t, int32(1), requests.Load(), "malformed responses are permanent failures")
		})
	}
}

func TestResolveBreakerShortCircuits(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.BatchSize = 1
	cfg.Concurrency = 1
	cfg.BreakerThreshold = 2
	r := newTestResolver(cfg)

	ids := []string{"a", "b", "c", "d", "e"}
	got, err := r.Resolve(context.Background(), ids)
	assert.ErrorIs(t, err, ErrDegraded)

	require.Len(t, got, 5)
	for id, rec := range got {
		assert.Equal(t, baseline.StatusUnknown, rec.Status, id)
	}

	// The first two failures open the breaker; the remaining batches are
	// rejected pre-flight without touching the network.
	assert.Equal(t, int32(2), requests.Load())
}

func TestResolveInvalidOnlyBatchSkipsNetwork(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	r := newTestResolver(testConfig(server.URL))

	got, err := r.Resolve(context.Background(), []string{"no spaces", "shell;injection", "ütf"})
	require.NoError(t, err, "no network failure happened, so no degradation signal")
	assert.Equal(t, int32(0), requests.Load())

	require.Len(t, got, 3)
	for id, rec := range got {
		assert.Equal(t, baseline.StatusUnknown, rec.Status, id)
	}
}

func TestResolveUsesCacheAcrossCalls(t *testing.T) {
	var requests atomic.Int32
	ok := statusHandler(map[string]string{"grid": "widely", "flexbox": "widely"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		ok.ServeHTTP(w, r)
	}))
	defer server.Close()

	r := newTestResolver(testConfig(server.URL))

	first, err := r.Resolve(context.Background(), []string{"grid", "flexbox"})
	require.NoError(t, err)
	require.Equal(t, int32(1), requests.Load())

	second, err := r.Resolve(context.Background(), []string{"grid", "flexbox"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), requests.Load(), "second resolve must be served from cache")
	assert.Equal(t, first, second)
}

func TestResolveContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	r := newTestResolver(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	got, err := r.Resolve(ctx, []string{"grid"})
	assert.ErrorIs(t, err, ErrDegraded)
	assert.Equal(t, baseline.StatusUnknown, got["grid"].Status)
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "id:grid", buildQuery([]string{"grid"}))
	assert.Equal(t, "id:grid OR id:flexbox", buildQuery([]string{"grid", "flexbox"}))
}

func TestBackoffDelayBounds(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := backoffDelay(httpBackoffBase, attempt)
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, maxBackoff)
	}
	for attempt := 0; attempt < 10; attempt++ {
		d := backoffDelay(netBackoffBase, attempt)
		assert.GreaterOrEqual(t, d, 250*time.Millisecond)
		assert.LessOrEqual(t, d, maxBackoff)
	}
}
