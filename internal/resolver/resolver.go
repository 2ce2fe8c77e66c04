package resolver

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/baselinegate/baselinegate/internal/baseline"
	"github.com/baselinegate/baselinegate/internal/config"
	"github.com/baselinegate/baselinegate/internal/logging"
	"github.com/baselinegate/baselinegate/internal/monitoring"
	"github.com/baselinegate/baselinegate/internal/resilience"
)

// ErrDegraded signals that at least one batch degenerated to Unknown
// through authority failure. The result map is still fully populated;
// callers decide whether to surface this as a warning or abort.
var ErrDegraded = errors.New("status resolution degraded by authority failures")

const (
	httpBackoffBase = 1000 * time.Millisecond
	netBackoffBase  = 500 * time.Millisecond
	maxBackoff      = 8000 * time.Millisecond
)

// clientConfig carries the subset of resolver configuration the HTTP
// client construction needs.
type clientConfig struct {
	timeout time.Duration
}

// Resolver turns a set of feature identifiers into status records,
// guarding the external authority with a cache, a circuit breaker,
// class-dependent retries, and bounded batch concurrency. Each Resolver
// owns its own breaker and cache state, so independent instances can
// run in parallel.
type Resolver struct {
	cfg     config.ResolverConfig
	client  *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	cache   *baseline.Cache
	logger  *logging.Logger
	metrics *monitoring.Metrics

	// backoff bases are fixed by policy; overridable in tests.
	httpBackoff time.Duration
	netBackoff  time.Duration
}

// New creates a resolver with a fresh (closed) breaker and an empty cache.
func New(cfg config.ResolverConfig, logger *logging.Logger, metrics *monitoring.Metrics) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 3
	}

	breaker := resilience.New("status-authority", resilience.Settings{
		FailureThreshold: cfg.BreakerThreshold,
		Cooldown:         cfg.BreakerCooldown,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.RecordBreakerTransition(from.String(), to.String(), float64(to))
		},
	})

	return &Resolver{
		cfg:         cfg,
		client:      newHTTPClient(clientConfig{timeout: cfg.RequestTimeout}),
		limiter:     newLimiter(cfg.RatePerSecond),
		breaker:     breaker,
		cache:       baseline.NewCache(),
		logger:      logger,
		metrics:     metrics,
		httpBackoff: httpBackoffBase,
		netBackoff:  netBackoffBase,
	}
}

// Breaker exposes the resolver's circuit breaker for observability.
func (r *Resolver) Breaker() *resilience.Breaker {
	return r.breaker
}

// Resolve produces exactly one status record for every requested
// identifier. IDs the authority cannot vouch for resolve to Unknown,
// never to an omission. When any batch degrades through failure and the
// breaker still carries a non-zero failure count, the fully populated
// map is returned together with ErrDegraded.
func (r *Resolver) Resolve(ctx context.Context, ids []string) (map[string]baseline.StatusRecord, error) {
	results := make(map[string]baseline.StatusRecord, len(ids))

	var pending []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		if rec, ok := r.cache.Get(id); ok {
			r.metrics.RecordCache(true)
			results[id] = rec
			continue
		}
		r.metrics.RecordCache(false)
		pending = append(pending, id)
	}

	if len(pending) == 0 {
		return results, nil
	}

	var (
		mu         sync.Mutex
		anyFailure bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for start := 0; start < len(pending); start += r.cfg.BatchSize {
		end := min(start+r.cfg.BatchSize, len(pending))
		batch := pending[start:end]

		g.Go(func() error {
			recs, failed := r.resolveBatch(gctx, batch)

			mu.Lock()
			defer mu.Unlock()
			for id, rec := range recs {
				results[id] = rec
				r.cache.Put(id, rec)
			}
			if failed {
				anyFailure = true
			}
			return nil
		})
	}

	// Batch tasks degrade per-ID instead of failing the group.
	_ = g.Wait()

	if anyFailure && r.breaker.Failures() > 0 {
		return results, ErrDegraded
	}
	return results, nil
}

// resolveBatch resolves one batch, downgrading to Unknown on any
// failure. The returned flag distinguishes failure-driven Unknowns from
// plain absence of data.
func (r *Resolver) resolveBatch(ctx context.Context, ids []string) (map[string]baseline.StatusRecord, bool) {
	out := make(map[string]baseline.StatusRecord, len(ids))

	var valid []string
	for _, id := range ids {
		if baseline.ValidFeatureID(id) {
			valid = append(valid, id)
		} else {
			out[id] = baseline.StatusRecord{Status: baseline.StatusUnknown}
		}
	}

	// A batch with zero valid IDs fails immediately, no network call.
	if len(valid) == 0 {
		r.logger.Warn("batch contained no valid feature identifiers", zap.Int("size", len(ids)))
		return out, true
	}

	resp, err := r.fetchBatch(ctx, valid)
	if err != nil {
		for _, id := range valid {
			out[id] = baseline.StatusRecord{Status: baseline.StatusUnknown}
		}
		r.logger.Warn("batch degraded to unknown",
			zap.Int("features", len(valid)),
			zap.Error(err),
		)
		return out, true
	}

	byID := make(map[string]featureResult, len(resp.Data))
	for _, entry := range resp.Data {
		byID[entry.FeatureID] = entry
	}

	for _, id := range valid {
		if entry, ok := byID[id]; ok {
			out[id] = entry.record()
		} else {
			// Absent from the response is data absence, not an error.
			out[id] = baseline.StatusRecord{Status: baseline.StatusUnknown}
		}
	}
	return out, false
}

// fetchBatch performs one authority query with per-attempt breaker
// checks and class-dependent backoff: 429/5xx and network errors are
// transient, other 4xx and malformed bodies are permanent.
func (r *Resolver) fetchBatch(ctx context.Context, ids []string) (*statusResponse, error) {
	query := buildQuery(ids)

	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			r.metrics.RecordRetry()
		}

		if !r.breaker.Allow() {
			// Pre-flight rejection; not itself a new breaker failure.
			r.metrics.RecordOutcome("breaker_open")
			return nil, resilience.ErrCircuitOpen
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := r.client.R().
			SetContext(ctx).
			SetQueryParam("q", query).
			Get(r.cfg.Endpoint)
		r.metrics.RecordDuration(time.Since(start).Seconds())

		var backoffBase time.Duration
		switch {
		case err != nil:
			// Network error or per-request timeout: transient.
			r.breaker.RecordFailure()
			r.metrics.RecordOutcome("network_error")
			lastErr = fmt.Errorf("authority request failed: %w", err)
			backoffBase = r.netBackoff

		case resp.StatusCode() == 429 || resp.StatusCode() >= 500:
			r.breaker.RecordFailure()
			r.metrics.RecordOutcome("server_error")
			lastErr = fmt.Errorf("authority returned %d", resp.StatusCode())
			backoffBase = r.httpBackoff

		case resp.StatusCode() != 200:
			// Other 4xx: permanent, no retry.
			r.breaker.RecordFailure()
			r.metrics.RecordOutcome("client_error")
			return nil, fmt.Errorf("authority returned %d", resp.StatusCode())

		default:
			parsed, perr := parseResponse(resp.Body())
			if perr != nil {
				// A response that does not match the expected shape is
				// never partially trusted.
				r.breaker.RecordFailure()
				r.metrics.RecordOutcome("malformed")
				return nil, perr
			}
			r.breaker.RecordSuccess()
			r.metrics.RecordOutcome("success")
			return parsed, nil
		}

		if attempt >= r.cfg.MaxRetries {
			return nil, fmt.Errorf("retries exhausted: %w", lastErr)
		}
		if err := sleepBackoff(ctx, backoffBase, attempt); err != nil {
			return nil, lastErr
		}
	}
}

// buildQuery encodes a batch as OR'd id clauses.
func buildQuery(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "id:" + id
	}
	return strings.Join(parts, " OR ")
}

// backoffDelay computes the jittered exponential delay for an attempt.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := base << attempt
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}
	return d/2 + rand.N(d/2+1)
}

// sleepBackoff suspends only the calling batch; sibling batches keep
// running. Cancellation aborts the wait.
func sleepBackoff(ctx context.Context, base time.Duration, attempt int) error {
	timer := time.NewTimer(backoffDelay(base, attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
