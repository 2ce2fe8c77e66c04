package resolver

import (
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// newHTTPClient builds the resty client used for authority requests.
// The retryablehttp transport provides connection pooling; the retry
// schedule itself is owned by the resolver, which needs class-dependent
// backoff and per-attempt breaker checks.
func newHTTPClient(cfg clientConfig) *resty.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil

	client := resty.New()
	client.
		SetTransport(retryClient.HTTPClient.Transport).
		SetTimeout(cfg.timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "baselinegate/1.0")

	return client
}

// newLimiter builds the request rate limiter. Zero or negative rps
// means unlimited.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
