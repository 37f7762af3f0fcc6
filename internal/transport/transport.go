// Package transport builds the HTTP client used for GitHub API calls.
package transport

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Options configures NewHTTPClient.
type Options struct {
	Timeout   time.Duration
	RateLimit float64 // requests per second; 0 disables pacing
	Burst     int     // defaults to 1

	// Wrap decorates the round tripper, e.g. with metrics instrumentation.
	Wrap func(http.RoundTripper) http.RoundTripper

	Base http.RoundTripper // defaults to http.DefaultTransport
}

// NewHTTPClient returns a client with a hard per-request timeout and optional pacing.
func NewHTTPClient(opts Options) *http.Client {
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}

	rt := base
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		rt = &rateLimited{limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), burst), next: rt}
	}
	if opts.Wrap != nil {
		rt = opts.Wrap(rt)
	}

	return &http.Client{Timeout: opts.Timeout, Transport: rt}
}

// rateLimited waits for a token before each request. Waiting honours the
// request context, so a per-call deadline also bounds the wait.
type rateLimited struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func (r *rateLimited) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := r.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return r.next.RoundTrip(req)
}
