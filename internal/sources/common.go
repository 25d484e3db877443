// Package sources holds the outbound adapters of the clinic pipeline: the
// Google Sheets row source, the geocoding clients and the snapshot file.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BackoffConfig controls exponential backoff between attempts.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles the HTTP client and its retry policy.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// noRetry is used by calls that must hit the upstream at most once.
var noRetry = BackoffConfig{MaxRetries: 0, InitialInterval: time.Millisecond}

// resilientGetter performs GET requests behind a circuit breaker with
// exponential backoff on 429 and 5xx responses.
type resilientGetter struct {
	cfg     HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func newResilientGetter(name string, client *http.Client, backoff BackoffConfig) *resilientGetter {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return &resilientGetter{
		cfg:     HTTPClientConfig{Client: client, Backoff: backoff},
		circuit: cb,
	}
}

// get returns a 2xx response; the caller must close its body.
func (g *resilientGetter) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if g.cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	b := g.cfg.Backoff
	if b.MaxRetries < 0 || b.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := g.circuit.Execute(func() (interface{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return nil, err
			}
			resp, err := g.cfg.Client.Do(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}

			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				return nil, errRateLimited
			case resp.StatusCode >= 500:
				return nil, errServerError
			default:
				return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
			}
		})
		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		// Client errors other than 429 will not improve on retry.
		if errors.Is(err, errUnexpected) || attempt >= b.MaxRetries {
			return nil, err
		}

		delay := b.InitialInterval * time.Duration(math.Pow(1.5, float64(attempt)))
		if b.MaxInterval > 0 && delay > b.MaxInterval {
			delay = b.MaxInterval
		}
		log.Debug().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("retrying upstream request")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
