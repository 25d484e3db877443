package geocoding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/i474232898/clinic-finder/internal/geo"
)

// DefaultMinInterval is the minimum gap between two upstream requests.
const DefaultMinInterval = 100 * time.Millisecond

// ErrNoResults is returned by clients when an address matches nothing.
var ErrNoResults = errors.New("geocode: zero results")

// Client abstracts an upstream geocoding API (Google, kelvins, ...).
type Client interface {
	Name() string
	Geocode(ctx context.Context, address string) (geo.Point, error)
}

// CallRecorder counts upstream calls against a shared soft quota.
type CallRecorder interface {
	Record(op string) int
}

// Resolver resolves addresses through a Cache and a Client, spacing
// upstream requests by a global minimum interval.
type Resolver struct {
	client  Client
	cache   *Cache
	limiter *rate.Limiter
	workers int
	calls   CallRecorder
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMinInterval sets the minimum gap between upstream requests.
// Zero or less removes the limit.
func WithMinInterval(d time.Duration) Option {
	return func(r *Resolver) {
		if d <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		r.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithWorkers bounds how many addresses are resolved concurrently.
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithCallRecorder counts every upstream request.
func WithCallRecorder(c CallRecorder) Option {
	return func(r *Resolver) { r.calls = c }
}

// NewResolver creates a Resolver. A nil cache gets a default one.
func NewResolver(client Client, cache *Cache, opts ...Option) *Resolver {
	if cache == nil {
		cache = NewCache(0, DefaultCacheTTL)
	}
	r := &Resolver{
		client:  client,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Every(DefaultMinInterval), 1),
		workers: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the coordinates of address. A cache hit makes no request;
// a miss makes exactly one. Any failure yields ok == false and is logged.
func (r *Resolver) Resolve(ctx context.Context, address string) (geo.Point, bool) {
	address = strings.TrimSpace(address)
	if address == "" {
		return geo.Point{}, false
	}
	if p, ok := r.cache.Get(address); ok {
		return p, true
	}
	if r.client == nil {
		return geo.Point{}, false
	}

	if err := r.limiter.Wait(ctx); err != nil {
		log.Debug().Err(err).Str("address", address).Msg("geocode wait aborted")
		return geo.Point{}, false
	}
	if r.calls != nil {
		r.calls.Record("geocode")
	}

	p, err := r.client.Geocode(ctx, address)
	if err != nil {
		log.Warn().
			Err(err).
			Str("provider", r.client.Name()).
			Str("address", address).
			Msg("geocoding failed")
		return geo.Point{}, false
	}

	r.cache.Set(address, p)
	log.Debug().Str("address", address).Str("point", p.String()).Msg("geocoded address")
	return p, true
}

// ResolveBatch resolves many addresses. Addresses sharing a cache key cost a
// single lookup; failures are skipped. The result is keyed by the input
// strings and holds only successes.
func (r *Resolver) ResolveBatch(ctx context.Context, addresses []string) map[string]geo.Point {
	groups := make(map[string][]string)
	var order []string
	for _, a := range addresses {
		k := Key(a)
		if k == "" {
			continue
		}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], a)
	}

	var (
		mu      sync.Mutex
		results = make(map[string]geo.Point, len(addresses))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, k := range order {
		members := groups[k]
		g.Go(func() error {
			p, ok := r.Resolve(gctx, members[0])
			if !ok {
				return nil
			}
			mu.Lock()
			for _, m := range members {
				results[m] = p
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.Info().
		Int("addresses", len(order)).
		Int("resolved", len(results)).
		Msg("batch geocoding completed")
	return results
}
