package geocoding

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/clinic-finder/internal/geo"
)

type fakeClient struct {
	mu     sync.Mutex
	points map[string]geo.Point
	calls  map[string]int
}

func newFakeClient(points map[string]geo.Point) *fakeClient {
	return &fakeClient{points: points, calls: make(map[string]int)}
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Geocode(_ context.Context, address string) (geo.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[address]++
	p, ok := f.points[address]
	if !ok {
		return geo.Point{}, ErrNoResults
	}
	return p, nil
}

func (f *fakeClient) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type countingRecorder struct {
	mu sync.Mutex
	n  int
}

func (c *countingRecorder) Record(string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

var calle1 = geo.Point{Lat: -25.28, Lng: -57.63}

func TestResolve_CacheHitMakesNoRequest(t *testing.T) {
	client := newFakeClient(map[string]geo.Point{"Calle 1": calle1})
	r := NewResolver(client, NewCache(10, time.Hour), WithMinInterval(0))

	p, ok := r.Resolve(context.Background(), "Calle 1")
	require.True(t, ok)
	assert.Equal(t, calle1, p)

	p, ok = r.Resolve(context.Background(), "  calle 1 ")
	require.True(t, ok)
	assert.Equal(t, calle1, p)
	assert.Equal(t, 1, client.total())
}

func TestResolve_FailureIsAbsentAndNotRetried(t *testing.T) {
	client := newFakeClient(nil)
	r := NewResolver(client, nil, WithMinInterval(0))

	_, ok := r.Resolve(context.Background(), "Nowhere 123")
	assert.False(t, ok)
	assert.Equal(t, 1, client.total())

	_, ok = r.Resolve(context.Background(), "")
	assert.False(t, ok)
	assert.Equal(t, 1, client.total())
}

func TestResolveBatch_DeduplicatesAndSkipsFailures(t *testing.T) {
	client := newFakeClient(map[string]geo.Point{
		"Calle 1": calle1,
		"Ruta 2":  {Lat: -25.5, Lng: -54.6},
	})
	rec := &countingRecorder{}
	r := NewResolver(client, nil, WithMinInterval(0), WithWorkers(3), WithCallRecorder(rec))

	got := r.ResolveBatch(context.Background(), []string{"Calle 1", "calle  1", "Ruta 2", "Unknown", "Calle 1", ""})

	assert.Len(t, got, 3)
	assert.Equal(t, calle1, got["Calle 1"])
	assert.Equal(t, calle1, got["calle  1"])
	assert.NotContains(t, got, "Unknown")
	assert.Equal(t, 3, client.total())
	assert.Equal(t, 3, rec.n)
}

func TestResolveBatch_SpacesRequests(t *testing.T) {
	client := newFakeClient(map[string]geo.Point{"a": calle1, "b": calle1, "c": calle1})
	r := NewResolver(client, nil, WithMinInterval(30*time.Millisecond), WithWorkers(3))

	start := time.Now()
	got := r.ResolveBatch(context.Background(), []string{"a", "b", "c"})
	elapsed := time.Since(start)

	assert.Len(t, got, 3)
	assert.GreaterOrEqual(t, elapsed, 55*time.Millisecond)
}

func TestResolveBatch_CancelledContextReturnsPartial(t *testing.T) {
	client := newFakeClient(map[string]geo.Point{"a": calle1})
	r := NewResolver(client, nil, WithMinInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := r.ResolveBatch(ctx, []string{"a"})
	assert.Empty(t, got)
}

func TestCache_EntriesExpire(t *testing.T) {
	c := NewCache(10, 30*time.Millisecond)
	c.Set("Calle 1", calle1)

	p, ok := c.Get("CALLE 1")
	require.True(t, ok)
	assert.Equal(t, calle1, p)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get("Calle 1")
	assert.False(t, ok)
}
