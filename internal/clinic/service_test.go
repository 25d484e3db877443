package clinic

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/clinic-finder/internal/geo"
)

type fakeRows struct {
	mapping    []RawRow
	clinics    []RawRow
	mappingErr error
	clinicErr  error
	delay      time.Duration
	calls      int32
}

func (f *fakeRows) FetchMappingRows(ctx context.Context) ([]RawRow, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.mapping, f.mappingErr
}

func (f *fakeRows) FetchClinicRows(ctx context.Context) ([]RawRow, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.clinics, f.clinicErr
}

func (f *fakeRows) runs() int {
	return int(atomic.LoadInt32(&f.calls))
}

type fakeSnapshot struct {
	snap *Snapshot
	err  error
}

func (f *fakeSnapshot) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	return f.snap, f.err
}

type fakeGeocoder struct {
	points map[string]geo.Point
	asked  []string
}

func (f *fakeGeocoder) ResolveBatch(ctx context.Context, addresses []string) map[string]geo.Point {
	f.asked = append(f.asked, addresses...)
	out := make(map[string]geo.Point)
	for _, a := range addresses {
		if p, ok := f.points[a]; ok {
			out[a] = p
		}
	}
	return out
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]Clinic
	puts int
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]Clinic)}
}

func (m *mapCache) Get(key string) ([]Clinic, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return CloneList(v), ok
}

func (m *mapCache) Put(key string, clinics []Clinic) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.data[key] = CloneList(clinics)
}

type countingRecorder struct {
	ops []string
}

func (c *countingRecorder) Record(op string) int {
	c.ops = append(c.ops, op)
	return len(c.ops)
}

func scenarioRows() *fakeRows {
	return &fakeRows{
		mapping: []RawRow{
			{"Laser1", "T1"},
			{"Laser2", "T2"},
			{"Laser3", "T1, T3"},
		},
		clinics: []RawRow{
			{"Clinica X", "Calle 1", "", "", "", "", "Laser1, Laser2", "-25.5095", "-54.6112"},
			{"clinica x", "calle 1", "", "", "", "", "Laser3"},
			{"Clinica SL", "Calle 2", "", "", "", "", "Laser2", "-25.3432", "-57.5084"},
			{"Sin Coordenadas", "Calle 3", "", "", "", "", "Laser3"},
		},
	}
}

func TestLoadClinics_MergesDuplicates(t *testing.T) {
	rows := scenarioRows()
	svc := NewService(rows, nil)

	res := svc.LoadClinics(context.Background(), Query{})
	require.Equal(t, StateDone, res.State)
	assert.Empty(t, res.Message)
	assert.Equal(t, SourceSheets, res.Source)
	require.Len(t, res.Clinics, 3)

	x := res.Clinics[0]
	assert.Equal(t, 1, x.ID)
	assert.Equal(t, "Clinica X", x.Name)
	assert.Equal(t, []string{"Laser1", "Laser2", "Laser3"}, x.Equipment)
	assert.Equal(t, []string{"T1", "T2", "T3"}, x.Treatments)
	for _, c := range res.Clinics {
		assert.Nil(t, c.DistanceKm, "no observer means unknown distances")
	}
	assert.Equal(t, []int{1, 2, 3}, ids(res.Clinics))
}

func TestLoadClinics_RanksByDistance(t *testing.T) {
	svc := NewService(scenarioRows(), nil)
	obs := asuncion

	res := svc.LoadClinics(context.Background(), Query{Observer: &obs})
	require.Equal(t, StateDone, res.State)
	require.Len(t, res.Clinics, 3)

	assert.Equal(t, "Clinica SL", res.Clinics[0].Name)
	assert.Equal(t, 11.1, *res.Clinics[0].DistanceKm)
	assert.Equal(t, "Clinica X", res.Clinics[1].Name)
	assert.InDelta(t, 299.1, *res.Clinics[1].DistanceKm, 0.05)
	assert.Equal(t, "Sin Coordenadas", res.Clinics[2].Name)
	assert.Nil(t, res.Clinics[2].DistanceKm)
}

func TestLoadClinics_FiltersByTreatment(t *testing.T) {
	svc := NewService(scenarioRows(), nil)

	res := svc.LoadClinics(context.Background(), Query{Treatment: "T3"})
	require.Equal(t, StateDone, res.State)
	names := []string{}
	for _, c := range res.Clinics {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Clinica X", "Sin Coordenadas"}, names)
}

func TestLoadClinics_GeocodesMissingCoordinates(t *testing.T) {
	g := &fakeGeocoder{points: map[string]geo.Point{"Calle 3": asuncion}}
	svc := NewService(scenarioRows(), nil, WithGeocoder(g))
	obs := asuncion

	res := svc.LoadClinics(context.Background(), Query{Observer: &obs})
	require.Equal(t, StateDone, res.State)
	assert.Equal(t, []string{"Calle 3"}, g.asked, "the twin of a located clinic is not geocoded")
	assert.Equal(t, "Sin Coordenadas", res.Clinics[0].Name)
	assert.Equal(t, 0.0, *res.Clinics[0].DistanceKm)
}

func TestLoadClinics_ErrorYieldsEmptyListAndMessage(t *testing.T) {
	cases := []struct {
		name string
		rows *fakeRows
	}{
		{"clinic fetch fails", &fakeRows{mapping: []RawRow{{"Laser1", "T1"}}, clinicErr: errors.New("connection refused")}},
		{"mapping fetch fails", &fakeRows{mappingErr: errors.New("timeout")}},
		{"no rows", &fakeRows{mapping: []RawRow{{"Laser1", "T1"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := NewService(tc.rows, newMapCache()).LoadClinics(context.Background(), Query{})
			assert.Equal(t, StateError, res.State)
			assert.True(t, res.Failed())
			assert.NotNil(t, res.Clinics)
			assert.Empty(t, res.Clinics)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestLoadClinics_NoRowSourceIsConfigurationError(t *testing.T) {
	res := NewService(nil, nil).LoadClinics(context.Background(), Query{})
	assert.Equal(t, StateError, res.State)
	assert.Contains(t, res.Message, "not configured")
}

func TestLoadClinics_FailureIsNotCached(t *testing.T) {
	cache := newMapCache()
	rows := &fakeRows{clinicErr: errors.New("down")}
	svc := NewService(rows, cache)

	svc.LoadClinics(context.Background(), Query{})
	assert.Zero(t, cache.puts)
}

func TestLoadClinics_CacheHit(t *testing.T) {
	rows := scenarioRows()
	cache := newMapCache()
	svc := NewService(rows, cache)
	obs := asuncion

	first := svc.LoadClinics(context.Background(), Query{Observer: &obs})
	require.False(t, first.FromCache)

	// A nearby observer falls in the same cell.
	near := geo.Point{Lat: -25.26375, Lng: -57.57595}
	second := svc.LoadClinics(context.Background(), Query{Observer: &near})
	assert.True(t, second.FromCache)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, first.Clinics, second.Clinics)
	assert.Equal(t, 1, rows.runs())

	// A different treatment is a different key.
	svc.LoadClinics(context.Background(), Query{Observer: &obs, Treatment: "T1"})
	assert.Equal(t, 2, rows.runs())
}

func TestLoadClinics_ForceRefreshBypassesAndRewritesCache(t *testing.T) {
	rows := scenarioRows()
	cache := newMapCache()
	svc := NewService(rows, cache)

	svc.LoadClinics(context.Background(), Query{})
	rows.clinics = rows.clinics[:1]

	res := svc.LoadClinics(context.Background(), Query{ForceRefresh: true})
	assert.False(t, res.FromCache)
	assert.Len(t, res.Clinics, 1)
	assert.Equal(t, 2, rows.runs())

	cached := svc.LoadClinics(context.Background(), Query{})
	assert.True(t, cached.FromCache)
	assert.Len(t, cached.Clinics, 1)
}

func TestLoadClinics_SnapshotFastPath(t *testing.T) {
	rows := scenarioRows()
	cde := ciudadDelEte
	snap := &fakeSnapshot{snap: &Snapshot{Clinics: []Clinic{
		{ID: 1, Name: "Snap", Address: "Calle 9", Treatments: []string{"T1"}, Coordinates: &cde},
	}}}
	svc := NewService(rows, nil, WithSnapshot(snap))
	obs := asuncion

	res := svc.LoadClinics(context.Background(), Query{Observer: &obs})
	require.Equal(t, StateDone, res.State)
	assert.Equal(t, SourceSnapshot, res.Source)
	require.Len(t, res.Clinics, 1)
	assert.InDelta(t, 299.1, *res.Clinics[0].DistanceKm, 0.05)
	assert.Zero(t, rows.runs())
	assert.Nil(t, snap.snap.Clinics[0].DistanceKm, "snapshot must not be mutated")

	forced := svc.LoadClinics(context.Background(), Query{ForceRefresh: true})
	assert.Equal(t, SourceSheets, forced.Source)
	assert.Equal(t, 1, rows.runs())
}

func TestLoadClinics_SnapshotFallsBackToSheets(t *testing.T) {
	for _, snap := range []*fakeSnapshot{
		{err: errors.New("missing")},
		{snap: &Snapshot{}},
	} {
		rows := scenarioRows()
		res := NewService(rows, nil, WithSnapshot(snap)).LoadClinics(context.Background(), Query{})
		assert.Equal(t, SourceSheets, res.Source)
		assert.Len(t, res.Clinics, 3)
	}
}

func TestLoadClinics_ConcurrentCallsShareOneRun(t *testing.T) {
	rows := scenarioRows()
	rows.delay = 50 * time.Millisecond
	svc := NewService(rows, newMapCache())

	var wg sync.WaitGroup
	results := make([]Result, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.LoadClinics(context.Background(), Query{})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, rows.runs())
	for _, r := range results {
		assert.Equal(t, StateDone, r.State)
		assert.Len(t, r.Clinics, 3)
	}
}

func TestLoadClinics_RecordsSourceCalls(t *testing.T) {
	rec := &countingRecorder{}
	svc := NewService(scenarioRows(), nil, WithCallRecorder(rec))
	svc.LoadClinics(context.Background(), Query{})
	assert.Equal(t, []string{"sheets.mapping", "sheets.clinics"}, rec.ops)
}

func TestRebuild(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.FixedZone("PYT", -3*3600))
	svc := NewService(scenarioRows(), nil, WithClock(func() time.Time { return at }))

	snap, err := svc.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at.UTC(), snap.GeneratedAt)
	assert.NotEmpty(t, snap.RunID)
	assert.Equal(t, 3, snap.TotalClinics)
	assert.Len(t, snap.Clinics, 3)
	assert.Equal(t, []string{"T1", "T3"}, snap.EquipmentTreatmentMap["Laser3"])
	for _, c := range snap.Clinics {
		assert.Nil(t, c.DistanceKm)
	}
}

func TestRebuild_Error(t *testing.T) {
	svc := NewService(&fakeRows{mappingErr: errors.New("down")}, nil)
	_, err := svc.Rebuild(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUpstream))
}

func TestCacheKey(t *testing.T) {
	obs := asuncion
	assert.Equal(t, "all-no-location", CacheKey("", nil))
	assert.Equal(t, "all-no-location", CacheKey(AllTreatments, nil))
	assert.Equal(t, "Depilacion_Body-"+geo.CellKey(obs), CacheKey("Depilacion Body", &obs))
}

func TestLoadClinics_GeocodesOnlyFirstOfDuplicateGroup(t *testing.T) {
	rows := &fakeRows{
		mapping: []RawRow{{"Laser1", "T1"}},
		clinics: []RawRow{
			{"Clinica X", "Calle 1 ", "", "", "", "", "Laser1"},
			{"clinica x", "calle 1", "", "", "", "", "Laser1", "-25.5095", "-54.6112"},
			{"CLINICA X", "CALLE 1", "", "", "", "", "Laser1"},
		},
	}
	g := &fakeGeocoder{points: map[string]geo.Point{"Calle 1": asuncion}}
	svc := NewService(rows, nil, WithGeocoder(g))

	res := svc.LoadClinics(context.Background(), Query{})
	require.Equal(t, StateDone, res.State)
	require.Len(t, res.Clinics, 1)
	assert.Equal(t, []string{"Calle 1"}, g.asked)
	require.NotNil(t, res.Clinics[0].Coordinates)
	assert.Equal(t, asuncion, *res.Clinics[0].Coordinates, "first record wins for coordinates")
}

func TestLoadClinics_TreatmentTagWithSpaces(t *testing.T) {
	rows := &fakeRows{
		mapping: []RawRow{{"Laser1", "Depilacion Body, T2"}},
		clinics: []RawRow{
			{"Clinica X", "Calle 1", "", "", "", "", "Laser1"},
			{"Clinica Y", "Calle 2", "", "", "", "", "Laser9"},
		},
	}
	svc := NewService(rows, newMapCache())

	for _, treatment := range []string{"Depilacion Body", "Depilacion_Body", " Depilacion  Body "} {
		res := svc.LoadClinics(context.Background(), Query{Treatment: treatment})
		require.Equal(t, StateDone, res.State, treatment)
		require.Len(t, res.Clinics, 1, treatment)
		assert.Equal(t, "Clinica X", res.Clinics[0].Name)
	}
	assert.Equal(t, 1, rows.runs(), "label and tag share one cache entry")
}

func TestLoadClinics_CancelledCallerDoesNotFailOthers(t *testing.T) {
	rows := scenarioRows()
	rows.delay = 100 * time.Millisecond
	svc := NewService(rows, newMapCache())

	impatient, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	var (
		wg       sync.WaitGroup
		gaveUp   Result
		patience Result
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		gaveUp = svc.LoadClinics(impatient, Query{})
	}()
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		patience = svc.LoadClinics(context.Background(), Query{})
	}()
	wg.Wait()

	assert.Equal(t, StateError, gaveUp.State)
	assert.NotEmpty(t, gaveUp.Message)
	assert.Empty(t, gaveUp.Clinics)

	assert.Equal(t, StateDone, patience.State)
	assert.Len(t, patience.Clinics, 3)
	assert.Equal(t, 1, rows.runs())
}

func TestLoadClinics_RunCompletesAfterSoleCallerLeaves(t *testing.T) {
	rows := scenarioRows()
	rows.delay = 50 * time.Millisecond
	cache := newMapCache()
	svc := NewService(rows, cache)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	res := svc.LoadClinics(ctx, Query{})
	assert.Equal(t, StateError, res.State)

	assert.Eventually(t, func() bool {
		_, ok := cache.Get(CacheKey("", nil))
		return ok
	}, time.Second, 10*time.Millisecond)
}
