package clinic

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/i474232898/clinic-finder/internal/geo"
)

// Result sources.
const (
	SourceCache    = "cache"
	SourceSnapshot = "snapshot"
	SourceSheets   = "sheets"
)

// Service orchestrates loading, normalizing, geocoding, deduplicating,
// filtering and ranking clinics.
type Service struct {
	rows     RowSource
	snapshot SnapshotSource
	geocoder BatchGeocoder
	cache    ResultCache
	calls    CallRecorder
	now      func() time.Time

	// flight collapses concurrent runs for the same cache key.
	flight singleflight.Group
}

// Option configures optional collaborators of a Service.
type Option func(*Service)

// WithSnapshot enables the static snapshot fast path.
func WithSnapshot(src SnapshotSource) Option {
	return func(s *Service) { s.snapshot = src }
}

// WithGeocoder enables geocoding of clinics without coordinates.
func WithGeocoder(g BatchGeocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithCallRecorder counts row-source calls against the shared quota.
func WithCallRecorder(r CallRecorder) Option {
	return func(s *Service) { s.calls = r }
}

// WithClock overrides time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service. rows may be nil when only a snapshot is
// available; cache may be nil to disable result caching.
func NewService(rows RowSource, cache ResultCache, opts ...Option) *Service {
	s := &Service{
		rows:  rows,
		cache: cache,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CacheKey identifies a result by treatment and observer cell.
func CacheKey(treatment string, observer *geo.Point) string {
	t := "all"
	if active(treatment, AllTreatments) {
		t = TreatmentForAPI(treatment)
	}
	loc := "no-location"
	if observer != nil {
		loc = geo.CellKey(*observer)
	}
	return t + "-" + loc
}

// LoadClinics returns the clinics for q. It never returns an error: failures
// yield an empty list, State == StateError and a displayable Message.
func (s *Service) LoadClinics(ctx context.Context, q Query) Result {
	key := CacheKey(q.Treatment, q.Observer)

	if !q.ForceRefresh && s.cache != nil {
		if list, ok := s.cache.Get(key); ok {
			log.Debug().Str("key", key).Int("clinics", len(list)).Msg("serving clinics from result cache")
			return Result{Clinics: list, State: StateDone, FromCache: true, Source: SourceCache}
		}
	}

	flightKey := key
	if q.ForceRefresh {
		flightKey += "|refresh"
	}
	// The shared run outlives any single caller; each caller stops waiting
	// on its own context.
	ch := s.flight.DoChan(flightKey, func() (any, error) {
		return s.load(context.WithoutCancel(ctx), q, key), nil
	})
	select {
	case <-ctx.Done():
		err := NewUpstreamError("request cancelled while loading clinics", ctx.Err())
		log.Debug().Err(err).Str("key", key).Msg("caller stopped waiting for clinics")
		return Result{Clinics: []Clinic{}, Message: userMessage(err), State: StateError}
	case out := <-ch:
		res := out.Val.(Result)
		if out.Shared {
			res.Clinics = CloneList(res.Clinics)
		}
		return res
	}
}

// Rebuild runs the live pipeline without filtering or distances and returns
// a snapshot document.
func (s *Service) Rebuild(ctx context.Context) (*Snapshot, error) {
	r := newRun()
	clinics, mapping, err := s.build(ctx, r)
	if err != nil {
		r.fail(err)
		return nil, err
	}
	r.to(StateDone)

	return &Snapshot{
		GeneratedAt:           s.now().UTC(),
		RunID:                 r.id,
		TotalClinics:          len(clinics),
		EquipmentTreatmentMap: mapping,
		Clinics:               clinics,
	}, nil
}

func (s *Service) load(ctx context.Context, q Query, key string) Result {
	r := newRun()
	r.logger.Debug().
		Str("key", key).
		Bool("force_refresh", q.ForceRefresh).
		Msg("loading clinics")

	var (
		base   []Clinic
		source string
	)

	if !q.ForceRefresh && s.snapshot != nil {
		snap, err := s.snapshot.LoadSnapshot(ctx)
		switch {
		case err != nil:
			r.logger.Warn().Err(err).Msg("snapshot unavailable; falling back to live sheets")
		case snap == nil || len(snap.Clinics) == 0:
			r.logger.Warn().Msg("snapshot is empty; falling back to live sheets")
		default:
			base = CloneList(snap.Clinics)
			source = SourceSnapshot
			r.logger.Debug().
				Int("clinics", len(base)).
				Time("generated_at", snap.GeneratedAt).
				Msg("loaded clinics from snapshot")
		}
	}

	if base == nil {
		clinics, _, err := s.build(ctx, r)
		if err != nil {
			return r.fail(err)
		}
		base = clinics
		source = SourceSheets
	}

	r.to(StateFiltering)
	filtered := FilterByTreatment(base, q.Treatment)

	r.to(StateRanking)
	ApplyDistances(filtered, q.Observer)
	if q.Observer != nil {
		SortByDistance(filtered)
	}

	r.to(StateDone)
	if s.cache != nil {
		s.cache.Put(key, filtered)
	}

	r.logger.Info().
		Str("source", source).
		Str("treatment", q.Treatment).
		Int("clinics", len(filtered)).
		Msg("clinics loaded")

	return Result{Clinics: filtered, State: StateDone, Source: source}
}

// build runs LoadingMapping → FetchingRows → Normalizing → Geocoding →
// Deduplicating against the live row source.
func (s *Service) build(ctx context.Context, r *run) ([]Clinic, Mapping, error) {
	if s.rows == nil {
		return nil, nil, NewConfigurationError("no clinic row source configured")
	}

	r.to(StateLoadingMapping)
	s.record("sheets.mapping")
	mappingRows, err := s.rows.FetchMappingRows(ctx)
	if err != nil {
		return nil, nil, asUpstream("failed to load equipment-treatment mapping", err)
	}
	mapping := ParseMapping(mappingRows)
	if len(mapping) == 0 {
		r.logger.Warn().Msg("equipment-treatment mapping is empty; clinics will have no treatments")
	}

	r.to(StateFetchingRows)
	s.record("sheets.clinics")
	rows, err := s.rows.FetchClinicRows(ctx)
	if err != nil {
		return nil, nil, asUpstream("failed to load clinic rows", err)
	}
	if len(rows) == 0 {
		return nil, nil, NewUpstreamError("clinic sheet returned no rows", nil)
	}

	r.to(StateNormalizing)
	clinics := NormalizeRows(rows, mapping)
	r.logger.Debug().Int("rows", len(rows)).Int("valid", len(clinics)).Msg("normalized clinic rows")

	if err := ctx.Err(); err != nil {
		return nil, nil, NewUpstreamError("pipeline cancelled", err)
	}

	r.to(StateGeocoding)
	s.geocodeMissing(ctx, r, clinics)

	if err := ctx.Err(); err != nil {
		return nil, nil, NewUpstreamError("pipeline cancelled", err)
	}

	r.to(StateDeduplicating)
	clinics = Deduplicate(clinics)
	AssignIDs(clinics)

	return clinics, mapping, nil
}

func (s *Service) geocodeMissing(ctx context.Context, r *run, clinics []Clinic) {
	// Deduplicate keeps the first record's coordinates; later twins are skipped.
	firstSeen := make(map[string]struct{}, len(clinics))
	seen := make(map[string]struct{})
	var addresses []string
	for _, c := range clinics {
		key := DedupKey(c)
		if _, ok := firstSeen[key]; ok {
			continue
		}
		firstSeen[key] = struct{}{}
		if c.Coordinates != nil || c.Address == "" {
			continue
		}
		if _, ok := seen[c.Address]; ok {
			continue
		}
		seen[c.Address] = struct{}{}
		addresses = append(addresses, c.Address)
	}
	if len(addresses) == 0 {
		return
	}
	if s.geocoder == nil {
		r.logger.Debug().Int("addresses", len(addresses)).Msg("no geocoder configured; leaving coordinates absent")
		return
	}

	resolved := s.geocoder.ResolveBatch(ctx, addresses)
	for i := range clinics {
		if clinics[i].Coordinates != nil {
			continue
		}
		if _, asked := seen[clinics[i].Address]; !asked {
			continue
		}
		p, ok := resolved[clinics[i].Address]
		if !ok {
			r.logger.Warn().
				Err(NewGeocodeMissError(clinics[i].Address, nil)).
				Str("clinic", clinics[i].Name).
				Msg("clinic keeps absent coordinates")
			continue
		}
		clinics[i].Coordinates = &p
	}
	r.logger.Debug().
		Int("requested", len(addresses)).
		Int("resolved", len(resolved)).
		Msg("geocoding complete")
}

func (s *Service) record(op string) {
	if s.calls != nil {
		s.calls.Record(op)
	}
}

// asUpstream keeps classified errors and wraps everything else as upstream.
func asUpstream(message string, err error) error {
	if KindOf(err) != "" {
		return err
	}
	return NewUpstreamError(message, err)
}

// run tracks the state of one pipeline execution.
type run struct {
	id     string
	state  State
	logger zerolog.Logger
}

func newRun() *run {
	id := uuid.NewString()
	return &run{
		id:     id,
		state:  StateIdle,
		logger: log.With().Str("run_id", id).Logger(),
	}
}

func (r *run) to(next State) {
	if !canTransition(r.state, next) {
		r.logger.Error().
			Str("from", string(r.state)).
			Str("to", string(next)).
			Msg("illegal pipeline transition")
	}
	r.logger.Debug().Str("from", string(r.state)).Str("to", string(next)).Msg("pipeline step")
	r.state = next
}

func (r *run) fail(err error) Result {
	r.logger.Error().
		Err(err).
		Str("step", string(r.state)).
		Str("kind", string(KindOf(err))).
		Msg("clinic pipeline failed")
	r.to(StateError)
	return Result{
		Clinics: []Clinic{},
		Message: userMessage(err),
		State:   StateError,
	}
}
