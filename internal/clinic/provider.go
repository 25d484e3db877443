package clinic

import (
	"context"

	"github.com/i474232898/clinic-finder/internal/geo"
)

// RowSource abstracts the live spreadsheet holding clinics and the
// equipment→treatment table.
type RowSource interface {
	FetchMappingRows(ctx context.Context) ([]RawRow, error)
	FetchClinicRows(ctx context.Context) ([]RawRow, error)
}

// SnapshotSource loads a previously generated snapshot.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
}

// BatchGeocoder resolves many addresses at once. The returned map holds only
// the addresses that resolved, keyed by the input string.
type BatchGeocoder interface {
	ResolveBatch(ctx context.Context, addresses []string) map[string]geo.Point
}

// ResultCache is the contract the in-memory result cache must satisfy.
type ResultCache interface {
	Get(key string) ([]Clinic, bool)
	Put(key string, clinics []Clinic)
}

// CallRecorder counts outbound calls against a soft quota.
type CallRecorder interface {
	Record(op string) int
}
