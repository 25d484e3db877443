package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/clinic-finder/internal/clinic"
	"github.com/i474232898/clinic-finder/internal/geo"
)

func TestFileSnapshot_WriteThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "clinics.json")
	fs := NewFileSnapshot(path)

	snap := &clinic.Snapshot{
		GeneratedAt:           time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		RunID:                 "run-1",
		TotalClinics:          1,
		EquipmentTreatmentMap: clinic.Mapping{"Laser1": {"T1"}},
		Clinics: []clinic.Clinic{{
			ID: 1, Name: "Clinica X", Address: "Calle 1",
			Equipment: []string{"Laser1"}, Treatments: []string{"T1"},
			Coordinates: &geo.Point{Lat: -25.2637, Lng: -57.5759},
		}},
	}
	require.NoError(t, fs.WriteSnapshot(snap))

	got, err := fs.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.GeneratedAt, got.GeneratedAt)
	assert.Equal(t, snap.Clinics, got.Clinics)
	assert.Equal(t, []string{"T1"}, got.EquipmentTreatmentMap["Laser1"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestFileSnapshot_Missing(t *testing.T) {
	fs := NewFileSnapshot(filepath.Join(t.TempDir(), "none.json"))
	_, err := fs.LoadSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrSnapshotMissing)
}

func TestFileSnapshot_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinics.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := NewFileSnapshot(path).LoadSnapshot(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSnapshotMissing)
}
