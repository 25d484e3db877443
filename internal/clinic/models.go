package clinic

import (
	"time"

	"github.com/i474232898/clinic-finder/internal/geo"
)

// Column positions of a clinic row (sheet range A:K).
const (
	colName = iota
	colAddress
	colPhone
	colWhatsApp
	colEmail
	colHours
	colEquipment
	colLatitude
	colLongitude
	colCity
	colMapsURL
)

// RawRow is one spreadsheet row as returned by the row source. Cells are
// strings for live sheets and may be numbers when read back from JSON.
type RawRow []any

// Clinic is a normalized, deduplicated clinic record.
type Clinic struct {
	// ID is assigned per pipeline run and is not stable across runs.
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Phone      string   `json:"phone"`
	WhatsApp   string   `json:"whatsapp"`
	Email      string   `json:"email"`
	Hours      string   `json:"hours"`
	City       string   `json:"city"`
	Equipment  []string `json:"equipment"`
	Treatments []string `json:"treatments"`

	Coordinates *geo.Point `json:"coordinates,omitempty"`

	// DistanceKm is derived per query; nil means unknown.
	DistanceKm *float64 `json:"distanceKm,omitempty"`

	MapsURL string `json:"mapsUrl,omitempty"`
}

// HasCoordinates reports whether the clinic can be placed on a map.
func (c Clinic) HasCoordinates() bool {
	return c.Coordinates != nil
}

// HasTreatment reports whether treatment is offered. Tags compare exactly
// once whitespace runs and underscores are treated alike, so a display label
// matches its tag.
func (c Clinic) HasTreatment(treatment string) bool {
	want := TreatmentForAPI(treatment)
	for _, t := range c.Treatments {
		if TreatmentForAPI(t) == want {
			return true
		}
	}
	return false
}

// clone returns a copy that shares no slices or pointers with c.
func (c Clinic) clone() Clinic {
	out := c
	out.Equipment = cloneStrings(c.Equipment)
	out.Treatments = cloneStrings(c.Treatments)
	if c.Coordinates != nil {
		p := *c.Coordinates
		out.Coordinates = &p
	}
	if c.DistanceKm != nil {
		d := *c.DistanceKm
		out.DistanceKm = &d
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}

// CloneList deep-copies a clinic list.
func CloneList(in []Clinic) []Clinic {
	if in == nil {
		return nil
	}
	out := make([]Clinic, len(in))
	for i, c := range in {
		out[i] = c.clone()
	}
	return out
}

// Snapshot is the static JSON document produced by a full pipeline run.
// Its clinics use exactly the same schema as live results.
type Snapshot struct {
	GeneratedAt           time.Time `json:"generated_at"`
	RunID                 string    `json:"run_id,omitempty"`
	TotalClinics          int       `json:"total_clinics"`
	EquipmentTreatmentMap Mapping   `json:"equipment_treatment_map"`
	Clinics               []Clinic  `json:"clinics"`
}

// Query describes one LoadClinics call.
type Query struct {
	// Observer is the visitor location; nil when unknown.
	Observer *geo.Point
	// Treatment filters by treatment tag or its display label; empty or
	// AllTreatments means no filter.
	Treatment string
	// ForceRefresh skips cache reads and the snapshot (developer mode).
	ForceRefresh bool
}

// Result is what LoadClinics returns. Message is set when the list is empty
// because of a failure and is safe to show to visitors.
type Result struct {
	Clinics   []Clinic `json:"clinics"`
	Message   string   `json:"message,omitempty"`
	State     State    `json:"state"`
	FromCache bool     `json:"fromCache"`
	Source    string   `json:"source,omitempty"`
}

// Failed reports whether the run ended in the Error state.
func (r Result) Failed() bool {
	return r.State == StateError
}

// FindByID returns the clinic with id or ErrNotFound.
func FindByID(clinics []Clinic, id int) (Clinic, error) {
	for _, c := range clinics {
		if c.ID == id {
			return c.clone(), nil
		}
	}
	return Clinic{}, ErrNotFound
}
