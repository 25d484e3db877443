package clinic

import (
	"strings"

	"github.com/i474232898/clinic-finder/internal/common"
	"github.com/i474232898/clinic-finder/internal/geo"
)

// "All" sentinels sent by the filter dropdowns.
const (
	AllTreatments = "Todos los tratamientos"
	AllEquipment  = "Todos los equipos"
	AllCities     = "Todas las ciudades"
	AllNames      = "todas"
)

// KnownTreatments is the treatment catalogue offered when no clinic has
// treatments yet.
var KnownTreatments = []string{
	"Reduccion",
	"Tensando_Body",
	"Modelado",
	"Depilacion_Body",
	"Musculatura",
	"Drenaje_Body",
	"TX_Piel",
	"Vasculares_Body",
	"Tatuajes",
	"Gineco",
	"Tensado_Facial",
	"Fotoenv",
	"Pigmentarias",
	"Limpieza_Facial",
	"Lineas_exp",
	"Ojos",
	"Vasculares_Facial",
	"Cic_Acne",
	"Acne",
	"Drenaje_Facial",
	"Drug_Delivery",
	"Depilacion_Facial",
	"Celulitis",
}

// Filter narrows an already loaded list. Zero values and "all" sentinels
// disable the corresponding criterion.
type Filter struct {
	Treatment string
	Equipment string
	City      string
	Name      string
	// Search matches name or address, case-insensitively.
	Search string
}

// Apply returns the clinics matching every active criterion, preserving order.
func (f Filter) Apply(clinics []Clinic) []Clinic {
	out := make([]Clinic, 0, len(clinics))
	for _, c := range clinics {
		if f.matches(c) {
			out = append(out, c)
		}
	}
	return out
}

func (f Filter) matches(c Clinic) bool {
	if active(f.Treatment, AllTreatments) && !c.HasTreatment(f.Treatment) {
		return false
	}
	if active(f.Equipment, AllEquipment) && !contains(c.Equipment, f.Equipment) {
		return false
	}
	if active(f.City, AllCities) && c.City != f.City {
		return false
	}
	if active(f.Name, AllNames) && c.Name != f.Name {
		return false
	}
	if s := strings.TrimSpace(f.Search); s != "" && !common.ContainsFold(c.Name, s) && !common.ContainsFold(c.Address, s) {
		return false
	}
	return true
}

// FilterByTreatment is the pipeline's treatment filter step.
func FilterByTreatment(clinics []Clinic, treatment string) []Clinic {
	return Filter{Treatment: treatment}.Apply(clinics)
}

func active(v, all string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != all && !strings.EqualFold(v, "all")
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// UniqueTreatments returns the sorted distinct treatments of clinics.
func UniqueTreatments(clinics []Clinic) []string {
	set := make(map[string]struct{})
	for _, c := range clinics {
		for _, t := range c.Treatments {
			if t = strings.TrimSpace(t); t != "" {
				set[t] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

// TreatmentOptions is UniqueTreatments with the "all" entry first, falling
// back to the known catalogue when clinics carry no treatments.
func TreatmentOptions(clinics []Clinic) []string {
	found := UniqueTreatments(clinics)
	if len(found) == 0 {
		found = append([]string(nil), KnownTreatments...)
	}
	return append([]string{AllTreatments}, found...)
}

// UniqueEquipment returns the sorted distinct equipment of clinics.
func UniqueEquipment(clinics []Clinic) []string {
	set := make(map[string]struct{})
	for _, c := range clinics {
		for _, e := range c.Equipment {
			set[e] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// UniqueCities returns the sorted distinct non-empty cities of clinics.
func UniqueCities(clinics []Clinic) []string {
	set := make(map[string]struct{})
	for _, c := range clinics {
		if c.City != "" {
			set[c.City] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// CityOptions is UniqueCities with the "all" entry first, falling back to
// the known city list when no clinic reports a city.
func CityOptions(clinics []Clinic) []string {
	found := UniqueCities(clinics)
	if len(found) == 0 {
		found = geo.CityNames()
	}
	return append([]string{AllCities}, found...)
}

// UniqueClinicNames returns the sorted distinct trimmed clinic names.
func UniqueClinicNames(clinics []Clinic) []string {
	set := make(map[string]struct{})
	for _, c := range clinics {
		if n := strings.TrimSpace(c.Name); n != "" {
			set[n] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// TreatmentForDisplay replaces underscores with spaces.
func TreatmentForDisplay(treatment string) string {
	return strings.ReplaceAll(treatment, "_", " ")
}

// TreatmentForAPI turns display text back into a treatment tag.
func TreatmentForAPI(treatment string) string {
	return strings.Join(strings.Fields(treatment), "_")
}
