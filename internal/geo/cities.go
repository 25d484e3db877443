package geo

import (
	"sort"
	"strings"
)

// City is a named centroid, used when the visitor picks a city instead of
// sharing their location.
type City struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	Point      Point  `json:"point"`
}

var paraguayCities = []City{
	{"Asunción", "Capital", Point{-25.2637, -57.5759}},
	{"Ciudad del Este", "Alto Paraná", Point{-25.5095, -54.6112}},
	{"San Lorenzo", "Central", Point{-25.3432, -57.5084}},
	{"Luque", "Central", Point{-25.2663, -57.4919}},
	{"Capiatá", "Central", Point{-25.3553, -57.4456}},
	{"Lambaré", "Central", Point{-25.3424, -57.6084}},
	{"Fernando de la Mora", "Central", Point{-25.3188, -57.5194}},
	{"Limpio", "Central", Point{-25.1672, -57.4906}},
	{"Ñemby", "Central", Point{-25.3936, -57.5364}},
	{"Villa Elisa", "Central", Point{-25.3731, -57.5928}},
	{"Encarnación", "Itapúa", Point{-27.3378, -55.8683}},
	{"Pedro Juan Caballero", "Amambay", Point{-22.5486, -55.7322}},
	{"Coronel Oviedo", "Caaguazú", Point{-25.4472, -56.4406}},
	{"Concepción", "Concepción", Point{-23.4078, -57.4339}},
	{"Villarrica", "Guairá", Point{-25.7814, -56.4442}},
	{"Paraguarí", "Paraguarí", Point{-25.6317, -57.1456}},
	{"Caacupé", "Cordillera", Point{-25.3861, -57.1406}},
	{"Pilar", "Ñeembucú", Point{-26.8653, -58.2994}},
	{"Caazapá", "Caazapá", Point{-26.1953, -56.3717}},
	{"San Juan Bautista", "Misiones", Point{-26.6689, -57.1464}},
	{"Salto del Guairá", "Canindeyú", Point{-24.0631, -54.3067}},
	{"Hernandarias", "Alto Paraná", Point{-25.4056, -54.6394}},
	{"Itauguá", "Central", Point{-25.3942, -57.3533}},
	{"Mariano Roque Alonso", "Central", Point{-25.2042, -57.5347}},
	{"Villa Hayes", "Presidente Hayes", Point{-25.0947, -57.5264}},
	{"Presidente Franco", "Alto Paraná", Point{-25.5261, -54.6069}},
	{"Areguá", "Central", Point{-25.3075, -57.3908}},
	{"Ypané", "Central", Point{-25.1944, -57.5036}},
	{"Guarambaré", "Central", Point{-25.4892, -57.4525}},
	{"Itá", "Central", Point{-25.5069, -57.3586}},
}

// CityCentroid looks a city up by name, case-insensitively.
func CityCentroid(name string) (Point, bool) {
	name = strings.TrimSpace(name)
	for _, c := range paraguayCities {
		if strings.EqualFold(c.Name, name) {
			return c.Point, true
		}
	}
	return Point{}, false
}

// CityNames returns every known city name, sorted.
func CityNames() []string {
	names := make([]string, 0, len(paraguayCities))
	for _, c := range paraguayCities {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// CitiesInDepartment returns the sorted city names of one department,
// matched case-insensitively.
func CitiesInDepartment(department string) []string {
	var names []string
	for _, c := range paraguayCities {
		if strings.EqualFold(c.Department, strings.TrimSpace(department)) {
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Departments returns the sorted, distinct department names.
func Departments() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range paraguayCities {
		if _, ok := seen[c.Department]; ok {
			continue
		}
		seen[c.Department] = struct{}{}
		out = append(out, c.Department)
	}
	sort.Strings(out)
	return out
}
