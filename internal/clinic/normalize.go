package clinic

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/i474232898/clinic-finder/internal/common"
	"github.com/i474232898/clinic-finder/internal/geo"
)

// Normalize turns one raw row into a Clinic. index is the zero-based row
// position and seeds the clinic ID. Rows without both a name and an address
// are rejected with a validation error.
func Normalize(row RawRow, index int, m Mapping) (Clinic, error) {
	name := strings.TrimSpace(row.cell(colName))
	address := strings.TrimSpace(row.cell(colAddress))
	if name == "" || address == "" {
		return Clinic{}, NewValidationError("row " + strconv.Itoa(index+1) + ": name and address are required")
	}

	equipment := common.SplitList(row.cell(colEquipment))
	treatments, unmapped := m.Resolve(equipment)
	for _, eq := range unmapped {
		log.Warn().Str("clinic", name).Str("equipment", eq).Msg("no treatments mapped for equipment")
	}

	c := Clinic{
		ID:         index + 1,
		Name:       name,
		Address:    address,
		Phone:      strings.TrimSpace(row.cell(colPhone)),
		WhatsApp:   strings.TrimSpace(row.cell(colWhatsApp)),
		Email:      strings.TrimSpace(row.cell(colEmail)),
		Hours:      strings.TrimSpace(row.cell(colHours)),
		City:       strings.TrimSpace(row.cell(colCity)),
		Equipment:  equipment,
		Treatments: treatments,
		MapsURL:    strings.TrimSpace(row.cell(colMapsURL)),
	}
	if c.Equipment == nil {
		c.Equipment = []string{}
	}
	c.Coordinates = parseCoordinates(row.cell(colLatitude), row.cell(colLongitude))
	return c, nil
}

// NormalizeRows normalizes every row and drops the invalid ones.
func NormalizeRows(rows []RawRow, m Mapping) []Clinic {
	out := make([]Clinic, 0, len(rows))
	for i, row := range rows {
		c, err := Normalize(row, i, m)
		if err != nil {
			log.Debug().Err(err).Msg("skipping invalid clinic row")
			continue
		}
		out = append(out, c)
	}
	return out
}

// parseCoordinates returns nil unless both cells parse as valid, non-zero
// degrees. A zero cell is the sheet's placeholder for "not geocoded yet".
func parseCoordinates(lat, lng string) *geo.Point {
	p, err := geo.ParsePoint(lat, lng)
	if err != nil || p.Lat == 0 || p.Lng == 0 {
		return nil
	}
	return &p
}

// cell returns the i-th cell as a string; missing cells are "".
func (r RawRow) cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	switch v := r[i].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
