package clinic

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/i474232898/clinic-finder/internal/common"
)

// DedupKey is the normalized (name, address) identity of a clinic.
func DedupKey(c Clinic) string {
	return common.NormalizeKey(c.Name) + "|||" + common.NormalizeKey(c.Address)
}

// Deduplicate collapses clinics sharing a DedupKey. Equipment and treatments
// become the union of every contributing record; every other field keeps
// the first record's value. Output follows first-occurrence order, with
// equipment and treatments sorted lexicographically.
func Deduplicate(clinics []Clinic) []Clinic {
	index := make(map[string]int, len(clinics))
	out := make([]Clinic, 0, len(clinics))

	for _, c := range clinics {
		key := DedupKey(c)
		if i, ok := index[key]; ok {
			out[i].Equipment = union(out[i].Equipment, c.Equipment)
			out[i].Treatments = union(out[i].Treatments, c.Treatments)
			continue
		}
		index[key] = len(out)
		first := c.clone()
		first.Equipment = union(nil, first.Equipment)
		first.Treatments = union(nil, first.Treatments)
		out = append(out, first)
	}

	if removed := len(clinics) - len(out); removed > 0 {
		log.Debug().Int("in", len(clinics)).Int("out", len(out)).Msg("merged duplicate clinics")
	}
	return out
}

// AssignIDs renumbers clinics from 1 in list order.
func AssignIDs(clinics []Clinic) {
	for i := range clinics {
		clinics[i].ID = i + 1
	}
}

// union merges b into a as a trimmed, de-duplicated, sorted set.
func union(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if v = strings.TrimSpace(v); v != "" {
				set[v] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
