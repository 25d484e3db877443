package clinic

import (
	"sort"
	"strings"

	"github.com/i474232898/clinic-finder/internal/common"
)

// Mapping joins an exact, trimmed equipment name to its treatment tags.
type Mapping map[string][]string

// ParseMapping builds a Mapping from two-column rows:
// [equipment, "Treatment1, Treatment2"]. Rows missing either cell are skipped.
func ParseMapping(rows []RawRow) Mapping {
	m := make(Mapping, len(rows))
	for _, row := range rows {
		equipment := strings.TrimSpace(row.cell(0))
		treatments := common.SplitList(row.cell(1))
		if equipment == "" || len(treatments) == 0 {
			continue
		}
		m[equipment] = treatments
	}
	return m
}

// Resolve returns the sorted set of treatments reachable from equipment and
// the equipment names that have no entry. The treatment output does not
// depend on input order.
func (m Mapping) Resolve(equipment []string) (treatments []string, unmapped []string) {
	set := make(map[string]struct{})
	for _, eq := range equipment {
		eq = strings.TrimSpace(eq)
		if eq == "" {
			continue
		}
		tags, ok := m[eq]
		if !ok || len(tags) == 0 {
			unmapped = append(unmapped, eq)
			continue
		}
		for _, t := range tags {
			set[t] = struct{}{}
		}
	}
	return sortedKeys(set), unmapped
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
