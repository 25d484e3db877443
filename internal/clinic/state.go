package clinic

// State is a step of the clinic loading pipeline.
type State string

const (
	StateIdle           State = "idle"
	StateLoadingMapping State = "loading_mapping"
	StateFetchingRows   State = "fetching_rows"
	StateNormalizing    State = "normalizing"
	StateGeocoding      State = "geocoding"
	StateDeduplicating  State = "deduplicating"
	StateFiltering      State = "filtering"
	StateRanking        State = "ranking"
	StateDone           State = "done"
	StateError          State = "error"
)

// pipelineOrder lists the non-terminal states in the only legal sequence.
var pipelineOrder = []State{
	StateIdle,
	StateLoadingMapping,
	StateFetchingRows,
	StateNormalizing,
	StateGeocoding,
	StateDeduplicating,
	StateFiltering,
	StateRanking,
	StateDone,
}

// canTransition allows one step forward, skipping steps the current source
// does not need (a snapshot has no mapping or rows to load), or a jump to Error.
func canTransition(from, to State) bool {
	if to == StateError {
		return from != StateDone && from != StateError
	}
	fi, ti := -1, -1
	for i, s := range pipelineOrder {
		if s == from {
			fi = i
		}
		if s == to {
			ti = i
		}
	}
	return fi >= 0 && ti > fi
}
