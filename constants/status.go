package constants

// ProcessingStatus is the canonical lifecycle status for rows in documents.
type ProcessingStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending    ProcessingStatus = "PENDING"    // created at upload time
	StatusProcessing ProcessingStatus = "PROCESSING" // claimed by a pipeline invocation
	StatusCompleted  ProcessingStatus = "COMPLETED"  // terminal: artifact written, record persisted
	StatusFailed     ProcessingStatus = "FAILED"     // terminal: unrecovered stage error
)

// rank orders statuses along the only legal direction of travel.
var rank = map[ProcessingStatus]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusCompleted:  2,
	StatusFailed:     2,
}

// Valid reports whether s is one of the known statuses.
func (s ProcessingStatus) Valid() bool {
	_, ok := rank[s]
	return ok
}

// Terminal reports whether s admits no further transitions.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether from -> to is a legal forward transition.
// Statuses never revert and terminal statuses never move.
func CanTransition(from, to ProcessingStatus) bool {
	if !from.Valid() || !to.Valid() || from.Terminal() {
		return false
	}
	return rank[to] > rank[from]
}
