package unit

// State is a unit's position in its lifecycle.
type State int

const (
	Pending State = iota
	Submitted
	Running
	Done
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Submitted:
		return "submitted"
	case Running:
		return "running"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}
