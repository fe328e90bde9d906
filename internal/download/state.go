package download

// State is the phase of a Manager run.
type State int32

const (
	StateIdle State = iota
	StateResolving
	StateFetching
	StateAborting
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateFetching:
		return "fetching"
	case StateAborting:
		return "aborting"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}
