package fetch

// State is a step of the retry state machine:
//
//	Attempting -> TimedOut -> Retrying -> Attempting ...
//	                       -> Exhausted -> EmergencyFetch -> Done
//	Attempting -> Done (completed, or failed without hope of a retry)
type State int

const (
	Attempting State = iota
	TimedOut
	Retrying
	Exhausted
	EmergencyFetch
	Done
)

func (s State) String() string {
	switch s {
	case Attempting:
		return "attempting"
	case TimedOut:
		return "timed_out"
	case Retrying:
		return "retrying"
	case Exhausted:
		return "exhausted"
	case EmergencyFetch:
		return "emergency_fetch"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}
