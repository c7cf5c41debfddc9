package exporter

// State is a stage of the run lifecycle. Every run walks a linear path
// through these and terminates in StateLogged with exactly one outcome.
type State int

const (
	StateIdle State = iota
	StateWatermarkLoaded
	StateDataFetched
	StateDelivered
	StateNoDataNotified
	StateWatermarkUpdated
	StateUnchanged
	StateLogged
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatermarkLoaded:
		return "watermark_loaded"
	case StateDataFetched:
		return "data_fetched"
	case StateDelivered:
		return "delivered"
	case StateNoDataNotified:
		return "no_data_notified"
	case StateWatermarkUpdated:
		return "watermark_updated"
	case StateUnchanged:
		return "unchanged"
	case StateLogged:
		return "logged"
	default:
		return "unknown"
	}
}

// transitions is the set of legal state changes. Failure at any stage
// jumps straight to StateLogged with a failure outcome.
var transitions = map[State][]State{
	StateIdle:             {StateWatermarkLoaded, StateLogged},
	StateWatermarkLoaded:  {StateDataFetched, StateLogged},
	StateDataFetched:      {StateDelivered, StateNoDataNotified, StateLogged},
	StateDelivered:        {StateWatermarkUpdated, StateLogged},
	StateNoDataNotified:   {StateUnchanged},
	StateWatermarkUpdated: {StateLogged},
	StateUnchanged:        {StateLogged},
	StateLogged:           {StateIdle},
}

// canTransition reports whether from → to is a legal step.
func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
