package crawler

// State is the lifecycle position of a Crawler.
type State int32

const (
	StateIdle State = iota
	StateCrawling
	StateFiltering
	StateEnqueuing
	StateTraining
	StateFlushing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCrawling:
		return "crawling"
	case StateFiltering:
		return "filtering"
	case StateEnqueuing:
		return "enqueuing"
	case StateTraining:
		return "training"
	case StateFlushing:
		return "flushing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
