package models

type OutcomeKind uint8

const (
	OutcomeOK OutcomeKind = iota
	OutcomeSkipped
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome records what happened to one record or settlement during a load
// or enrichment pass. Callers decide whether to log it.
type Outcome struct {
	ID     string
	Kind   OutcomeKind
	Reason string
}

func OK(id string) Outcome {
	return Outcome{ID: id, Kind: OutcomeOK}
}

func Skipped(id, reason string) Outcome {
	return Outcome{ID: id, Kind: OutcomeSkipped, Reason: reason}
}

func Failed(id, reason string) Outcome {
	return Outcome{ID: id, Kind: OutcomeFailed, Reason: reason}
}
