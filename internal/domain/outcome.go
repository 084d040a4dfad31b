package domain

// OutcomeKind says what an operation did to one statement line.
type OutcomeKind string

const (
	OutcomeApplied OutcomeKind = "applied"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// LineOutcome is the per-line result of confirm or cancel.
type LineOutcome struct {
	LineID      int64       `json:"line_id"`
	StatementID int64       `json:"statement_id"`
	Kind        OutcomeKind `json:"outcome"`
	State       LineState   `json:"state"`
	MoveIDs     []int64     `json:"move_ids,omitempty"`
	Reason      string      `json:"reason,omitempty"`
	Err         error       `json:"-"`
}

// BatchResult reports every line of a confirm or cancel call, in request order.
type BatchResult struct {
	Operation string        `json:"operation"`
	Outcomes  []LineOutcome `json:"outcomes"`
}

func NewBatchResult(op string, size int) *BatchResult {
	return &BatchResult{Operation: op, Outcomes: make([]LineOutcome, 0, size)}
}

func (r *BatchResult) Add(o LineOutcome) {
	r.Outcomes = append(r.Outcomes, o)
}

func (r *BatchResult) Applied() []int64 {
	return r.ids(OutcomeApplied)
}

func (r *BatchResult) Skipped() []int64 {
	return r.ids(OutcomeSkipped)
}

func (r *BatchResult) Failed() []LineOutcome {
	var out []LineOutcome
	for _, o := range r.Outcomes {
		if o.Kind == OutcomeFailed {
			out = append(out, o)
		}
	}
	return out
}

// MoveIDs returns the move ids of every applied line.
func (r *BatchResult) MoveIDs() []int64 {
	var ids []int64
	for _, o := range r.Outcomes {
		if o.Kind == OutcomeApplied {
			ids = append(ids, o.MoveIDs...)
		}
	}
	return ids
}

// Err returns a *BatchError wrapping every failed line, or nil.
func (r *BatchResult) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(failed))
	for _, o := range failed {
		errs = append(errs, o.Err)
	}
	return &BatchError{Operation: r.Operation, Errs: errs}
}

func (r *BatchResult) ids(kind OutcomeKind) []int64 {
	var ids []int64
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			ids = append(ids, o.LineID)
		}
	}
	return ids
}
