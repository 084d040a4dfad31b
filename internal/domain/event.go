package domain

import "time"

// LineEventType names a statement line lifecycle change.
type LineEventType string

const (
	LineEventConfirmed LineEventType = "line.confirmed"
	LineEventCancelled LineEventType = "line.cancelled"
	LineEventDeleted   LineEventType = "line.deleted"
)

// LineEvent is published after the transaction that produced it commits.
type LineEvent struct {
	ID          string        `json:"id"`
	EventType   LineEventType `json:"event_type"`
	LineID      int64         `json:"line_id"`
	StatementID int64         `json:"statement_id"`
	State       LineState     `json:"state,omitempty"`
	MoveIDs     []int64       `json:"move_ids,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}
