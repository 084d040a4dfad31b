package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfirmedJournalEntry  = errors.New("confirmed journal entry")
	ErrConfirmedStatementLine = errors.New("confirmed statement line")

	ErrMoveProtected    = errors.New("journal entry is owned by a bank statement")
	ErrPostedMoveLocked = errors.New("journal does not allow cancelling posted entries")
	ErrPostedMoveDelete = errors.New("cannot delete a posted journal entry")
	ErrUnbalancedMove   = errors.New("journal entry is not balanced")
	ErrMissingCurrency  = errors.New("statement journal has no company currency")
)

// BusinessError is a rule violation meant to be shown to the user as is.
// It is never retried.
type BusinessError interface {
	error
	Title() string
}

// ConfirmedJournalEntryError is returned when cancelling a line whose
// journal entry has already been posted.
type ConfirmedJournalEntryError struct {
	LineID    int64
	LineName  string
	MoveID    int64
	MoveName  string
	MoveState MoveState
}

func (e *ConfirmedJournalEntryError) Title() string { return "Confirmed Journal Entry" }

func (e *ConfirmedJournalEntryError) Error() string {
	return fmt.Sprintf("You cannot delete a confirmed Statement Line associated to a Journal Entry that is posted: '%s' (entry %s)",
		e.LineName, e.MoveName)
}

func (e *ConfirmedJournalEntryError) Is(target error) bool {
	return target == ErrConfirmedJournalEntry
}

// ConfirmedStatementLineError is returned when deleting a confirmed line.
type ConfirmedStatementLineError struct {
	LineID   int64
	LineName string
}

func (e *ConfirmedStatementLineError) Title() string { return "Confirmed Statement Line" }

func (e *ConfirmedStatementLineError) Error() string {
	return fmt.Sprintf("You cannot delete a confirmed Statement Line: '%s'", e.LineName)
}

func (e *ConfirmedStatementLineError) Is(target error) bool {
	return target == ErrConfirmedStatementLine
}

// BatchError collects the per-line failures of one call.
type BatchError struct {
	Operation string
	Errs      []error
}

func (e *BatchError) Error() string {
	if len(e.Errs) == 1 {
		return e.Errs[0].Error()
	}
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%s failed for %d statement lines: %s", e.Operation, len(e.Errs), strings.Join(msgs, "; "))
}

func (e *BatchError) Unwrap() []error { return e.Errs }

// Title returns the common title of the wrapped business errors, or an
// empty string when they disagree.
func (e *BatchError) Title() string {
	title := ""
	for _, err := range e.Errs {
		var be BusinessError
		if !errors.As(err, &be) {
			return ""
		}
		if title != "" && title != be.Title() {
			return ""
		}
		title = be.Title()
	}
	return title
}

// AsBusinessError extracts the user-facing title and message from err.
func AsBusinessError(err error) (title, message string, ok bool) {
	var be BusinessError
	if !errors.As(err, &be) {
		return "", "", false
	}
	if be.Title() == "" {
		return "", "", false
	}
	return be.Title(), be.Error(), true
}
