package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineState is the confirmation status of a bank statement line.
type LineState string

const (
	LineStateDraft     LineState = "draft"
	LineStateConfirmed LineState = "confirmed"
)

// IsValid reports whether s is one of the known states
func (s LineState) IsValid() bool {
	return s == LineStateDraft || s == LineStateConfirmed
}

// StatementLine is one transaction of a bank statement waiting to be reconciled.
type StatementLine struct {
	ID          int64           `json:"id" db:"id"`
	StatementID int64           `json:"statement_id" db:"statement_id"`
	Sequence    int             `json:"sequence" db:"sequence"`
	Name        string          `json:"name" db:"name"`
	Ref         *string         `json:"ref,omitempty" db:"ref"`
	Date        time.Time       `json:"date" db:"date"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	AccountID   int64           `json:"account_id" db:"account_id"`
	PartnerID   *int64          `json:"partner_id,omitempty" db:"partner_id"`
	State       LineState       `json:"state" db:"state"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`

	// MoveIDs is filled by the read side only.
	MoveIDs []int64 `json:"move_ids,omitempty" db:"-"`
}

// CanConfirm reports whether confirm has work to do for this line.
func (l *StatementLine) CanConfirm() bool {
	return l.State == LineStateDraft
}

// CanCancel reports whether cancel has work to do for this line.
func (l *StatementLine) CanCancel() bool {
	return l.State == LineStateConfirmed
}

// CanDelete reports whether the line may be removed from its statement.
func (l *StatementLine) CanDelete() bool {
	return l.State != LineStateConfirmed
}

// IsInflow is true when money came into the bank account.
func (l *StatementLine) IsInflow() bool {
	return l.Amount.IsPositive()
}
