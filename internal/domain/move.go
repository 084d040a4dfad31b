package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoveState is the lifecycle of a journal entry. Posting is done outside
// this service; here it is only read.
type MoveState string

const (
	MoveStateDraft  MoveState = "draft"
	MoveStatePosted MoveState = "posted"
)

// Move is a journal entry generated from a confirmed statement line.
type Move struct {
	ID              int64      `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Ref             *string    `json:"ref,omitempty" db:"ref"`
	JournalID       int64      `json:"journal_id" db:"journal_id"`
	StatementID     *int64     `json:"statement_id,omitempty" db:"statement_id"`
	StatementLineID *int64     `json:"statement_line_id,omitempty" db:"statement_line_id"`
	Date            time.Time  `json:"date" db:"date"`
	State           MoveState  `json:"state" db:"state"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	Lines           []MoveLine `json:"lines,omitempty" db:"-"`
}

// MoveLine is one debit or credit leg of a move.
type MoveLine struct {
	ID             int64           `json:"id" db:"id"`
	MoveID         int64           `json:"move_id" db:"move_id"`
	Name           string          `json:"name" db:"name"`
	AccountID      int64           `json:"account_id" db:"account_id"`
	PartnerID      *int64          `json:"partner_id,omitempty" db:"partner_id"`
	Debit          decimal.Decimal `json:"debit" db:"debit"`
	Credit         decimal.Decimal `json:"credit" db:"credit"`
	CurrencyID     int64           `json:"currency_id" db:"currency_id"`
	AmountCurrency decimal.Decimal `json:"amount_currency" db:"amount_currency"`
}

// IsDraft reports whether the entry can still be removed.
func (m *Move) IsDraft() bool {
	return m.State == MoveStateDraft
}

// IsOwnedByStatement is true for entries generated by a bank statement.
func (m *Move) IsOwnedByStatement() bool {
	return m.StatementLineID != nil || m.StatementID != nil
}

// IsBalanced reports whether total debit equals total credit.
func (m *Move) IsBalanced() bool {
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range m.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit.Equal(credit)
}

// MoveLinesFromLine builds the two legs booking a statement line: the bank
// account on one side, the line's counterpart account on the other.
func MoveLinesFromLine(st *BankStatement, line *StatementLine, currencyID int64) []MoveLine {
	amount := line.Amount.Abs()
	bank := MoveLine{
		Name:           line.Name,
		AccountID:      st.BankAccountID(line.IsInflow()),
		PartnerID:      line.PartnerID,
		Debit:          decimal.Zero,
		Credit:         decimal.Zero,
		CurrencyID:     currencyID,
		AmountCurrency: line.Amount,
	}
	counterpart := MoveLine{
		Name:           line.Name,
		AccountID:      line.AccountID,
		PartnerID:      line.PartnerID,
		Debit:          decimal.Zero,
		Credit:         decimal.Zero,
		CurrencyID:     currencyID,
		AmountCurrency: line.Amount.Neg(),
	}
	if line.IsInflow() {
		bank.Debit = amount
		counterpart.Credit = amount
	} else {
		bank.Credit = amount
		counterpart.Debit = amount
	}
	return []MoveLine{bank, counterpart}
}
