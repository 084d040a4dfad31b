package domain

import "time"

// Company owns journals and carries the accounting currency.
type Company struct {
	ID         int64  `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	CurrencyID int64  `json:"currency_id" db:"currency_id"`
}

// Journal is the bank journal a statement is booked in.
type Journal struct {
	ID                     int64    `json:"id" db:"id"`
	Code                   string   `json:"code" db:"code"`
	Name                   string   `json:"name" db:"name"`
	CompanyID              int64    `json:"company_id" db:"company_id"`
	DefaultDebitAccountID  int64    `json:"default_debit_account_id" db:"default_debit_account_id"`
	DefaultCreditAccountID int64    `json:"default_credit_account_id" db:"default_credit_account_id"`
	UpdatePosted           bool     `json:"update_posted" db:"update_posted"`
	Company                *Company `json:"company,omitempty" db:"-"`
}

// BankStatement groups the lines imported from one bank extract.
type BankStatement struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	JournalID int64     `json:"journal_id" db:"journal_id"`
	Date      time.Time `json:"date" db:"date"`
	Journal   *Journal  `json:"journal,omitempty" db:"-"`
}

// CurrencyID resolves the currency moves are created in: the currency of
// the company owning the statement's journal. Zero when the statement was
// loaded without its journal and company.
func (s *BankStatement) CurrencyID() int64 {
	if s.Journal == nil || s.Journal.Company == nil {
		return 0
	}
	return s.Journal.Company.CurrencyID
}

// BankAccountID returns the journal account that receives the line amount.
func (s *BankStatement) BankAccountID(inflow bool) int64 {
	if s.Journal == nil {
		return 0
	}
	if inflow {
		return s.Journal.DefaultDebitAccountID
	}
	return s.Journal.DefaultCreditAccountID
}
