package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementLineTransitions(t *testing.T) {
	tests := []struct {
		name       string
		state      LineState
		canConfirm bool
		canCancel  bool
		canDelete  bool
	}{
		{name: "draft", state: LineStateDraft, canConfirm: true, canCancel: false, canDelete: true},
		{name: "confirmed", state: LineStateConfirmed, canConfirm: false, canCancel: true, canDelete: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &StatementLine{State: tt.state}
			assert.Equal(t, tt.canConfirm, l.CanConfirm())
			assert.Equal(t, tt.canCancel, l.CanCancel())
			assert.Equal(t, tt.canDelete, l.CanDelete())
		})
	}

	assert.False(t, LineState("posted").IsValid())
}

func TestMoveLinesFromLine(t *testing.T) {
	st := &BankStatement{
		ID:   1,
		Name: "BNK/2024/001",
		Journal: &Journal{
			DefaultDebitAccountID:  100,
			DefaultCreditAccountID: 101,
			Company:                &Company{CurrencyID: 7},
		},
	}

	t.Run("inflow debits the bank", func(t *testing.T) {
		line := &StatementLine{Name: "customer payment", Amount: decimal.RequireFromString("250.40"), AccountID: 400}
		legs := MoveLinesFromLine(st, line, st.CurrencyID())
		require.Len(t, legs, 2)

		assert.Equal(t, int64(100), legs[0].AccountID)
		assert.True(t, legs[0].Debit.Equal(decimal.RequireFromString("250.40")))
		assert.True(t, legs[0].Credit.IsZero())
		assert.Equal(t, int64(400), legs[1].AccountID)
		assert.True(t, legs[1].Credit.Equal(decimal.RequireFromString("250.40")))
		assert.Equal(t, int64(7), legs[1].CurrencyID)

		m := &Move{Lines: legs}
		assert.True(t, m.IsBalanced())
	})

	t.Run("outflow credits the bank", func(t *testing.T) {
		line := &StatementLine{Name: "supplier", Amount: decimal.RequireFromString("-80"), AccountID: 500}
		legs := MoveLinesFromLine(st, line, 7)

		assert.Equal(t, int64(101), legs[0].AccountID)
		assert.True(t, legs[0].Credit.Equal(decimal.NewFromInt(80)))
		assert.True(t, legs[1].Debit.Equal(decimal.NewFromInt(80)))
		assert.True(t, legs[0].AmountCurrency.Equal(decimal.NewFromInt(-80)))
	})
}

func TestBankStatementCurrencyWithoutJournal(t *testing.T) {
	st := &BankStatement{ID: 3}
	assert.Zero(t, st.CurrencyID())
	assert.Zero(t, st.BankAccountID(true))
}

func TestBusinessErrors(t *testing.T) {
	jeErr := &ConfirmedJournalEntryError{LineID: 4, LineName: "L2", MoveID: 9, MoveName: "BNK/1/2", MoveState: MoveStatePosted}
	slErr := &ConfirmedStatementLineError{LineID: 5, LineName: "L5"}

	assert.ErrorIs(t, jeErr, ErrConfirmedJournalEntry)
	assert.NotErrorIs(t, jeErr, ErrConfirmedStatementLine)
	assert.ErrorIs(t, fmt.Errorf("cancel: %w", slErr), ErrConfirmedStatementLine)
	assert.Contains(t, slErr.Error(), "'L5'")

	title, msg, ok := AsBusinessError(fmt.Errorf("wrapped: %w", jeErr))
	require.True(t, ok)
	assert.Equal(t, "Confirmed Journal Entry", title)
	assert.Contains(t, msg, "'L2'")

	_, _, ok = AsBusinessError(errors.New("boom"))
	assert.False(t, ok)
}

func TestBatchResult(t *testing.T) {
	r := NewBatchResult("cancel", 3)
	r.Add(LineOutcome{LineID: 1, Kind: OutcomeApplied, MoveIDs: []int64{10}})
	r.Add(LineOutcome{LineID: 2, Kind: OutcomeSkipped})
	assert.NoError(t, r.Err())

	r.Add(LineOutcome{LineID: 3, Kind: OutcomeFailed, Err: &ConfirmedJournalEntryError{LineID: 3, LineName: "L3"}})
	r.Add(LineOutcome{LineID: 4, Kind: OutcomeFailed, Err: &ConfirmedJournalEntryError{LineID: 4, LineName: "L4"}})

	assert.Equal(t, []int64{1}, r.Applied())
	assert.Equal(t, []int64{2}, r.Skipped())
	assert.Equal(t, []int64{10}, r.MoveIDs())

	err := r.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfirmedJournalEntry)
	assert.Contains(t, err.Error(), "'L3'")
	assert.Contains(t, err.Error(), "'L4'")

	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "Confirmed Journal Entry", be.Title())
	assert.Len(t, be.Errs, 2)
}

func TestBatchErrorMixedTitles(t *testing.T) {
	be := &BatchError{Operation: "x", Errs: []error{
		&ConfirmedJournalEntryError{LineName: "a"},
		&ConfirmedStatementLineError{LineName: "b"},
	}}
	assert.Empty(t, be.Title())

	_, _, ok := AsBusinessError(be)
	assert.False(t, ok)
}
