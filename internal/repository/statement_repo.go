package repository

import (
	"context"
	"errors"
	"fmt"

	"statement-line-service/internal/domain"
	"statement-line-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatementRepository is the bank statement side of line confirmation: it
// numbers lines and books their journal entries.
type StatementRepository interface {
	GetByID(ctx context.Context, tx pgx.Tx, id int64) (*domain.BankStatement, error)
	NextLineNumber(ctx context.Context, tx pgx.Tx, statementName string, line *domain.StatementLine) (string, error)
	CreateMoveFromLine(ctx context.Context, tx pgx.Tx, lineID, currencyID int64, lineNumber string, origin domain.Origin) (*domain.Move, error)
}

type statementRepo struct {
	db *pgxpool.Pool
}

func NewStatementRepo(db *pgxpool.Pool) StatementRepository {
	return &statementRepo{db: db}
}

// GetByID loads the statement with its journal and the journal's company
func (r *statementRepo) GetByID(ctx context.Context, tx pgx.Tx, id int64) (*domain.BankStatement, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil")
	}

	var (
		st domain.BankStatement
		j  domain.Journal
		c  domain.Company
	)
	err := tx.QueryRow(ctx, `
		SELECT s.id, s.name, s.journal_id, s.date,
			j.id, j.code, j.name, j.company_id, j.default_debit_account_id, j.default_credit_account_id, j.update_posted,
			c.id, c.name, c.currency_id
		FROM bank_statements s
		JOIN journals j ON j.id = s.journal_id
		JOIN companies c ON c.id = j.company_id
		WHERE s.id = $1
	`, id).Scan(
		&st.ID, &st.Name, &st.JournalID, &st.Date,
		&j.ID, &j.Code, &j.Name, &j.CompanyID, &j.DefaultDebitAccountID, &j.DefaultCreditAccountID, &j.UpdatePosted,
		&c.ID, &c.Name, &c.CurrencyID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrStatementNotFound
		}
		return nil, fmt.Errorf("failed to get bank statement %d: %w", id, err)
	}

	j.Company = &c
	st.Journal = &j
	return &st, nil
}

// NextLineNumber returns the display number of a line: "<statement>/<n>".
// n is the line sequence, or its position in the statement when the
// import left the sequence unset.
func (r *statementRepo) NextLineNumber(ctx context.Context, tx pgx.Tx, statementName string, line *domain.StatementLine) (string, error) {
	if line.Sequence > 0 {
		return fmt.Sprintf("%s/%d", statementName, line.Sequence), nil
	}
	if tx == nil {
		return "", errors.New("transaction cannot be nil")
	}

	var pos int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM statement_lines
		WHERE statement_id = $1 AND id <= $2
	`, line.StatementID, line.ID).Scan(&pos)
	if err != nil {
		return "", fmt.Errorf("failed to number statement line %d: %w", line.ID, err)
	}
	return fmt.Sprintf("%s/%d", statementName, pos), nil
}

// CreateMoveFromLine books a draft journal entry for the line
func (r *statementRepo) CreateMoveFromLine(
	ctx context.Context,
	tx pgx.Tx,
	lineID, currencyID int64,
	lineNumber string,
	origin domain.Origin,
) (*domain.Move, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil")
	}
	if !origin.AllowsStatementMoves() {
		return nil, domain.ErrMoveProtected
	}
	if currencyID == 0 {
		return nil, domain.ErrMissingCurrency
	}

	line, err := scanLine(tx.QueryRow(ctx, `
		SELECT `+lineColumns+` FROM statement_lines l WHERE l.id = $1
	`, lineID), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrStatementLineNotFound
		}
		return nil, fmt.Errorf("failed to load statement line %d: %w", lineID, err)
	}

	st, err := r.GetByID(ctx, tx, line.StatementID)
	if err != nil {
		return nil, err
	}

	move := &domain.Move{
		Name:            lineNumber,
		Ref:             line.Ref,
		JournalID:       st.JournalID,
		StatementID:     &st.ID,
		StatementLineID: &line.ID,
		Date:            line.Date,
		State:           domain.MoveStateDraft,
		Lines:           domain.MoveLinesFromLine(st, line, currencyID),
	}
	if !move.IsBalanced() {
		return nil, domain.ErrUnbalancedMove
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO moves (name, ref, journal_id, statement_id, statement_line_id, date, state, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		RETURNING id, created_at
	`, move.Name, move.Ref, move.JournalID, move.StatementID, move.StatementLineID, move.Date, string(move.State)).
		Scan(&move.ID, &move.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal entry: %w", err)
	}

	for i := range move.Lines {
		ml := &move.Lines[i]
		ml.MoveID = move.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO move_lines (move_id, name, account_id, partner_id, debit, credit, currency_id, amount_currency)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING id
		`, ml.MoveID, ml.Name, ml.AccountID, ml.PartnerID, ml.Debit, ml.Credit, ml.CurrencyID, ml.AmountCurrency).Scan(&ml.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create journal item: %w", err)
		}
	}

	return move, nil
}
