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

type StatementLineRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	GetByID(ctx context.Context, id int64) (*domain.StatementLine, error)
	ListByStatement(ctx context.Context, statementID int64) ([]*domain.StatementLine, error)

	// LockByIDs loads the lines and holds their row locks until tx ends.
	// Unknown ids are simply absent from the result.
	LockByIDs(ctx context.Context, tx pgx.Tx, ids []int64) ([]*domain.StatementLine, error)
	SetState(ctx context.Context, tx pgx.Tx, ids []int64, state domain.LineState) error
	Delete(ctx context.Context, tx pgx.Tx, ids []int64) error
}

type statementLineRepo struct {
	db *pgxpool.Pool
}

func NewStatementLineRepo(db *pgxpool.Pool) StatementLineRepository {
	return &statementLineRepo{db: db}
}

const lineColumns = `l.id, l.statement_id, l.sequence, l.name, l.ref, l.date, l.amount,
	l.account_id, l.partner_id, l.state, l.created_at, l.updated_at`

func (r *statementLineRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// GetByID fetches a line with the ids of its journal entries
func (r *statementLineRepo) GetByID(ctx context.Context, id int64) (*domain.StatementLine, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+lineColumns+`,
			ARRAY(SELECT m.id FROM moves m WHERE m.statement_line_id = l.id ORDER BY m.id)
		FROM statement_lines l
		WHERE l.id = $1
	`, id)

	line, err := scanLine(row, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrStatementLineNotFound
		}
		return nil, fmt.Errorf("failed to get statement line %d: %w", id, err)
	}
	return line, nil
}

// ListByStatement returns the lines of a statement in display order
func (r *statementLineRepo) ListByStatement(ctx context.Context, statementID int64) ([]*domain.StatementLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+lineColumns+`,
			ARRAY(SELECT m.id FROM moves m WHERE m.statement_line_id = l.id ORDER BY m.id)
		FROM statement_lines l
		WHERE l.statement_id = $1
		ORDER BY l.sequence, l.id
	`, statementID)
	if err != nil {
		return nil, fmt.Errorf("failed to list statement lines: %w", err)
	}
	defer rows.Close()

	var lines []*domain.StatementLine
	for rows.Next() {
		line, err := scanLine(rows, true)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *statementLineRepo) LockByIDs(ctx context.Context, tx pgx.Tx, ids []int64) ([]*domain.StatementLine, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// ORDER BY id so concurrent callers take the locks in the same order
	rows, err := tx.Query(ctx, `
		SELECT `+lineColumns+`
		FROM statement_lines l
		WHERE l.id = ANY($1)
		ORDER BY l.id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, lockError(err, "lock statement lines")
	}
	defer rows.Close()

	lines := make([]*domain.StatementLine, 0, len(ids))
	for rows.Next() {
		line, err := scanLine(rows, false)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	// server errors such as a lock timeout surface here, not from Query
	if err := rows.Err(); err != nil {
		return nil, lockError(err, "lock statement lines")
	}
	return lines, nil
}

// lockError maps a lock timeout to ErrLineLocked and wraps anything else.
func lockError(err error, action string) error {
	if xerrors.ParsePGErrorCode(err) == xerrors.PGLockNotAvailable {
		return fmt.Errorf("%w: %v", xerrors.ErrLineLocked, err)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func (r *statementLineRepo) SetState(ctx context.Context, tx pgx.Tx, ids []int64, state domain.LineState) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	if !state.IsValid() {
		return fmt.Errorf("%w: unknown line state %q", xerrors.ErrInvalidInput, state)
	}
	if len(ids) == 0 {
		return nil
	}

	_, err := tx.Exec(ctx, `
		UPDATE statement_lines
		SET state = $2, updated_at = NOW()
		WHERE id = ANY($1)
	`, ids, string(state))
	if err != nil {
		return fmt.Errorf("failed to set statement line state: %w", err)
	}
	return nil
}

func (r *statementLineRepo) Delete(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	if len(ids) == 0 {
		return nil
	}

	_, err := tx.Exec(ctx, `DELETE FROM statement_lines WHERE id = ANY($1)`, ids)
	if err != nil {
		if xerrors.ParsePGErrorCode(err) == xerrors.PGForeignKeyViolation {
			return fmt.Errorf("%w: %v", xerrors.ErrLineReferenced, err)
		}
		return fmt.Errorf("failed to delete statement lines: %w", err)
	}
	return nil
}

func scanLine(row pgx.Row, withMoves bool) (*domain.StatementLine, error) {
	var (
		l     domain.StatementLine
		state string
	)
	dest := []any{
		&l.ID, &l.StatementID, &l.Sequence, &l.Name, &l.Ref, &l.Date, &l.Amount,
		&l.AccountID, &l.PartnerID, &state, &l.CreatedAt, &l.UpdatedAt,
	}
	if withMoves {
		dest = append(dest, &l.MoveIDs)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	l.State = domain.LineState(state)
	return &l, nil
}
