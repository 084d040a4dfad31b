package repository

import (
	"context"
	"errors"
	"fmt"

	"statement-line-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MoveRepository manages the journal entries generated by statement lines.
type MoveRepository interface {
	ListByLines(ctx context.Context, tx pgx.Tx, lineIDs []int64) (map[int64][]*domain.Move, error)
	// ButtonCancel sends entries back to draft.
	ButtonCancel(ctx context.Context, tx pgx.Tx, ids []int64) error
	Unlink(ctx context.Context, tx pgx.Tx, ids []int64, origin domain.Origin) error
}

type moveRepo struct {
	db *pgxpool.Pool
}

func NewMoveRepo(db *pgxpool.Pool) MoveRepository {
	return &moveRepo{db: db}
}

const moveColumns = `m.id, m.name, m.ref, m.journal_id, m.statement_id, m.statement_line_id, m.date, m.state, m.created_at`

// ListByLines groups the entries of the given lines by line id
func (r *moveRepo) ListByLines(ctx context.Context, tx pgx.Tx, lineIDs []int64) (map[int64][]*domain.Move, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil")
	}
	out := make(map[int64][]*domain.Move, len(lineIDs))
	if len(lineIDs) == 0 {
		return out, nil
	}

	rows, err := tx.Query(ctx, `
		SELECT `+moveColumns+`
		FROM moves m
		WHERE m.statement_line_id = ANY($1)
		ORDER BY m.id
		FOR UPDATE
	`, lineIDs)
	if err != nil {
		return nil, lockError(err, "list journal entries")
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMove(rows)
		if err != nil {
			return nil, err
		}
		out[*m.StatementLineID] = append(out[*m.StatementLineID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, lockError(err, "list journal entries")
	}
	return out, nil
}

func (r *moveRepo) ButtonCancel(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	if len(ids) == 0 {
		return nil
	}

	var locked int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM moves m
		JOIN journals j ON j.id = m.journal_id
		WHERE m.id = ANY($1) AND m.state = 'posted' AND NOT j.update_posted
	`, ids).Scan(&locked)
	if err != nil {
		return fmt.Errorf("failed to check journal entries: %w", err)
	}
	if locked > 0 {
		return domain.ErrPostedMoveLocked
	}

	if _, err := tx.Exec(ctx, `UPDATE moves SET state = 'draft' WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to cancel journal entries: %w", err)
	}
	return nil
}

func (r *moveRepo) Unlink(ctx context.Context, tx pgx.Tx, ids []int64, origin domain.Origin) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	if len(ids) == 0 {
		return nil
	}

	rows, err := tx.Query(ctx, `SELECT `+moveColumns+` FROM moves m WHERE m.id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to load journal entries: %w", err)
	}
	moves, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Move, error) {
		return scanMove(row)
	})
	if err != nil {
		return fmt.Errorf("failed to load journal entries: %w", err)
	}

	for _, m := range moves {
		if !m.IsDraft() {
			return fmt.Errorf("%w: %s", domain.ErrPostedMoveDelete, m.Name)
		}
		if m.IsOwnedByStatement() && !origin.AllowsStatementMoves() {
			return fmt.Errorf("%w: %s", domain.ErrMoveProtected, m.Name)
		}
	}

	// move_lines go with ON DELETE CASCADE
	if _, err := tx.Exec(ctx, `DELETE FROM moves WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete journal entries: %w", err)
	}
	return nil
}

func scanMove(row pgx.Row) (*domain.Move, error) {
	var (
		m     domain.Move
		state string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Ref, &m.JournalID, &m.StatementID, &m.StatementLineID, &m.Date, &state, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.State = domain.MoveState(state)
	return &m, nil
}
