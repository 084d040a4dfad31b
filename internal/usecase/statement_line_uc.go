package usecase

import (
	"context"
	"fmt"

	"statement-line-service/internal/domain"
	"statement-line-service/internal/pub"
	"statement-line-service/internal/repository"
	"statement-line-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// LineCache is the read-through cache in front of the line repository.
type LineCache interface {
	Get(ctx context.Context, id int64) (*domain.StatementLine, bool)
	Generation(ctx context.Context, id int64) (int64, error)
	SetIfCurrent(ctx context.Context, line *domain.StatementLine, gen int64) (bool, error)
	Invalidate(ctx context.Context, ids ...int64) error
}

// StatementLineUsecase drives the draft/confirmed lifecycle of bank
// statement lines and the journal entries attached to them.
type StatementLineUsecase struct {
	lineRepo      repository.StatementLineRepository
	statementRepo repository.StatementRepository
	moveRepo      repository.MoveRepository
	cache         LineCache
	publisher     pub.Publisher
	logger        *zap.Logger
}

func NewStatementLineUsecase(
	lineRepo repository.StatementLineRepository,
	statementRepo repository.StatementRepository,
	moveRepo repository.MoveRepository,
	cache LineCache,
	publisher pub.Publisher,
	logger *zap.Logger,
) *StatementLineUsecase {
	if cache == nil {
		cache = nopCache{}
	}
	if publisher == nil {
		publisher = pub.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatementLineUsecase{
		lineRepo:      lineRepo,
		statementRepo: statementRepo,
		moveRepo:      moveRepo,
		cache:         cache,
		publisher:     publisher,
		logger:        logger,
	}
}

// ===============================
// LIFECYCLE
// ===============================

// Confirm books one journal entry for every draft line and marks it
// confirmed. Lines that are not draft are reported as skipped. Everything
// happens in one transaction: a failing line rolls back the whole call.
func (uc *StatementLineUsecase) Confirm(ctx context.Context, ids []int64) (*domain.BatchResult, error) {
	ids, err := normalizeIDs(ids)
	if err != nil {
		return nil, err
	}

	result := domain.NewBatchResult("confirm", len(ids))
	err = uc.withTx(ctx, func(tx pgx.Tx) error {
		lines, err := uc.lockLines(ctx, tx, ids)
		if err != nil {
			return err
		}

		statements := make(map[int64]*domain.BankStatement)
		for _, line := range lines {
			if !line.CanConfirm() {
				result.Add(skipped(line, "statement line is not draft"))
				continue
			}

			st, ok := statements[line.StatementID]
			if !ok {
				st, err = uc.statementRepo.GetByID(ctx, tx, line.StatementID)
				if err != nil {
					return fmt.Errorf("failed to load statement of line %d: %w", line.ID, err)
				}
				statements[line.StatementID] = st
			}

			number, err := uc.statementRepo.NextLineNumber(ctx, tx, st.Name, line)
			if err != nil {
				return err
			}

			move, err := uc.statementRepo.CreateMoveFromLine(ctx, tx, line.ID, st.CurrencyID(), number, domain.OriginStatement)
			if err != nil {
				return fmt.Errorf("failed to create journal entry for line %d: %w", line.ID, err)
			}

			if err := uc.lineRepo.SetState(ctx, tx, []int64{line.ID}, domain.LineStateConfirmed); err != nil {
				return err
			}

			result.Add(domain.LineOutcome{
				LineID:      line.ID,
				StatementID: line.StatementID,
				Kind:        domain.OutcomeApplied,
				State:       domain.LineStateConfirmed,
				MoveIDs:     []int64{move.ID},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("statement lines confirmed",
		zap.Int64s("applied", result.Applied()),
		zap.Int64s("skipped", result.Skipped()),
		zap.Int64s("moves", result.MoveIDs()))

	uc.afterCommit(ctx, domain.LineEventConfirmed, ids, result)
	return result, nil
}

// Cancel removes the journal entries of confirmed lines and puts them back
// to draft. If any of those entries is already posted, nothing is changed
// and the returned *domain.BatchError names every offending line; the
// result is returned alongside it so callers can show per-line outcomes.
func (uc *StatementLineUsecase) Cancel(ctx context.Context, ids []int64) (*domain.BatchResult, error) {
	ids, err := normalizeIDs(ids)
	if err != nil {
		return nil, err
	}

	result := domain.NewBatchResult("cancel", len(ids))
	err = uc.withTx(ctx, func(tx pgx.Tx) error {
		lines, err := uc.lockLines(ctx, tx, ids)
		if err != nil {
			return err
		}

		var confirmedIDs []int64
		for _, line := range lines {
			if line.CanCancel() {
				confirmedIDs = append(confirmedIDs, line.ID)
			}
		}
		moves, err := uc.moveRepo.ListByLines(ctx, tx, confirmedIDs)
		if err != nil {
			return err
		}

		var setDraftIDs, unlinkIDs []int64
		for _, line := range lines {
			if !line.CanCancel() {
				result.Add(skipped(line, "statement line is not confirmed"))
				continue
			}
			result.Add(harvest(line, moves[line.ID]))
		}
		if err := result.Err(); err != nil {
			return err
		}

		for _, o := range result.Outcomes {
			if o.Kind == domain.OutcomeApplied {
				setDraftIDs = append(setDraftIDs, o.LineID)
				unlinkIDs = append(unlinkIDs, o.MoveIDs...)
			}
		}

		if err := uc.moveRepo.ButtonCancel(ctx, tx, unlinkIDs); err != nil {
			return err
		}
		if err := uc.moveRepo.Unlink(ctx, tx, unlinkIDs, domain.OriginStatement); err != nil {
			return err
		}
		return uc.lineRepo.SetState(ctx, tx, setDraftIDs, domain.LineStateDraft)
	})
	if err != nil {
		if be := result.Err(); be != nil {
			uc.logger.Warn("statement line cancel refused", zap.Error(be))
			return result, be
		}
		return nil, err
	}

	uc.logger.Info("statement lines cancelled",
		zap.Int64s("applied", result.Applied()),
		zap.Int64s("skipped", result.Skipped()),
		zap.Int64s("removed_moves", result.MoveIDs()))

	uc.afterCommit(ctx, domain.LineEventCancelled, ids, result)
	return result, nil
}

// Unlink deletes draft lines. The first confirmed line aborts the call
// with a *domain.ConfirmedStatementLineError and nothing is deleted.
func (uc *StatementLineUsecase) Unlink(ctx context.Context, ids ...int64) error {
	ids, err := normalizeIDs(ids)
	if err != nil {
		return err
	}

	var deleted []*domain.StatementLine
	err = uc.withTx(ctx, func(tx pgx.Tx) error {
		lines, err := uc.lockLines(ctx, tx, ids)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if !line.CanDelete() {
				return &domain.ConfirmedStatementLineError{LineID: line.ID, LineName: line.Name}
			}
		}
		if err := uc.lineRepo.Delete(ctx, tx, ids); err != nil {
			return err
		}
		deleted = lines
		return nil
	})
	if err != nil {
		return err
	}

	uc.logger.Info("statement lines deleted", zap.Int64s("ids", ids))

	result := domain.NewBatchResult("unlink", len(deleted))
	for _, line := range deleted {
		result.Add(domain.LineOutcome{LineID: line.ID, StatementID: line.StatementID, Kind: domain.OutcomeApplied})
	}
	uc.afterCommit(ctx, domain.LineEventDeleted, ids, result)
	return nil
}

// ===============================
// QUERIES
// ===============================

// GetLine returns a line with the ids of its journal entries
func (uc *StatementLineUsecase) GetLine(ctx context.Context, id int64) (*domain.StatementLine, error) {
	if id <= 0 {
		return nil, xerrors.ErrInvalidInput
	}
	if line, ok := uc.cache.Get(ctx, id); ok {
		return line, nil
	}

	// taken before the load so a commit in between voids the write back
	gen, genErr := uc.cache.Generation(ctx, id)

	line, err := uc.lineRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if genErr != nil {
		uc.logger.Debug("line cache generation failed", zap.Int64("line_id", id), zap.Error(genErr))
		return line, nil
	}
	stored, err := uc.cache.SetIfCurrent(ctx, line, gen)
	switch {
	case err != nil:
		uc.logger.Debug("line cache set failed", zap.Int64("line_id", id), zap.Error(err))
	case !stored:
		uc.logger.Debug("line changed while loading, not cached", zap.Int64("line_id", id))
	}
	return line, nil
}

func (uc *StatementLineUsecase) ListByStatement(ctx context.Context, statementID int64) ([]*domain.StatementLine, error) {
	if statementID <= 0 {
		return nil, xerrors.ErrInvalidInput
	}
	return uc.lineRepo.ListByStatement(ctx, statementID)
}

// ===============================
// HELPERS
// ===============================

func (uc *StatementLineUsecase) withTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := uc.lineRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				uc.logger.Error("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// lockLines returns the locked lines in request order.
func (uc *StatementLineUsecase) lockLines(ctx context.Context, tx pgx.Tx, ids []int64) ([]*domain.StatementLine, error) {
	found, err := uc.lineRepo.LockByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.StatementLine, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}

	lines := make([]*domain.StatementLine, 0, len(ids))
	for _, id := range ids {
		l, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", xerrors.ErrStatementLineNotFound, id)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// afterCommit is best effort: the transaction is already committed, so
// cache and event failures are only logged.
func (uc *StatementLineUsecase) afterCommit(ctx context.Context, eventType domain.LineEventType, ids []int64, result *domain.BatchResult) {
	if err := uc.cache.Invalidate(ctx, ids...); err != nil {
		uc.logger.Warn("line cache invalidation failed", zap.Int64s("ids", ids), zap.Error(err))
	}

	for _, o := range result.Outcomes {
		if o.Kind != domain.OutcomeApplied {
			continue
		}
		event := pub.NewLineEvent(eventType, o.LineID, o.StatementID, o.State, o.MoveIDs)
		if err := uc.publisher.Publish(ctx, event); err != nil {
			uc.logger.Warn("line event publish failed",
				zap.String("event_type", string(eventType)),
				zap.Int64("line_id", o.LineID),
				zap.Error(err))
		}
	}
}

// harvest collects the entries a confirmed line will lose on cancel.
func harvest(line *domain.StatementLine, moves []*domain.Move) domain.LineOutcome {
	out := domain.LineOutcome{
		LineID:      line.ID,
		StatementID: line.StatementID,
		Kind:        domain.OutcomeApplied,
		State:       domain.LineStateDraft,
	}
	// a confirmed line may have lost its entry already when payments were
	// cancelled by hand; it still goes back to draft
	for _, m := range moves {
		if !m.IsDraft() {
			return domain.LineOutcome{
				LineID:      line.ID,
				StatementID: line.StatementID,
				Kind:        domain.OutcomeFailed,
				State:       line.State,
				Reason:      "journal entry is posted",
				Err: &domain.ConfirmedJournalEntryError{
					LineID:    line.ID,
					LineName:  line.Name,
					MoveID:    m.ID,
					MoveName:  m.Name,
					MoveState: m.State,
				},
			}
		}
		out.MoveIDs = append(out.MoveIDs, m.ID)
	}
	return out
}

func skipped(line *domain.StatementLine, reason string) domain.LineOutcome {
	return domain.LineOutcome{
		LineID:      line.ID,
		StatementID: line.StatementID,
		Kind:        domain.OutcomeSkipped,
		State:       line.State,
		Reason:      reason,
	}
}

// normalizeIDs drops duplicates, keeping the first occurrence.
func normalizeIDs(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, xerrors.ErrNoLineIDs
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, fmt.Errorf("%w: statement line id %d", xerrors.ErrInvalidInput, id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

type nopCache struct{}

func (nopCache) Get(context.Context, int64) (*domain.StatementLine, bool) { return nil, false }
func (nopCache) Generation(context.Context, int64) (int64, error)         { return 0, nil }
func (nopCache) SetIfCurrent(context.Context, *domain.StatementLine, int64) (bool, error) {
	return false, nil
}
func (nopCache) Invalidate(context.Context, ...int64) error { return nil }
