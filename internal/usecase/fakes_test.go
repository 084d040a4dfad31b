package usecase

import (
	"context"
	"fmt"
	"sort"

	"statement-line-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// fakeTx restores the store snapshot on rollback.
type fakeTx struct {
	pgx.Tx
	store      *fakeStore
	snapshot   fakeState
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	if t.store.commitErr != nil {
		return t.store.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	t.store.state = t.snapshot
	return nil
}

type fakeState struct {
	lines map[int64]domain.StatementLine
	moves map[int64]domain.Move
}

func (s fakeState) clone() fakeState {
	c := fakeState{
		lines: make(map[int64]domain.StatementLine, len(s.lines)),
		moves: make(map[int64]domain.Move, len(s.moves)),
	}
	for k, v := range s.lines {
		c.lines[k] = v
	}
	for k, v := range s.moves {
		c.moves[k] = v
	}
	return c
}

type fakeStore struct {
	state      fakeState
	statements map[int64]*domain.BankStatement
	nextMoveID int64
	txs        []*fakeTx
	calls      []string

	afterGetByID  func()          // runs once, between the read and the return
	createErr     map[int64]error // by line id
	commitErr     error
	unlinkOrigins []domain.Origin
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		state: fakeState{
			lines: map[int64]domain.StatementLine{},
			moves: map[int64]domain.Move{},
		},
		statements: map[int64]*domain.BankStatement{
			1: {
				ID:        1,
				Name:      "BNK/2024/001",
				JournalID: 10,
				Journal: &domain.Journal{
					ID:                     10,
					Code:                   "BNK",
					DefaultDebitAccountID:  512,
					DefaultCreditAccountID: 512,
					Company:                &domain.Company{ID: 1, CurrencyID: 7},
				},
			},
		},
		nextMoveID: 100,
		createErr:  map[int64]error{},
	}
}

func (s *fakeStore) addLine(id int64, name string, state domain.LineState) {
	s.state.lines[id] = domain.StatementLine{
		ID:          id,
		StatementID: 1,
		Sequence:    int(id),
		Name:        name,
		Amount:      decimal.NewFromInt(100),
		AccountID:   411,
		State:       state,
	}
}

func (s *fakeStore) addMove(lineID int64, state domain.MoveState) int64 {
	s.nextMoveID++
	id := s.nextMoveID
	lid, sid := lineID, int64(1)
	s.state.moves[id] = domain.Move{
		ID:              id,
		Name:            fmt.Sprintf("BNK/2024/001/%d", lineID),
		JournalID:       10,
		StatementID:     &sid,
		StatementLineID: &lid,
		State:           state,
	}
	return id
}

func (s *fakeStore) line(id int64) (domain.StatementLine, bool) {
	l, ok := s.state.lines[id]
	return l, ok
}

func (s *fakeStore) movesOf(lineID int64) []domain.Move {
	var out []domain.Move
	for _, m := range s.state.moves {
		if m.StatementLineID != nil && *m.StatementLineID == lineID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *fakeStore) lastTx() *fakeTx {
	if len(s.txs) == 0 {
		return nil
	}
	return s.txs[len(s.txs)-1]
}

// ---- StatementLineRepository ----

type fakeLineRepo struct{ *fakeStore }

func (r fakeLineRepo) BeginTx(context.Context) (pgx.Tx, error) {
	tx := &fakeTx{store: r.fakeStore, snapshot: r.state.clone()}
	r.txs = append(r.txs, tx)
	return tx, nil
}

func (r fakeLineRepo) GetByID(_ context.Context, id int64) (*domain.StatementLine, error) {
	r.calls = append(r.calls, "line.GetByID")
	l, ok := r.state.lines[id]
	if !ok {
		return nil, fmt.Errorf("line %d: not found", id)
	}
	for _, m := range r.movesOf(id) {
		l.MoveIDs = append(l.MoveIDs, m.ID)
	}
	if hook := r.afterGetByID; hook != nil {
		r.afterGetByID = nil
		hook()
	}
	return &l, nil
}

func (r fakeLineRepo) ListByStatement(_ context.Context, statementID int64) ([]*domain.StatementLine, error) {
	var out []*domain.StatementLine
	for _, l := range r.state.lines {
		if l.StatementID == statementID {
			l := l
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r fakeLineRepo) LockByIDs(_ context.Context, _ pgx.Tx, ids []int64) ([]*domain.StatementLine, error) {
	var out []*domain.StatementLine
	for _, id := range ids {
		if l, ok := r.state.lines[id]; ok {
			l := l
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeLineRepo) SetState(_ context.Context, _ pgx.Tx, ids []int64, state domain.LineState) error {
	r.calls = append(r.calls, "line.SetState:"+string(state))
	for _, id := range ids {
		l := r.state.lines[id]
		l.State = state
		r.state.lines[id] = l
	}
	return nil
}

func (r fakeLineRepo) Delete(_ context.Context, _ pgx.Tx, ids []int64) error {
	r.calls = append(r.calls, "line.Delete")
	for _, id := range ids {
		delete(r.state.lines, id)
	}
	return nil
}

// ---- StatementRepository ----

type fakeStatementRepo struct{ *fakeStore }

func (r fakeStatementRepo) GetByID(_ context.Context, _ pgx.Tx, id int64) (*domain.BankStatement, error) {
	st, ok := r.statements[id]
	if !ok {
		return nil, fmt.Errorf("statement %d: not found", id)
	}
	return st, nil
}

func (r fakeStatementRepo) NextLineNumber(_ context.Context, _ pgx.Tx, statementName string, line *domain.StatementLine) (string, error) {
	return fmt.Sprintf("%s/%d", statementName, line.Sequence), nil
}

func (r fakeStatementRepo) CreateMoveFromLine(_ context.Context, _ pgx.Tx, lineID, currencyID int64, lineNumber string, origin domain.Origin) (*domain.Move, error) {
	r.calls = append(r.calls, "statement.CreateMoveFromLine")
	if err := r.createErr[lineID]; err != nil {
		return nil, err
	}
	if !origin.AllowsStatementMoves() {
		return nil, domain.ErrMoveProtected
	}
	line := r.state.lines[lineID]
	st := r.statements[line.StatementID]

	r.nextMoveID++
	lid, sid := lineID, st.ID
	m := domain.Move{
		ID:              r.nextMoveID,
		Name:            lineNumber,
		JournalID:       st.JournalID,
		StatementID:     &sid,
		StatementLineID: &lid,
		State:           domain.MoveStateDraft,
		Lines:           domain.MoveLinesFromLine(st, &line, currencyID),
	}
	r.state.moves[m.ID] = m
	return &m, nil
}

// ---- MoveRepository ----

type fakeMoveRepo struct{ *fakeStore }

func (r fakeMoveRepo) ListByLines(_ context.Context, _ pgx.Tx, lineIDs []int64) (map[int64][]*domain.Move, error) {
	out := map[int64][]*domain.Move{}
	for _, id := range lineIDs {
		for _, m := range r.movesOf(id) {
			m := m
			out[id] = append(out[id], &m)
		}
	}
	return out, nil
}

func (r fakeMoveRepo) ButtonCancel(_ context.Context, _ pgx.Tx, ids []int64) error {
	r.calls = append(r.calls, "move.ButtonCancel")
	for _, id := range ids {
		m := r.state.moves[id]
		m.State = domain.MoveStateDraft
		r.state.moves[id] = m
	}
	return nil
}

func (r fakeMoveRepo) Unlink(_ context.Context, _ pgx.Tx, ids []int64, origin domain.Origin) error {
	r.calls = append(r.calls, "move.Unlink")
	r.unlinkOrigins = append(r.unlinkOrigins, origin)
	for _, id := range ids {
		m := r.state.moves[id]
		if !m.IsDraft() {
			return domain.ErrPostedMoveDelete
		}
		if m.IsOwnedByStatement() && !origin.AllowsStatementMoves() {
			return domain.ErrMoveProtected
		}
	}
	for _, id := range ids {
		delete(r.state.moves, id)
	}
	return nil
}

// ---- cache and publisher ----

type fakeCache struct {
	lines       map[int64]*domain.StatementLine
	gens        map[int64]int64
	invalidated []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{lines: map[int64]*domain.StatementLine{}, gens: map[int64]int64{}}
}

func (c *fakeCache) Get(_ context.Context, id int64) (*domain.StatementLine, bool) {
	l, ok := c.lines[id]
	return l, ok
}

func (c *fakeCache) Generation(_ context.Context, id int64) (int64, error) {
	return c.gens[id], nil
}

func (c *fakeCache) SetIfCurrent(_ context.Context, line *domain.StatementLine, gen int64) (bool, error) {
	if c.gens[line.ID] != gen {
		return false, nil
	}
	c.lines[line.ID] = line
	return true, nil
}

func (c *fakeCache) Invalidate(_ context.Context, ids ...int64) error {
	for _, id := range ids {
		delete(c.lines, id)
		c.gens[id]++
	}
	c.invalidated = append(c.invalidated, ids...)
	return nil
}

type fakePublisher struct {
	events []*domain.LineEvent
}

func (p *fakePublisher) Publish(_ context.Context, e *domain.LineEvent) error {
	p.events = append(p.events, e)
	return nil
}
