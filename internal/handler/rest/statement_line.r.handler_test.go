package hrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"statement-line-service/internal/domain"
	"statement-line-service/pkg/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubService struct {
	confirm func(ids []int64) (*domain.BatchResult, error)
	cancel  func(ids []int64) (*domain.BatchResult, error)
	unlink  func(ids ...int64) error
	get     func(id int64) (*domain.StatementLine, error)
	list    func(id int64) ([]*domain.StatementLine, error)
}

func (s *stubService) Confirm(_ context.Context, ids []int64) (*domain.BatchResult, error) {
	return s.confirm(ids)
}

func (s *stubService) Cancel(_ context.Context, ids []int64) (*domain.BatchResult, error) {
	return s.cancel(ids)
}

func (s *stubService) Unlink(_ context.Context, ids ...int64) error {
	return s.unlink(ids...)
}

func (s *stubService) GetLine(_ context.Context, id int64) (*domain.StatementLine, error) {
	return s.get(id)
}

func (s *stubService) ListByStatement(_ context.Context, id int64) ([]*domain.StatementLine, error) {
	return s.list(id)
}

type envelope struct {
	Status  string          `json:"status"`
	Title   string          `json:"title"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestConfirmHandler(t *testing.T) {
	var got []int64
	svc := &stubService{confirm: func(ids []int64) (*domain.BatchResult, error) {
		got = ids
		r := domain.NewBatchResult("confirm", 1)
		r.Add(domain.LineOutcome{LineID: 1, Kind: domain.OutcomeApplied, State: domain.LineStateConfirmed, MoveIDs: []int64{9}})
		return r, nil
	}}
	h := NewStatementLineRestHandler(svc, zap.NewNop()).Routes()

	rec, env := do(t, h, http.MethodPost, "/api/v1/statement-lines/confirm", map[string]interface{}{"ids": []int64{1}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, []int64{1}, got)

	var result domain.BatchResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, domain.OutcomeApplied, result.Outcomes[0].Kind)
}

func TestCancelHandlerRendersBusinessError(t *testing.T) {
	svc := &stubService{cancel: func(ids []int64) (*domain.BatchResult, error) {
		r := domain.NewBatchResult("cancel", 1)
		r.Add(domain.LineOutcome{
			LineID: 2,
			Kind:   domain.OutcomeFailed,
			State:  domain.LineStateConfirmed,
			Err:    &domain.ConfirmedJournalEntryError{LineID: 2, LineName: "L2", MoveName: "BNK/1/2"},
		})
		return r, r.Err()
	}}
	h := NewStatementLineRestHandler(svc, zap.NewNop()).Routes()

	rec, env := do(t, h, http.MethodPost, "/api/v1/statement-lines/cancel", map[string]interface{}{"ids": []int64{2}})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "Confirmed Journal Entry", env.Title)
	assert.Contains(t, env.Message, "'L2'")
	assert.NotEmpty(t, env.Data, "per-line outcomes are returned with the error")
}

func TestUnlinkHandler(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantTitle string
	}{
		{name: "draft lines deleted", err: nil, wantCode: http.StatusOK},
		{name: "confirmed line", err: &domain.ConfirmedStatementLineError{LineID: 3, LineName: "L3"}, wantCode: http.StatusConflict, wantTitle: "Confirmed Statement Line"},
		{name: "unknown line", err: xerrors.ErrStatementLineNotFound, wantCode: http.StatusNotFound},
		{name: "still referenced", err: fmt.Errorf("%w: fk", xerrors.ErrLineReferenced), wantCode: http.StatusConflict},
		{name: "locked", err: fmt.Errorf("%w: 55P03", xerrors.ErrLineLocked), wantCode: http.StatusConflict},
		{name: "store failure", err: errors.New("pool closed"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{unlink: func(ids ...int64) error { return tt.err }}
			h := NewStatementLineRestHandler(svc, zap.NewNop()).Routes()

			rec, env := do(t, h, http.MethodDelete, "/api/v1/statement-lines", map[string]interface{}{"ids": []int64{3}})

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantTitle, env.Title)
			if tt.wantCode == http.StatusInternalServerError {
				assert.NotContains(t, env.Message, "pool closed")
			}
		})
	}
}

func TestRejectsEmptyIDs(t *testing.T) {
	h := NewStatementLineRestHandler(&stubService{}, zap.NewNop()).Routes()

	rec, env := do(t, h, http.MethodPost, "/api/v1/statement-lines/confirm", map[string]interface{}{"ids": []int64{}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, xerrors.ErrNoLineIDs.Error(), env.Message)
}

func TestGetLineHandler(t *testing.T) {
	svc := &stubService{get: func(id int64) (*domain.StatementLine, error) {
		if id != 5 {
			return nil, xerrors.ErrStatementLineNotFound
		}
		return &domain.StatementLine{ID: 5, Name: "L5", State: domain.LineStateDraft}, nil
	}}
	h := NewStatementLineRestHandler(svc, zap.NewNop()).Routes()

	rec, env := do(t, h, http.MethodGet, "/api/v1/statement-lines/5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var line domain.StatementLine
	require.NoError(t, json.Unmarshal(env.Data, &line))
	assert.Equal(t, "L5", line.Name)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/statement-lines/6", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/statement-lines/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListByStatementHandlerReturnsEmptyList(t *testing.T) {
	svc := &stubService{list: func(int64) ([]*domain.StatementLine, error) { return nil, nil }}
	h := NewStatementLineRestHandler(svc, zap.NewNop()).Routes()

	rec, env := do(t, h, http.MethodGet, "/api/v1/statements/1/lines", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", string(env.Data))
}
