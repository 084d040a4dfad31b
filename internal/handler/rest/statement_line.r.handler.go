package hrest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"statement-line-service/internal/domain"
	"statement-line-service/pkg/response"
	"statement-line-service/pkg/xerrors"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StatementLineService is the lifecycle API the handlers call.
type StatementLineService interface {
	Confirm(ctx context.Context, ids []int64) (*domain.BatchResult, error)
	Cancel(ctx context.Context, ids []int64) (*domain.BatchResult, error)
	Unlink(ctx context.Context, ids ...int64) error
	GetLine(ctx context.Context, id int64) (*domain.StatementLine, error)
	ListByStatement(ctx context.Context, statementID int64) ([]*domain.StatementLine, error)
}

type StatementLineRestHandler struct {
	lines  StatementLineService
	logger *zap.Logger
}

func NewStatementLineRestHandler(lines StatementLineService, logger *zap.Logger) *StatementLineRestHandler {
	return &StatementLineRestHandler{lines: lines, logger: logger}
}

type idsJSON struct {
	IDs []int64 `json:"ids"`
}

func (h *StatementLineRestHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeIDs(w, r)
	if !ok {
		return
	}
	result, err := h.lines.Confirm(r.Context(), in.IDs)
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *StatementLineRestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeIDs(w, r)
	if !ok {
		return
	}
	result, err := h.lines.Cancel(r.Context(), in.IDs)
	if err != nil {
		h.writeError(w, err, result)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *StatementLineRestHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeIDs(w, r)
	if !ok {
		return
	}
	if err := h.lines.Unlink(r.Context(), in.IDs...); err != nil {
		h.writeError(w, err, nil)
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{"deleted": in.IDs})
}

func (h *StatementLineRestHandler) GetLine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid statement line id")
		return
	}
	line, err := h.lines.GetLine(r.Context(), id)
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	response.JSON(w, http.StatusOK, line)
}

func (h *StatementLineRestHandler) ListByStatement(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid statement id")
		return
	}
	lines, err := h.lines.ListByStatement(r.Context(), id)
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	if lines == nil {
		lines = []*domain.StatementLine{}
	}
	response.JSON(w, http.StatusOK, lines)
}

func (h *StatementLineRestHandler) registerRoutes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"service": "statement-line"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/statement-lines/confirm", h.Confirm)
		r.Post("/statement-lines/cancel", h.Cancel)
		r.Delete("/statement-lines", h.Unlink)
		r.Get("/statement-lines/{id}", h.GetLine)
		r.Get("/statements/{id}/lines", h.ListByStatement)
	})
}

// Routes builds the router with the middleware stack.
func (h *StatementLineRestHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	h.registerRoutes(r)
	return r
}

func (h *StatementLineRestHandler) decodeIDs(w http.ResponseWriter, r *http.Request) (idsJSON, bool) {
	var in idsJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return in, false
	}
	if len(in.IDs) == 0 {
		response.Error(w, http.StatusBadRequest, xerrors.ErrNoLineIDs.Error())
		return in, false
	}
	return in, true
}

// writeError maps use case errors to HTTP statuses. Business rule
// violations are 409 and keep their dialog title.
func (h *StatementLineRestHandler) writeError(w http.ResponseWriter, err error, result *domain.BatchResult) {
	if title, msg, ok := domain.AsBusinessError(err); ok {
		var data interface{}
		if result != nil {
			data = result
		}
		response.BusinessError(w, http.StatusConflict, title, msg, data)
		return
	}

	switch {
	case errors.Is(err, xerrors.ErrStatementLineNotFound),
		errors.Is(err, xerrors.ErrStatementNotFound),
		errors.Is(err, xerrors.ErrNotFound):
		response.Error(w, http.StatusNotFound, err.Error())

	case errors.Is(err, xerrors.ErrNoLineIDs),
		errors.Is(err, xerrors.ErrInvalidInput),
		errors.Is(err, xerrors.ErrInvalidRequest):
		response.Error(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, xerrors.ErrLineLocked),
		errors.Is(err, xerrors.ErrLineReferenced):
		response.Error(w, http.StatusConflict, err.Error())

	case errors.Is(err, domain.ErrMoveProtected),
		errors.Is(err, domain.ErrPostedMoveLocked),
		errors.Is(err, domain.ErrPostedMoveDelete),
		errors.Is(err, domain.ErrMissingCurrency),
		errors.Is(err, domain.ErrUnbalancedMove):
		response.Error(w, http.StatusUnprocessableEntity, err.Error())

	default:
		h.logger.Error("statement line request failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, xerrors.ErrInternalServer.Error())
	}
}
