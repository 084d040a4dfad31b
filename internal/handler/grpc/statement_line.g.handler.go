package hgrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"statement-line-service/internal/domain"
	"statement-line-service/pkg/xerrors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// StatementLineService is the lifecycle API the handler calls.
type StatementLineService interface {
	Confirm(ctx context.Context, ids []int64) (*domain.BatchResult, error)
	Cancel(ctx context.Context, ids []int64) (*domain.BatchResult, error)
	Unlink(ctx context.Context, ids ...int64) error
	GetLine(ctx context.Context, id int64) (*domain.StatementLine, error)
}

type StatementLineGRPCHandler struct {
	lines StatementLineService
}

func NewStatementLineGRPCHandler(lines StatementLineService) *StatementLineGRPCHandler {
	return &StatementLineGRPCHandler{lines: lines}
}

func (h *StatementLineGRPCHandler) Confirm(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ids, err := idsFrom(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	result, err := h.lines.Confirm(ctx, ids)
	if err != nil {
		return nil, handleUsecaseError(err)
	}
	return toStruct(result)
}

func (h *StatementLineGRPCHandler) Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ids, err := idsFrom(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	result, err := h.lines.Cancel(ctx, ids)
	if err != nil {
		return nil, handleUsecaseError(err)
	}
	return toStruct(result)
}

func (h *StatementLineGRPCHandler) Unlink(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ids, err := idsFrom(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := h.lines.Unlink(ctx, ids...); err != nil {
		return nil, handleUsecaseError(err)
	}
	return toStruct(map[string]interface{}{"deleted": ids})
}

func (h *StatementLineGRPCHandler) GetLine(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := int64Of(req.GetFields()["id"])
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "id: "+err.Error())
	}
	line, err := h.lines.GetLine(ctx, id)
	if err != nil {
		return nil, handleUsecaseError(err)
	}
	return toStruct(line)
}

func idsFrom(req *structpb.Struct) ([]int64, error) {
	list := req.GetFields()["ids"].GetListValue()
	if list == nil || len(list.GetValues()) == 0 {
		return nil, xerrors.ErrNoLineIDs
	}
	ids := make([]int64, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		id, err := int64Of(v)
		if err != nil {
			return nil, fmt.Errorf("ids[%d]: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// int64Of reads an integral number value. Struct numbers are doubles, so
// ids above 2^53 cannot be represented exactly and are refused.
func int64Of(v *structpb.Value) (int64, error) {
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, xerrors.ErrInvalidInput
	}
	f := nv.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, xerrors.ErrInvalidInput
	}
	return int64(f), nil
}

// toStruct converts any JSON-serialisable value through its JSON form.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}
