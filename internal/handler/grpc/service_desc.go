package hgrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "statementline.v1.StatementLineService"

// StatementLineServer is the gRPC surface. Messages are google.protobuf.Struct:
// requests carry {"ids": [...]} or {"id": n}.
type StatementLineServer interface {
	Confirm(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Cancel(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Unlink(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLine(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(StatementLineServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StatementLineServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(StatementLineServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var StatementLineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StatementLineServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Confirm", StatementLineServer.Confirm),
		unary("Cancel", StatementLineServer.Cancel),
		unary("Unlink", StatementLineServer.Unlink),
		unary("GetLine", StatementLineServer.GetLine),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "statementline/v1/statement_line.proto",
}

func RegisterStatementLineServiceServer(s grpc.ServiceRegistrar, srv StatementLineServer) {
	s.RegisterService(&StatementLineServiceDesc, srv)
}

// StatementLineClient calls the service over an existing connection.
type StatementLineClient struct {
	cc grpc.ClientConnInterface
}

func NewStatementLineClient(cc grpc.ClientConnInterface) *StatementLineClient {
	return &StatementLineClient{cc: cc}
}

func (c *StatementLineClient) Confirm(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Confirm", in, opts...)
}

func (c *StatementLineClient) Cancel(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Cancel", in, opts...)
}

func (c *StatementLineClient) Unlink(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Unlink", in, opts...)
}

func (c *StatementLineClient) GetLine(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetLine", in, opts...)
}

func (c *StatementLineClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
