package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "weldkeeper.triage.v1.InboxTriage"

// TriageServer is the operator-facing triage API. Requests and responses use
// protobuf well-known types so the service needs no generated code.
type TriageServer interface {
	ListInbox(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PromoteInboxEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkInboxError(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	DeleteInboxEntry(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	SignedURL(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	ReclaimFile(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
}

func RegisterTriageServer(s grpc.ServiceRegistrar, srv TriageServer) {
	s.RegisterService(&triageServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(TriageServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TriageServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(TriageServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var triageServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TriageServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ListInbox", TriageServer.ListInbox),
		unaryHandler("PromoteInboxEntry", TriageServer.PromoteInboxEntry),
		unaryHandler("MarkInboxError", TriageServer.MarkInboxError),
		unaryHandler("DeleteInboxEntry", TriageServer.DeleteInboxEntry),
		unaryHandler("SignedURL", TriageServer.SignedURL),
		unaryHandler("ReclaimFile", TriageServer.ReclaimFile),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "weldkeeper/triage/v1/triage.proto",
}

// TriageClient calls the triage service over an established connection.
type TriageClient struct {
	cc grpc.ClientConnInterface
}

func NewTriageClient(cc grpc.ClientConnInterface) *TriageClient {
	return &TriageClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TriageClient) ListInbox(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "ListInbox", in, opts...)
}

func (c *TriageClient) PromoteInboxEntry(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "PromoteInboxEntry", in, opts...)
}

func (c *TriageClient) MarkInboxError(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, "MarkInboxError", in, opts...)
}

func (c *TriageClient) DeleteInboxEntry(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, "DeleteInboxEntry", in, opts...)
}

func (c *TriageClient) SignedURL(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, "SignedURL", in, opts...)
}

func (c *TriageClient) ReclaimFile(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	return invoke[wrapperspb.BoolValue](ctx, c.cc, "ReclaimFile", in, opts...)
}
