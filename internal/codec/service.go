package codec

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "calmbridge.v1.Coach"

// Method names, as they appear after the service prefix.
const (
	methodNarrate = "Narrate"
	methodStart   = "Start"
	methodGet     = "Get"
	methodApply   = "Apply"
	methodUndo    = "Undo"
)

func fullMethod(m string) string { return "/" + ServiceName + "/" + m }

// #region service-desc

// CoachServer is the server side of calmbridge.v1.Coach. Messages are
// google.protobuf.Struct values carrying the JSON shapes of this package.
type CoachServer interface {
	Narrate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Start(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Apply(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Undo(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(CoachServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CoachServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CoachServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var coachServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CoachServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodNarrate, Handler: unaryHandler(methodNarrate, CoachServer.Narrate)},
		{MethodName: methodStart, Handler: unaryHandler(methodStart, CoachServer.Start)},
		{MethodName: methodGet, Handler: unaryHandler(methodGet, CoachServer.Get)},
		{MethodName: methodApply, Handler: unaryHandler(methodApply, CoachServer.Apply)},
		{MethodName: methodUndo, Handler: unaryHandler(methodUndo, CoachServer.Undo)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "calmbridge/v1/coach.proto",
}

// RegisterCoachServer registers srv on s.
func RegisterCoachServer(s grpc.ServiceRegistrar, srv CoachServer) {
	s.RegisterService(&coachServiceDesc, srv)
}

// #endregion service-desc

// #region struct-codec

// toStruct converts any JSON-marshalable value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	return out, nil
}

// fromStruct decodes s into v through its JSON form.
func fromStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	return nil
}

// #endregion struct-codec
