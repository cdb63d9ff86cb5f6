package predictor

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

type yieldServer interface {
	Predict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type predictorServer struct {
	p Predictor
}

// Predict answers with predicted_yield, or with an error field when the
// request is malformed or the model fails.
func (s *predictorServer) Predict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := decodeFeatures(req)
	if err != nil {
		return structpb.NewStruct(map[string]any{errorField: err.Error()})
	}
	y, err := s.p.Predict(ctx, f)
	if err != nil {
		return structpb.NewStruct(map[string]any{errorField: err.Error()})
	}
	return structpb.NewStruct(map[string]any{yieldField: y})
}

func predictHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(yieldServer).Predict(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: predictMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(yieldServer).Predict(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*yieldServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Predict", Handler: predictHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterServer exposes p on s together with a health service reporting
// SERVING for ServiceName.
func RegisterServer(s *grpc.Server, p Predictor) *health.Server {
	s.RegisterService(&serviceDesc, &predictorServer{p: p})
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return hs
}
