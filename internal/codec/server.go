package codec

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/observability"
	"github.com/danielpatrickdp/calmbridge/internal/script"
	"github.com/danielpatrickdp/calmbridge/internal/session"
	"github.com/danielpatrickdp/calmbridge/internal/state"
)

// RequestIDHeader is the metadata key carrying the caller's request id.
const RequestIDHeader = "x-request-id"

// #region server

// Server implements CoachServer over a session service.
type Server struct {
	sessions *session.Service
	logger   *zap.Logger
}

// NewServer creates the Coach implementation.
func NewServer(sessions *session.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{sessions: sessions, logger: logger.Named("grpc")}
}

// NewGRPCServer builds a grpc.Server with the Coach and health services
// registered, tracing stats handler and request logging.
func NewGRPCServer(sessions *session.Service, logger *zap.Logger) (*grpc.Server, *health.Server) {
	srv := NewServer(sessions, logger)

	gs := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(srv.logUnary),
	)
	RegisterCoachServer(gs, srv)

	hs := health.NewServer()
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(gs, hs)

	return gs, hs
}

// #endregion server

// #region handlers

func (s *Server) Narrate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req NarrateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	st, err := req.State()
	if err != nil {
		return nil, statusFor(err)
	}
	return reply(s.sessions.Pipeline().Narrate(st))
}

func (s *Server) Start(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req StartRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	view, err := s.sessions.Start(ctx, session.StartInput{
		Language: req.Language,
		Calmness: req.Calmness,
		Step:     script.Step(req.Step),
	})
	if err != nil {
		return nil, statusFor(err)
	}
	return reply(view)
}

func (s *Server) Get(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SessionRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	view, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, statusFor(err)
	}
	return reply(view)
}

func (s *Server) Apply(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ApplyRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	view, err := s.sessions.Apply(ctx, req.SessionID, req.Action)
	if err != nil {
		return nil, statusFor(err)
	}
	return reply(view)
}

func (s *Server) Undo(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SessionRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	view, err := s.sessions.Undo(ctx, req.SessionID)
	if err != nil {
		return nil, statusFor(err)
	}
	return reply(view)
}

// #endregion handlers

// #region helpers

func reply(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// statusFor maps domain errors onto gRPC status codes.
func statusFor(err error) error {
	switch {
	case errors.Is(err, state.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, script.ErrUnknownStep), errors.Is(err, coach.ErrUnknownAction):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, session.ErrNothingToUndo):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// logUnary tags the context with a request id and logs each call.
func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	reqID := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(RequestIDHeader); len(v) > 0 {
			reqID = v[0]
		}
	}
	if reqID == "" {
		reqID = uuid.New().String()
	}
	ctx = observability.WithRequestID(ctx, reqID)

	start := time.Now()
	resp, err := handler(ctx, req)

	observability.LoggerFromContext(ctx, s.logger).Info("rpc",
		zap.String("method", info.FullMethod),
		zap.String("code", status.Code(err).String()),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, err
}

// #endregion helpers
