package codec

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/session"
)

// #region client-struct
// CoachClient wraps the gRPC connection to a calmbridge server.
type CoachClient struct {
	conn   *grpc.ClientConn
	cc     grpc.ClientConnInterface
	health grpc_health_v1.HealthClient
}
// #endregion client-struct

// #region constructor
// NewCoachClient connects to a calmbridge gRPC server.
func NewCoachClient(addr string) (*CoachClient, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	c := NewCoachClientWithConn(conn)
	c.conn = conn
	return c, nil
}

// NewCoachClientWithConn creates a CoachClient over an existing connection.
// Close does not close a connection passed in this way.
func NewCoachClientWithConn(cc grpc.ClientConnInterface) *CoachClient {
	return &CoachClient{cc: cc, health: grpc_health_v1.NewHealthClient(cc)}
}
// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *CoachClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
// #endregion close

// #region calls

// Narrate asks the server for a stateless frame.
func (c *CoachClient) Narrate(ctx context.Context, req NarrateRequest) (coach.Frame, error) {
	var f coach.Frame
	if err := c.invoke(ctx, methodNarrate, req, &f); err != nil {
		return coach.Frame{}, fmt.Errorf("narrate rpc: %w", err)
	}
	return f, nil
}

// Start opens a session on the server.
func (c *CoachClient) Start(ctx context.Context, req StartRequest) (session.View, error) {
	var v session.View
	if err := c.invoke(ctx, methodStart, req, &v); err != nil {
		return session.View{}, fmt.Errorf("start rpc: %w", err)
	}
	return v, nil
}

// Get reads a session's active view.
func (c *CoachClient) Get(ctx context.Context, sessionID string) (session.View, error) {
	var v session.View
	if err := c.invoke(ctx, methodGet, SessionRequest{SessionID: sessionID}, &v); err != nil {
		return session.View{}, fmt.Errorf("get rpc: %w", err)
	}
	return v, nil
}

// Apply runs an action against a session.
func (c *CoachClient) Apply(ctx context.Context, sessionID string, a coach.Action) (session.View, error) {
	var v session.View
	if err := c.invoke(ctx, methodApply, ApplyRequest{SessionID: sessionID, Action: a}, &v); err != nil {
		return session.View{}, fmt.Errorf("apply rpc: %w", err)
	}
	return v, nil
}

// Undo reverts a session's last action.
func (c *CoachClient) Undo(ctx context.Context, sessionID string) (session.View, error) {
	var v session.View
	if err := c.invoke(ctx, methodUndo, SessionRequest{SessionID: sessionID}, &v); err != nil {
		return session.View{}, fmt.Errorf("undo rpc: %w", err)
	}
	return v, nil
}

// Serving reports whether the server's health service says SERVING.
func (c *CoachClient) Serving(ctx context.Context) (bool, error) {
	resp, err := c.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return false, fmt.Errorf("health rpc: %w", err)
	}
	return resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING, nil
}

func (c *CoachClient) invoke(ctx context.Context, method string, req, resp any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return err
	}
	return fromStruct(out, resp)
}

// #endregion calls
