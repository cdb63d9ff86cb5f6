package predictor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the gRPC service exposing the model.
	ServiceName   = "yield.v1.YieldPredictor"
	predictMethod = "/" + ServiceName + "/Predict"

	featuresField = "features"
	yieldField    = "predicted_yield"
	errorField    = "error"
)

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
	errMissingYield             = errors.New("response has no predicted_yield")
)

// GrpcClientConfig holds configuration for the gRPC predictor client.
type GrpcClientConfig struct {
	Address          string
	ConnectTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
}

// DefaultGrpcClientConfig returns default configuration.
func DefaultGrpcClientConfig() GrpcClientConfig {
	return GrpcClientConfig{
		Address:          "localhost:50051",
		ConnectTimeout:   5 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// GrpcClient calls a model served out of process.
type GrpcClient struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
	addr   string
	logger *slog.Logger
}

// NewGrpcClient connects to the model service at cfg.Address. Extra dial
// options are appended after the defaults.
func NewGrpcClient(cfg GrpcClientConfig, logger *slog.Logger, opts ...grpc.DialOption) (*GrpcClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultGrpcClientConfig()
	if cfg.Address == "" {
		cfg.Address = def.Address
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.KeepaliveTime <= 0 {
		cfg.KeepaliveTime = def.KeepaliveTime
	}
	if cfg.KeepaliveTimeout <= 0 {
		cfg.KeepaliveTimeout = def.KeepaliveTimeout
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveTime,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: false,
		}),
	}, opts...)

	conn, err := grpc.NewClient(cfg.Address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to model service at %s: %w", cfg.Address, err)
	}

	// Fail fast on a bad endpoint instead of on the first completed conversation.
	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("model service at %s not ready: %w", cfg.Address, err)
	}

	logger.Info("Connected to model service", "address", cfg.Address)

	return &GrpcClient{
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
		addr:   cfg.Address,
		logger: logger,
	}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Close closes the gRPC connection.
func (c *GrpcClient) Close() {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Warn("failed to close gRPC connection", "error", err)
		}
	}
}

// Health checks that the model service reports SERVING.
func (c *GrpcClient) Health(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("health check: model service is %s", resp.GetStatus())
	}
	return nil
}

// Predict implements Predictor.
func (c *GrpcClient) Predict(ctx context.Context, f Features) (float64, error) {
	req, err := encodeFeatures(f)
	if err != nil {
		return 0, &PredictionError{Op: "grpc", Err: err}
	}

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, predictMethod, req, resp); err != nil {
		c.logger.Debug("Predict call failed", "address", c.addr, "error", err)
		return 0, &PredictionError{Op: "grpc", Err: err}
	}

	fields := resp.GetFields()
	if msg := fields[errorField].GetStringValue(); msg != "" {
		return 0, &PredictionError{Op: "grpc", Err: errors.New(msg)}
	}
	v, ok := fields[yieldField]
	if !ok {
		return 0, &PredictionError{Op: "grpc", Err: errMissingYield}
	}
	if _, isNumber := v.GetKind().(*structpb.Value_NumberValue); !isNumber {
		return 0, &PredictionError{Op: "grpc", Err: fmt.Errorf("predicted_yield is %T", v.GetKind())}
	}
	return v.GetNumberValue(), nil
}

func encodeFeatures(f Features) (*structpb.Struct, error) {
	values := make([]any, len(f))
	for i, x := range f {
		values[i] = x
	}
	return structpb.NewStruct(map[string]any{featuresField: values})
}

func decodeFeatures(s *structpb.Struct) (Features, error) {
	var f Features
	list := s.GetFields()[featuresField].GetListValue()
	if list == nil {
		return f, errors.New("missing features list")
	}
	if len(list.GetValues()) != FeatureCount {
		return f, fmt.Errorf("want %d features, got %d", FeatureCount, len(list.GetValues()))
	}
	for i, v := range list.GetValues() {
		if _, ok := v.GetKind().(*structpb.Value_NumberValue); !ok {
			return f, fmt.Errorf("feature %d is not a number", i)
		}
		f[i] = v.GetNumberValue()
	}
	return f, nil
}

// Ensure GrpcClient implements Predictor.
var _ Predictor = (*GrpcClient)(nil)
