package server

import (
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// MatchService is the health service name reporting whether matches run.
const MatchService = "clash.MatchService"

// GRPCServer is the control-plane listener: health checks for the process
// and for the match service.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// NewGRPCServer builds a server with recovery and logging interceptors and
// the standard health service registered.
func NewGRPCServer(logger *zap.Logger, opts ...grpc.ServerOption) *GRPCServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := []grpc.ServerOption{
		grpc.UnaryInterceptor(ChainUnaryInterceptors(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
		)),
		grpc.ChainStreamInterceptor(StreamRecoveryInterceptor(logger)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	}
	s := grpc.NewServer(append(base, opts...)...)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(MatchService, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	return &GRPCServer{server: s, health: hs, logger: logger}
}

// SetMatchesServing flips the match service health status.
func (g *GRPCServer) SetMatchesServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus(MatchService, status)
}

// Serve accepts connections on lis until Stop or GracefulStop.
func (g *GRPCServer) Serve(lis net.Listener) error {
	g.logger.Info("starting gRPC server", zap.String("address", lis.Addr().String()))
	return g.server.Serve(lis)
}

// GracefulStop marks everything as not serving and drains connections.
func (g *GRPCServer) GracefulStop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}

// Stop closes all connections immediately.
func (g *GRPCServer) Stop() {
	g.server.Stop()
}
