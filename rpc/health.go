package rpc

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wfunc/rhythmserver/logger"
)

// HealthServer answers grpc health checks for load balancers.
type HealthServer struct {
	listener net.Listener
	server   *grpc.Server
	health   *health.Server
}

func NewHealthServer(addr string) (*HealthServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	hs := &HealthServer{
		listener: listener,
		server:   grpc.NewServer(),
		health:   health.NewServer(),
	}
	healthpb.RegisterHealthServer(hs.server, hs.health)
	hs.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return hs, nil
}

func (h *HealthServer) Addr() string {
	return h.listener.Addr().String()
}

// Start serves until Stop.
func (h *HealthServer) Start() {
	logger.Log.Infof("gRPC health server listening on %s", h.Addr())
	if err := h.server.Serve(h.listener); err != nil {
		logger.Log.Errorf("gRPC health server: %v", err)
	}
}

// Stop reports NOT_SERVING and then stops the server.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
