package health

import (
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app/config"
	"github.com/beldeveloper/ecomet/internal/app/logging"
	"github.com/beldeveloper/go-errors-context"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"net"
)

// ServiceName is the service checked by the clients besides the overall "" status.
const ServiceName = "ecomet"

var logger = logging.GetLogger("health")

// NewServer creates the gRPC health server. Both statuses start as NOT_SERVING.
func NewServer(s config.GRPCSettings) *Server {
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	res := &Server{grpc: srv, health: hs, port: s.Port}
	res.SetServing(false)
	return res
}

// Server exposes the readiness of the application over the standard gRPC health protocol.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	port   int
}

// Enabled tells whether the port is configured.
func (s *Server) Enabled() bool {
	return s.port > 0
}

// SetServing updates the overall and the service status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// ListenAndServe listens on the configured port and serves until Stop is called.
func (s *Server) ListenAndServe() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return errors.WrapContext(err, errors.Context{
			Path:   "health.Server.ListenAndServe.Listen",
			Params: errors.Params{"port": s.port},
		})
	}
	logger.Infof("listening %s for gRPC health checks", lis.Addr())
	return s.Serve(lis)
}

// Serve serves the health checks on the listener until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	return errors.WrapContext(s.grpc.Serve(lis), errors.Context{Path: "health.Server.Serve"})
}

// Stop reports NOT_SERVING to the watchers and stops the server gracefully.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
