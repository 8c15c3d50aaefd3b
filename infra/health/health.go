// Package health exposes the standard grpc.health.v1 service so infra
// probes can check the matching authority over gRPC.
package health

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Server struct {
	grpcSrv *grpc.Server
	hs      *health.Server
	lis     net.Listener
}

func New(addr string) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("health listen %s: %w", addr, err)
	}
	grpcSrv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, hs)
	return &Server{grpcSrv: grpcSrv, hs: hs, lis: lis}, nil
}

// Serve blocks until Stop.
func (s *Server) Serve() error {
	return s.grpcSrv.Serve(s.lis)
}

// SetServing flips the reported status for the whole process.
func (s *Server) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.hs.SetServingStatus("", status)
}

func (s *Server) Stop() {
	s.hs.Shutdown()
	s.grpcSrv.GracefulStop()
}
