package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/authcore/internal/logging"
	"google.golang.org/grpc"
)

// GRPCServer hosts the gRPC endpoint with the auth interceptor installed.
// The orchestration layer registers its own services on Srv before Run is
// called; this core owns only the authentication boundary.
type GRPCServer struct {
	Srv     *grpc.Server
	address string
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, interceptor *AuthInterceptor) *GRPCServer {
	return &GRPCServer{
		Srv:     grpc.NewServer(grpc.ChainUnaryInterceptor(interceptor.Unary())),
		address: a,
		logger:  l.With("module", "grpc_server"),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.Srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := s.Srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
