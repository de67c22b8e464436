package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ppiankov/cyberlab/internal/labs"
	"github.com/ppiankov/cyberlab/internal/model"
)

// Server implements cyberlab.v1.LabService on top of a lab service.
type Server struct {
	svc        *labs.Service
	log        *zap.Logger
	port       int
	grpcServer *grpc.Server
}

// New creates a gRPC server for svc. Port is used by Serve only.
func New(svc *labs.Service, port int, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		svc:  svc,
		log:  log.Named("grpc"),
		port: port,
	}
	s.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(s.logUnary))
	s.grpcServer.RegisterService(&LabServiceDesc, s)
	return s
}

// Serve starts the gRPC server on the configured port. Blocks until stopped.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}
	return s.ServeOn(lis)
}

// ServeOn starts the gRPC server on the given listener.
func (s *Server) ServeOn(lis net.Listener) error {
	s.log.Info("grpc listening", zap.String("addr", lis.Addr().String()))
	return s.grpcServer.Serve(lis)
}

// GracefulStop gracefully shuts down the gRPC server.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// ListLabs implements the ListLabs RPC.
func (s *Server) ListLabs(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return encode(map[string]any{"labs": s.svc.Labs()})
}

type payloadsRequest struct {
	Lab string `json:"lab"`
}

// ListPayloads implements the ListPayloads RPC.
func (s *Server) ListPayloads(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in payloadsRequest
	if err := FromStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	payloads, err := s.svc.Payloads(in.Lab)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]any{"lab": in.Lab, "payloads": payloads})
}

// Classify implements the Classify RPC. No latency is simulated.
func (s *Server) Classify(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var sub model.Submission
	if err := FromStruct(req, &sub); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	cat, err := model.ParseCategory(string(sub.Category))
	if err != nil {
		return nil, toStatus(err)
	}
	sub.Category = cat

	res, err := s.svc.Classify(ctx, labs.SourceGRPC, "", sub)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(res)
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.log.Debug("rpc",
		zap.String("method", info.FullMethod),
		zap.String("code", status.Code(err).String()),
		zap.Duration("elapsed", time.Since(start)))
	return resp, err
}

func encode(v any) (*structpb.Struct, error) {
	out, err := ToStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, model.ErrUnknownCategory), errors.Is(err, model.ErrUnknownMode):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
