package server

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "cyberlab.v1.LabService"

// Method names of the lab service.
const (
	MethodListLabs     = "ListLabs"
	MethodListPayloads = "ListPayloads"
	MethodClassify     = "Classify"
)

// LabServiceServer is the server API of cyberlab.v1.LabService. Messages
// are google.protobuf.Struct documents carrying the same JSON shapes as
// the HTTP API.
type LabServiceServer interface {
	ListLabs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPayloads(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Classify(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(LabServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LabServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LabServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// LabServiceDesc describes the lab service for grpc.Server.RegisterService.
var LabServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LabServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodListLabs, LabServiceServer.ListLabs),
		unary(MethodListPayloads, LabServiceServer.ListPayloads),
		unary(MethodClassify, LabServiceServer.Classify),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cyberlab/v1/lab.proto",
}

// FullMethod returns the wire path of a method, e.g. /cyberlab.v1.LabService/Classify.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// ToStruct converts a JSON-serializable value into a Struct message.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	s := &structpb.Struct{}
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return s, nil
}

// FromStruct decodes a Struct message into v.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	data, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}
