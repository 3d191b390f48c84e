// Package grpcapi implements the gRPC front end: a generic Evaluate RPC
// carrying documents and results as google.protobuf.Struct/Value (so no
// SPIRAL-specific .proto schema is needed), plus the standard gRPC health
// service, matching the shape of the teacher's pkg/api/grpc server without
// depending on GCP's generated Workflows/Executions stubs.
package grpcapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/spiral-lang/spiral/pkg/document"
	"github.com/spiral-lang/spiral/pkg/driver"
	"github.com/spiral-lang/spiral/pkg/environ"
	"github.com/spiral-lang/spiral/pkg/registry"
)

// evaluatorServer is the handler interface behind the hand-authored
// ServiceDesc below — there is no .proto for this service, so the
// service descriptor and dispatch glue are written by hand rather than
// by protoc, the way a generated unary handler would look.
type evaluatorServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Server implements the Evaluator gRPC service plus grpc_health_v1.
type Server struct {
	ops    *registry.Registry
	defs   *environ.DefTable
	grpc   *grpc.Server
	health *health.Server
}

// New creates a gRPC server wired to the given operator registry and defs
// table.
func New(ops *registry.Registry, defs *environ.DefTable) *Server {
	srv := &Server{ops: ops, defs: defs, health: health.NewServer()}

	gs := grpc.NewServer()
	gs.RegisterService(&evaluatorServiceDesc, evaluatorServer(srv))
	healthpb.RegisterHealthServer(gs, srv.health)
	srv.health.SetServingStatus("spiral.v1.Evaluator", healthpb.HealthCheckResponse_SERVING)

	srv.grpc = gs
	return srv
}

// Serve starts listening on addr and serves gRPC requests until stopped.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() { s.grpc.GracefulStop() }

// Evaluate decodes the "document" field of req as a SPIRAL IR document,
// runs it, and returns the result under a "result" field.
func (s *Server) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	docField, ok := req.Fields["document"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "document field is required")
	}
	docJSON, err := json.Marshal(docField.AsInterface())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid document: %v", err)
	}
	doc, err := document.Decode(docJSON)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid document: %v", err)
	}

	opts := driver.Options{}
	if v, ok := req.Fields["maxSteps"]; ok {
		opts.MaxSteps = int(v.GetNumberValue())
	}
	if v, ok := req.Fields["trace"]; ok {
		opts.Trace = v.GetBoolValue()
	}
	if v, ok := req.Fields["async"]; ok {
		opts.Async = v.GetBoolValue()
	}

	result, err := driver.Evaluate(doc, s.ops, s.defs, opts)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "evaluate: %v", err)
	}

	resultJSON, err := json.Marshal(result.Value)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "marshal result: %v", err)
	}
	var decoded interface{}
	if err := json.Unmarshal(resultJSON, &decoded); err != nil {
		return nil, status.Errorf(codes.Internal, "decode result: %v", err)
	}
	resultValue, err := structpb.NewValue(decoded)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"result": resultValue}}, nil
}

func _Evaluator_Evaluate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(evaluatorServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/spiral.v1.Evaluator/Evaluate"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(evaluatorServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var evaluatorServiceDesc = grpc.ServiceDesc{
	ServiceName: "spiral.v1.Evaluator",
	HandlerType: (*evaluatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: _Evaluator_Evaluate_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "spiral/evaluator.proto",
}
