// Package server builds the gRPC server: auth and admission interceptors, otelgrpc instrumentation and the
// standard health service. Business services are registered by the embedding application through Deps.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"lexgate/backend/internal/admission"
	"lexgate/backend/internal/server/interceptors"
)

// Deps holds the server's collaborators.
type Deps struct {
	// Tokens validates bearer access tokens. Required.
	Tokens interceptors.AccessValidator
	// Pipeline runs admission for every non-public RPC. Required.
	Pipeline *admission.Pipeline
	// Health is the standard health server. If nil, a new one is created and left SERVING.
	Health *grpchealth.Server
	// Register registers the business services. If nil, only the health service is served.
	Register func(grpc.ServiceRegistrar)
	// Options are appended after the interceptor chain and stats handler.
	Options []grpc.ServerOption
}

// NewServer returns a gRPC server with the Auth → Admission chain on both unary and streaming RPCs and all
// services registered.
func NewServer(deps Deps) *grpc.Server {
	public := deps.Pipeline.Catalog().PublicMethods()
	opts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.AuthUnary(deps.Tokens, public),
			interceptors.AdmissionUnary(deps.Pipeline),
		),
		grpc.ChainStreamInterceptor(
			interceptors.AuthStream(deps.Tokens, public),
			interceptors.AdmissionStream(deps.Pipeline),
		),
	}
	opts = append(opts, deps.Options...)
	s := grpc.NewServer(opts...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers the health service and the embedding application's services with s.
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	hs := deps.Health
	if hs == nil {
		hs = grpchealth.NewServer()
	}
	healthpb.RegisterHealthServer(s, hs)
	if deps.Register != nil {
		deps.Register(s)
	}
}
