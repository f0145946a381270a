package interceptors

import (
	"context"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"

	"lexgate/backend/internal/admission"
	admissiondomain "lexgate/backend/internal/admission/domain"
)

// AdmissionUnary returns a unary server interceptor that runs the admission pipeline after AuthUnary.
// Denied requests never reach the handler; they fail with the decision's gRPC status and its details as
// trailers. Allowed requests get their quota details as headers, and trial usage is recorded only when the
// handler succeeds.
func AdmissionUnary(p *admission.Pipeline) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if p.Catalog().IsPublic(info.FullMethod) {
			return handler(ctx, req)
		}

		adm, d := p.Admit(ctx, info.FullMethod, req)
		md := DecisionMetadata(d)
		if !d.Allowed {
			logDenied(ctx, info.FullMethod, adm, d)
			_ = grpc.SetTrailer(ctx, md)
			return nil, StatusFor(d)
		}
		if md.Len() > 0 {
			_ = grpc.SetHeader(ctx, md)
		}

		resp, err := handler(ctx, req)
		if err == nil {
			p.Complete(ctx, adm)
		}
		return resp, err
	}
}

// AdmissionStream runs the admission pipeline once when a stream opens, after AuthStream. Streams carry no
// single request message, so resource ownership is left to the handler (rbac.RequireResourceAccess).
// Trial usage is recorded when the handler returns without error.
func AdmissionStream(p *admission.Pipeline) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if p.Catalog().IsPublic(info.FullMethod) {
			return handler(srv, ss)
		}

		ctx := ss.Context()
		adm, d := p.Admit(ctx, info.FullMethod, nil)
		md := DecisionMetadata(d)
		if !d.Allowed {
			logDenied(ctx, info.FullMethod, adm, d)
			ss.SetTrailer(md)
			return StatusFor(d)
		}
		if md.Len() > 0 {
			_ = ss.SetHeader(md)
		}

		if err := handler(srv, ss); err != nil {
			return err
		}
		p.Complete(ctx, adm)
		return nil
	}
}

func logDenied(ctx context.Context, method string, adm admission.Admission, d admissiondomain.Decision) {
	log.Info().
		Str("method", method).
		Str("client_ip", ClientIP(ctx)).
		Str("user_id", adm.Tenant.User.ID).
		Str("session_id", adm.Tenant.SessionID).
		Str("tenant_id", adm.Tenant.TenantID).
		Str("reason", string(d.Reason)).
		Bool("unavailable", d.Unavailable).
		Msg("admission: denied")
}
