package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/emberforge/internal/platform/errors"

	"github.com/louisbranch/emberforge/internal/platform/requestctx"
)

// authenticate verifies the bearer token and stamps the player identity
// onto the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			s.writeError(w, r, apperrors.New(apperrors.CodeUnauthenticated, "bearer token is required"))
			return
		}

		identity, err := s.verifier.Verify(token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := requestctx.WithPlayerID(r.Context(), identity.PlayerID)
		ctx = requestctx.WithRole(ctx, identity.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger traces each request and logs its outcome with the trace
// id when one is recorded.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	tracer := otel.Tracer("emberforge/server")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		var traceID string
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
			traceID = sc.TraceID().String()
		}
		s.logger.Printf(
			"request method=%s path=%s status=%d duration=%v request_id=%s trace_id=%s",
			r.Method,
			r.URL.Path,
			ww.Status(),
			time.Since(start),
			middleware.GetReqID(r.Context()),
			traceID,
		)
	})
}
