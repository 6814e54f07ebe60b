package middleware

import (
	"log/slog"
	"net/http"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/logger"
)

// StaffIDHeader identifies the staff member operating the register. It is set
// by the authenticating proxy in front of this service.
const StaffIDHeader = "X-Staff-ID"

// RequestLogger stores a logger enriched with correlation, staff and trace
// fields in the request context. Mount it after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if staffID := r.Header.Get(StaffIDHeader); staffID != "" {
				ctx = logger.WithStaffID(ctx, staffID)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
