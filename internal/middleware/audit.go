package middleware

import (
	"net/http"
	"time"

	"github.com/atendeflow/gateway/internal/audit"
	"github.com/atendeflow/gateway/internal/logging"
)

// AuditMiddleware records each completed request in the audit log.
func AuditMiddleware(log *audit.Log) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			log.Add(audit.Entry{
				Time:       time.Now().UTC(),
				User:       GetUserID(r.Context()),
				Tenant:     GetTenant(r.Context()),
				Method:     r.Method,
				Path:       r.URL.Path,
				Status:     rw.statusCode,
				RemoteAddr: r.RemoteAddr,
				UserAgent:  r.UserAgent(),
				TraceID:    logging.TraceIDFromContext(r.Context()),
			})
		})
	}
}
