package middleware

import (
	"net/http"

	"github.com/expenseflow/expense-approval/pkg/logger"
	"github.com/google/uuid"
)

const traceHeader = "X-Trace-ID"

// RequestID attaches a trace id to the request-scoped logger and echoes it on
// the response. An incoming id from an upstream proxy is kept; otherwise a
// fresh one is minted.
func RequestID(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		w.Header().Set(traceHeader, traceID)

		ctx := logger.With(r.Context(), "trace_id", traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
	return http.HandlerFunc(fn)
}
