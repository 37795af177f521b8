package api

import (
	"net/http"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/logging"
)

// RequestIDHeader carries the request id back to the caller
const RequestIDHeader = "X-Request-Id"

// RequestContext assigns a request id and stores the request metadata in the context
// so every category logger picks it up.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := logging.GenerateRequestID()
		w.Header().Set(RequestIDHeader, id)
		ctx := logging.WithRequestInfo(r.Context(), logging.RequestInfoFromHTTP(r, id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
