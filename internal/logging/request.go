package logging

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const requestIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateRequestID returns an id of the form req_<unix millis>_<9 base36 chars>
func GenerateRequestID() string {
	now := time.Now()
	suffix, err := gonanoid.Generate(requestIDAlphabet, 9)
	if err != nil {
		suffix = strconv.FormatInt(now.UnixNano()%1_000_000_000, 36)
	}
	return fmt.Sprintf("req_%d_%s", now.UnixMilli(), suffix)
}

// RequestInfo describes the inbound request a record belongs to
type RequestInfo struct {
	RequestID string
	Method    string
	URL       string
	UserAgent string
	IPAddress string
}

type requestInfoKey struct{}

// WithRequestInfo stores info in ctx
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFromContext returns the stored info, or the zero value
func RequestInfoFromContext(ctx context.Context) RequestInfo {
	if ctx == nil {
		return RequestInfo{}
	}
	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info
}

// RequestIDFromContext returns the request id stored in ctx
func RequestIDFromContext(ctx context.Context) string {
	return RequestInfoFromContext(ctx).RequestID
}

// RequestInfoFromHTTP extracts client details from r
func RequestInfoFromHTTP(r *http.Request, requestID string) RequestInfo {
	return RequestInfo{
		RequestID: requestID,
		Method:    r.Method,
		URL:       r.URL.String(),
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
