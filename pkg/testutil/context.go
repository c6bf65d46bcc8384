package testutil

import (
	"net/http"
	"time"

	"newsletter/pkg/requestcontext"
)

// WithClientIP sets the client address the way the ClientMetadata
// middleware would.
func WithClientIP(req *http.Request, ip string) *http.Request {
	ctx := requestcontext.WithClientMetadata(req.Context(), ip, req.Header.Get("User-Agent"))
	return req.WithContext(ctx)
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
