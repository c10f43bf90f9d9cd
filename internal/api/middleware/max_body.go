package middleware

import (
	"net/http"

	"github.com/cloo-solutions/ragdoc/internal/api"
)

// MaxBodyBytes caps request bodies at limit bytes. A declared length over
// the cap is rejected before the handler runs; chunked bodies are cut off by
// http.MaxBytesReader and surface as *http.MaxBytesError to the handler.
// A non-positive limit disables the cap.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				api.TooLarge(w)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
