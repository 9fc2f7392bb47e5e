package middleware

import (
	"net/http"

	"github.com/kbukum/speakerembed/util"
)

const defaultMaxBodySize = 32 * 1024 * 1024

// BodySizeLimit returns middleware that caps the request body at the given
// size string (e.g. "32MB"). Reads past the cap fail with *http.MaxBytesError.
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}
