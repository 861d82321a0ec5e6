package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ModeAPIKey is the only mode that enforces a key.
const ModeAPIKey = "apikey"

func enforced(mode, key string) bool {
	return mode == ModeAPIKey && key != ""
}

func matches(got, key string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1
}

// APIKeyInterceptor returns a gRPC UnaryServerInterceptor that checks the
// value of header in the incoming metadata against key.
//
// header should be lowercase; gRPC normalises metadata keys to lowercase.
func APIKeyInterceptor(mode, header, key string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if !enforced(mode, key) {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		vals := md.Get(header)
		if len(vals) == 0 || !matches(vals[0], key) {
			return nil, status.Error(codes.Unauthenticated, "invalid api key")
		}

		return handler(ctx, req)
	}
}

// APIKeyMiddleware wraps next with the same check for HTTP requests.
// Paths listed in open (e.g. the health probe) skip the check.
// Rejected requests get 401 with a JSON error body.
func APIKeyMiddleware(mode, header, key string, open ...string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(open))
	for _, p := range open {
		skip[p] = true
	}
	return func(next http.Handler) http.Handler {
		if !enforced(mode, key) {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get(header)
			if got == "" || !matches(got, key) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
