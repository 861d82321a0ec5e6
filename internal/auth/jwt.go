package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ModeJWT accepts HS256 bearer tokens signed with a shared secret.
const ModeJWT = "jwt"

// AuthorizationHeader carries "Bearer <token>" in both HTTP headers and
// gRPC metadata.
const AuthorizationHeader = "authorization"

var errNoBearer = errors.New("missing bearer token")

// IssueToken signs an HS256 token for subject that expires after ttl.
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("auth: empty jwt secret")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// VerifyToken checks the signature and expiry of token.
func VerifyToken(secret []byte, token string) (*jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	return &claims, nil
}

func bearer(v string) (string, error) {
	const prefix = "bearer "
	if len(v) <= len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return "", errNoBearer
	}
	return strings.TrimSpace(v[len(prefix):]), nil
}

// JWTInterceptor returns a gRPC UnaryServerInterceptor that requires a valid
// bearer token in the authorization metadata. An empty secret disables it.
func JWTInterceptor(secret []byte) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if len(secret) == 0 {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		vals := md.Get(AuthorizationHeader)
		if len(vals) == 0 {
			return nil, status.Error(codes.Unauthenticated, errNoBearer.Error())
		}
		token, err := bearer(vals[0])
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		if _, err := VerifyToken(secret, token); err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(ctx, req)
	}
}

// JWTMiddleware applies the same check to HTTP requests. Paths listed in
// open skip it.
func JWTMiddleware(secret []byte, open ...string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(open))
	for _, p := range open {
		skip[p] = true
	}
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			token, err := bearer(r.Header.Get(AuthorizationHeader))
			if err == nil {
				_, err = VerifyToken(secret, token)
			}
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid token"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
