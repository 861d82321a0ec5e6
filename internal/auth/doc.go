// Package auth enforces API key authentication for depthd.
//
// APIKeyInterceptor guards the gRPC depth service and APIKeyMiddleware guards
// the REST API. Both read the key from the same header name and share the
// same rule: when mode != "apikey" or no key is configured every call passes
// through, otherwise a missing or wrong key is rejected.
//
// ServerCredentials builds the gRPC listener's TLS credentials, optionally
// requiring client certificates.
package auth
