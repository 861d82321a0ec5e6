// Package remote is a client for a running depthd's gRPC DepthService.
//
// Dial opens the connection with transport credentials chosen by
// Config.Auth.Mode (none | apikey | jwt | mtls). Each call carries the API
// key or bearer token in outgoing metadata, runs under a per-attempt timeout,
// and is retried with truncated exponential backoff and jitter unless the
// server answered with a permanent status code.
package remote
