package remote

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/banddepth/banddepth/internal/auth"
	"github.com/banddepth/banddepth/internal/config"
	"github.com/banddepth/banddepth/pkg/depthv1"
)

const (
	backoffInitial     = 200 * time.Millisecond
	backoffMax         = 10 * time.Second
	backoffMultiplier  = 2.0
	defaultCallTimeout = 30 * time.Second
	defaultAttempts    = 4
)

// AuthConfig selects how the client authenticates.
type AuthConfig struct {
	// Mode is one of: none | apikey | jwt | mtls.
	Mode string

	// Header is the metadata key the API key is sent in (default x-api-key).
	Header string
	// Key is the API key, or the bearer token in jwt mode. KeyEnv, if set,
	// names an environment variable that overrides it.
	Key    string
	KeyEnv string

	// mTLS files, used when Mode == "mtls". CAFile is optional.
	CertFile string
	KeyFile  string
	CAFile   string
}

func (a AuthConfig) key() string {
	if a.KeyEnv != "" {
		if v := os.Getenv(a.KeyEnv); v != "" {
			return v
		}
	}
	return a.Key
}

func (a AuthConfig) header() string {
	if a.Header != "" {
		return a.Header
	}
	return config.DefaultAuthHeader
}

// Config configures a Client.
type Config struct {
	Endpoint string
	Auth     AuthConfig
	// CallTimeout bounds each attempt (default 30s).
	CallTimeout time.Duration
	// Attempts is the maximum number of tries per call (default 4).
	Attempts int
}

// Client calls a remote DepthService.
type Client struct {
	cfg     Config
	conn    *grpc.ClientConn // nil when built with NewClient
	stub    depthv1.DepthServiceClient
	backoff func() *backoff // injectable for tests
}

// Dial connects to cfg.Endpoint.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	opts, err := dialOptions(cfg.Auth)
	if err != nil {
		return nil, err
	}
	conn, err := grpc.DialContext(ctx, cfg.Endpoint, opts...) //nolint:staticcheck // DialContext kept for grpc 1.62
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", cfg.Endpoint, err)
	}
	c := NewClient(conn, cfg)
	c.conn = conn
	return c, nil
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface, cfg Config) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultAttempts
	}
	return &Client{
		cfg:     cfg,
		stub:    depthv1.NewDepthServiceClient(cc),
		backoff: newBackoff,
	}
}

// Close closes the connection opened by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Query scores curves against a remote ensemble.
func (c *Client) Query(ctx context.Context, req *depthv1.QueryRequest) (*depthv1.QueryResponse, error) {
	var out *depthv1.QueryResponse
	err := c.call(ctx, "Query", func(ctx context.Context) (err error) {
		out, err = c.stub.Query(ctx, req)
		return err
	})
	return out, err
}

// ListEnsembles lists the remote ensembles.
func (c *Client) ListEnsembles(ctx context.Context) (*depthv1.ListEnsemblesResponse, error) {
	var out *depthv1.ListEnsemblesResponse
	err := c.call(ctx, "ListEnsembles", func(ctx context.Context) (err error) {
		out, err = c.stub.ListEnsembles(ctx, &depthv1.ListEnsemblesRequest{})
		return err
	})
	return out, err
}

// PutEnsemble uploads an ensemble.
func (c *Client) PutEnsemble(ctx context.Context, req *depthv1.PutEnsembleRequest) (*depthv1.PutEnsembleResponse, error) {
	var out *depthv1.PutEnsembleResponse
	err := c.call(ctx, "PutEnsemble", func(ctx context.Context) (err error) {
		out, err = c.stub.PutEnsemble(ctx, req)
		return err
	})
	return out, err
}

// call runs fn with retries. Permanent errors and the last attempt's error
// are returned as is so callers can inspect the status code.
func (c *Client) call(ctx context.Context, method string, fn func(context.Context) error) error {
	bo := c.backoff()
	for attempt := 1; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		err := fn(c.withCredentials(callCtx))
		cancel()

		if err == nil || isPermanentError(err) || attempt >= c.cfg.Attempts || ctx.Err() != nil {
			return err
		}

		wait := bo.next()
		slog.Warn("remote: call failed, will retry",
			"method", method,
			"attempt", attempt,
			"err", err,
			"retry_in", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// withCredentials attaches the API key or bearer token to outgoing metadata.
func (c *Client) withCredentials(ctx context.Context) context.Context {
	key := c.cfg.Auth.key()
	if key == "" {
		return ctx
	}
	switch c.cfg.Auth.Mode {
	case "apikey":
		return metadata.AppendToOutgoingContext(ctx, c.cfg.Auth.header(), key)
	case "jwt":
		return metadata.AppendToOutgoingContext(ctx, auth.AuthorizationHeader, "Bearer "+key)
	}
	return ctx
}

// isPermanentError returns true for status codes that retrying cannot fix.
func isPermanentError(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied,
		codes.NotFound, codes.FailedPrecondition, codes.Unimplemented:
		return true
	}
	return false
}

// dialOptions builds grpc.DialOption slice based on the auth config.
func dialOptions(auth AuthConfig) ([]grpc.DialOption, error) {
	switch auth.Mode {
	case "mtls":
		creds, err := buildMTLSCreds(auth)
		if err != nil {
			return nil, fmt.Errorf("remote: build mtls creds: %w", err)
		}
		return []grpc.DialOption{grpc.WithTransportCredentials(creds)}, nil

	case "apikey", "jwt", "none", "":
		// Credentials travel in per-call metadata; put depthd behind TLS
		// termination when it leaves the host.
		return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, nil

	default:
		return nil, fmt.Errorf("remote: unknown auth mode %q: want none|apikey|jwt|mtls", auth.Mode)
	}
}

// buildMTLSCreds loads the client certificate and optional CA.
func buildMTLSCreds(auth AuthConfig) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(auth.CertFile, auth.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load client cert: %w", err)
	}

	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if auth.CAFile != "" {
		caPEM, err := os.ReadFile(auth.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("no valid certs in ca file %q", auth.CAFile)
		}
		tlsCfg.RootCAs = pool
	}

	return credentials.NewTLS(tlsCfg), nil
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
	max     time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial, max: backoffMax}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// Apply ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > b.max {
		b.current = b.max
	}
	return d
}
