package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeSelfSigned writes a throwaway certificate and key into dir.
func writeSelfSigned(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "depthd-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalECPrivateKey: %v", err)
	}

	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

func TestServerCredentials_Valid(t *testing.T) {
	dir := t.TempDir()
	cert, key := writeSelfSigned(t, dir)

	creds, err := ServerCredentials(cert, key, "")
	if err != nil {
		t.Fatalf("ServerCredentials: %v", err)
	}
	if got := creds.Info().SecurityProtocol; got != "tls" {
		t.Errorf("SecurityProtocol: got %q, want tls", got)
	}

	// The certificate doubles as its own CA for the mTLS variant.
	if _, err := ServerCredentials(cert, key, cert); err != nil {
		t.Fatalf("ServerCredentials with client ca: %v", err)
	}
}

func TestServerCredentials_Errors(t *testing.T) {
	dir := t.TempDir()
	cert, key := writeSelfSigned(t, dir)
	junk := filepath.Join(dir, "junk.pem")
	if err := os.WriteFile(junk, []byte("not a cert"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name              string
		cert, key, caFile string
		wantErr           string
	}{
		{"missing cert", filepath.Join(dir, "nope.crt"), key, "", "load server cert"},
		{"missing ca", cert, key, filepath.Join(dir, "nope.pem"), "read client ca"},
		{"junk ca", cert, key, junk, "no valid certs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ServerCredentials(tt.cert, tt.key, tt.caFile)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err: got %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
