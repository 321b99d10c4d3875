// Package mcpquic carries MCP JSON-RPC sessions over QUIC streams.
//
// Wire format: the client opens one bidirectional stream, sends the
// magic bytes "ALG1", then newline-delimited JSON-RPC messages flow in
// both directions. The ALPN token distinguishes MCP traffic from HTTP/3
// on a shared UDP port.
package mcpquic

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	ALPNProtocolMCP = "allergen-mcp-v1"
	MagicBytesMCP   = "ALG1"

	DefaultHandshakeTimeout = 10 * time.Second
	DefaultIdleTimeout      = 5 * time.Minute
	DefaultKeepAlive        = 30 * time.Second

	streamWindow = 10 << 20
	connWindow   = 50 << 20
)

// ProductionQUICConfig returns the transport tuning shared by server and
// client: generous receive windows for image payloads, keep-alives so idle
// MCP sessions survive NAT timeouts, no 0-RTT.
func ProductionQUICConfig() *quic.Config {
	return &quic.Config{
		MaxStreamReceiveWindow:     streamWindow,
		MaxConnectionReceiveWindow: connWindow,
		MaxIdleTimeout:             DefaultIdleTimeout,
		KeepAlivePeriod:            DefaultKeepAlive,
	}
}

func tlsBase() *tls.Config {
	return &tls.Config{
		NextProtos: []string{ALPNProtocolMCP},
		MinVersion: tls.VersionTLS13,
	}
}

// ServerTLSConfig loads a cert/key pair for a standalone MCP listener.
func ServerTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}
	cfg := tlsBase()
	cfg.Certificates = []tls.Certificate{cert}
	return cfg, nil
}

// SelfSignedTLSConfig builds a dev server config around a throwaway cert.
func SelfSignedTLSConfig() (*tls.Config, error) {
	cert, err := GenerateDevCertificate("localhost")
	if err != nil {
		return nil, err
	}
	cfg := tlsBase()
	cfg.Certificates = []tls.Certificate{cert}
	return cfg, nil
}

// ClientTLSConfig returns a client-side config. insecure skips verification
// and is meant for dev servers running on self-signed certs.
func ClientTLSConfig(insecure bool) *tls.Config {
	cfg := tlsBase()
	cfg.InsecureSkipVerify = insecure
	return cfg
}

// GenerateDevCertificate creates an ECDSA P-256 self-signed certificate
// valid for one year, for the given DNS names plus the loopback addresses.
// Development only.
func GenerateDevCertificate(hosts ...string) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate serial: %w", err)
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"Allergen Detector Dev"},
			CommonName:   "localhost",
		},
		NotBefore:             now,
		NotAfter:              now.AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              hosts,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("create certificate: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("marshal key: %w", err)
	}

	return tls.X509KeyPair(
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
	)
}
