package chassis

import (
	"crypto/tls"
	"fmt"

	"github.com/nafeeshossain/allergen-detector/pkg/mcpquic"
)

// Both chassis listeners share one TLS config. NextProtos carries every
// protocol the demux understands: "h3" for HTTP/3 and the project MCP
// token; the TCP side narrows it to h2/http1.1 at listen time.
func dualALPN(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		MinVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"h3", mcpquic.ALPNProtocolMCP},
	}
}

// DevelopmentTLSConfig builds a config around a freshly generated
// self-signed cert. Dev only.
func DevelopmentTLSConfig() (*tls.Config, error) {
	cert, err := mcpquic.GenerateDevCertificate("localhost")
	if err != nil {
		return nil, fmt.Errorf("generate dev cert: %w", err)
	}
	return dualALPN(cert), nil
}

// ProductionTLSConfig loads the cert/key pair given in the server config.
func ProductionTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}
	return dualALPN(cert), nil
}
