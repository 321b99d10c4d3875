// Package chassis runs the scanner's public surface on one port over two
// sockets:
//
//   - TCP: HTTP/1.1 + HTTP/2 over TLS, the curl-friendly REST API
//   - UDP: QUIC, demuxed by ALPN into HTTP/3 ("h3", same handler as TCP)
//     and MCP JSON-RPC streams (the project MCP token)
//
// HTTP responses carry an Alt-Svc header so HTTP/2 clients can upgrade to
// HTTP/3 on their own. Without configured cert files a self-signed dev
// certificate is generated at startup.
package chassis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"

	"github.com/nafeeshossain/allergen-detector/pkg/mcpquic"
)

// Config holds the chassis settings.
type Config struct {
	Addr      string            // listen address, TCP and UDP on the same port
	TLS       *tls.Config       // explicit TLS config; nil falls back to cert files or a dev cert
	CertFile  string            // production cert path
	KeyFile   string            // production key path
	Handler   http.Handler      // scanner API mux, served on every HTTP variant
	MCPServer *server.MCPServer // nil disables the MCP ALPN branch
	Logger    *slog.Logger
}

// Server owns both listeners. Start runs them; Stop drains them.
type Server struct {
	cfg        Config
	logger     *slog.Logger
	tlsCfg     *tls.Config
	mcpHandler *mcpquic.Handler

	tcpServer *http.Server
	h3Server  *http3.Server
	quicLn    *quic.Listener
}

func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	tlsCfg, err := resolveTLS(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, logger: cfg.Logger, tlsCfg: tlsCfg}
	if cfg.MCPServer != nil {
		s.mcpHandler = mcpquic.NewHandler(cfg.MCPServer, cfg.Logger)
	}
	return s, nil
}

func resolveTLS(cfg Config) (*tls.Config, error) {
	switch {
	case cfg.TLS != nil:
		return cfg.TLS, nil
	case cfg.CertFile != "" && cfg.KeyFile != "":
		tlsCfg, err := ProductionTLSConfig(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load TLS cert: %w", err)
		}
		cfg.Logger.Info("TLS: production certs loaded")
		return tlsCfg, nil
	default:
		tlsCfg, err := DevelopmentTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("generate dev TLS: %w", err)
		}
		cfg.Logger.Info("TLS: self-signed dev cert generated")
		return tlsCfg, nil
	}
}

// Start brings up both listeners and blocks until ctx is cancelled or a
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	handler := s.wrap(s.cfg.Handler)

	errCh := make(chan error, 2)
	if err := s.startTCP(handler, errCh); err != nil {
		return err
	}
	if err := s.startQUIC(ctx, handler, errCh); err != nil {
		return err
	}

	s.logger.Info("chassis started",
		"addr", s.cfg.Addr,
		"tcp", "HTTP/1.1+HTTP/2 (TLS)",
		"udp", "QUIC (HTTP/3 + MCP)",
	)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// wrap adds the security headers and the HTTP/3 upgrade advertisement.
func (s *Server) wrap(next http.Handler) http.Handler {
	_, port, _ := net.SplitHostPort(s.cfg.Addr)
	if port == "" {
		port = "8420"
	}
	altSvc := fmt.Sprintf(`h3=":%s"; ma=86400`, port)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Alt-Svc", altSvc)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) startTCP(handler http.Handler, errCh chan<- error) error {
	tcpTLS := s.tlsCfg.Clone()
	tcpTLS.NextProtos = []string{"h2", "http/1.1"}

	ln, err := tls.Listen("tcp", s.cfg.Addr, tcpTLS)
	if err != nil {
		return fmt.Errorf("TCP listen: %w", err)
	}

	s.tcpServer = &http.Server{
		Addr:      s.cfg.Addr,
		Handler:   handler,
		TLSConfig: tcpTLS,
	}

	go func() {
		s.logger.Info("TCP listener ready", "addr", s.cfg.Addr, "proto", "HTTP/1.1+HTTP/2")
		if err := s.tcpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("TCP: %w", err)
		}
	}()
	return nil
}

func (s *Server) startQUIC(ctx context.Context, handler http.Handler, errCh chan<- error) error {
	ln, err := quic.ListenAddr(s.cfg.Addr, s.tlsCfg, mcpquic.ProductionQUICConfig())
	if err != nil {
		return fmt.Errorf("QUIC listen: %w", err)
	}
	s.quicLn = ln
	s.h3Server = &http3.Server{Handler: handler}

	go func() {
		s.logger.Info("UDP listener ready", "addr", s.cfg.Addr, "proto", "QUIC")
		for {
			conn, err := ln.Accept(ctx)
			if err != nil {
				if ctx.Err() == nil {
					errCh <- fmt.Errorf("QUIC accept: %w", err)
				}
				return
			}
			go s.routeQUIC(ctx, conn)
		}
	}()
	return nil
}

// routeQUIC dispatches an accepted QUIC connection by negotiated ALPN.
func (s *Server) routeQUIC(ctx context.Context, conn *quic.Conn) {
	switch alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn {
	case "h3":
		if err := s.h3Server.ServeQUICConn(conn); err != nil {
			s.logger.Debug("HTTP/3 conn done", "remote", conn.RemoteAddr(), "error", err)
		}
	case mcpquic.ALPNProtocolMCP:
		if s.mcpHandler == nil {
			conn.CloseWithError(mcpquic.ConnErrorProtocolViolation, "MCP not enabled")
			return
		}
		s.mcpHandler.ServeConn(ctx, conn)
	default:
		s.logger.Warn("unknown ALPN, closing", "alpn", alpn, "remote", conn.RemoteAddr())
		conn.CloseWithError(mcpquic.ConnErrorUnsupportedALPN, "unsupported ALPN: "+alpn)
	}
}

// Stop shuts down every listener, draining in-flight HTTP requests until
// ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("chassis stopping")

	var firstErr error
	if s.tcpServer != nil {
		if err := s.tcpServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.h3Server != nil {
		if err := s.h3Server.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.quicLn != nil {
		if err := s.quicLn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.logger.Info("chassis stopped")
	return firstErr
}
