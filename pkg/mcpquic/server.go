package mcpquic

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"

	"github.com/nafeeshossain/allergen-detector/pkg/kit"
)

// Handler serves individual MCP-over-QUIC connections without owning a
// listener. The chassis hands it connections after ALPN demuxing; the
// standalone Listener below wraps it with its own accept loop.
type Handler struct {
	mcp    *server.MCPServer
	logger *slog.Logger
}

func NewHandler(mcpSrv *server.MCPServer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{mcp: mcpSrv, logger: logger}
}

// ServeConn runs one MCP session over the connection's first stream and
// returns when the peer disconnects or the handshake fails.
func (h *Handler) ServeConn(ctx context.Context, conn *quic.Conn) {
	log := h.logger.With("remote", conn.RemoteAddr().String())

	stream, err := h.handshake(ctx, conn)
	if err != nil {
		log.Error("MCP handshake failed", "error", err)
		return
	}

	sess := newQUICSession(stream)
	log = log.With("session", sess.SessionID())

	if err := h.mcp.RegisterSession(ctx, sess); err != nil {
		log.Error("session register failed", "error", err)
		stream.Close()
		return
	}
	defer h.mcp.UnregisterSession(ctx, sess.SessionID())

	ctx = kit.WithTransport(ctx, "mcp_quic")
	ctx = h.mcp.WithContext(ctx, sess)

	go sess.pumpNotifications(ctx)

	log.Info("MCP session started")
	h.serveStream(ctx, log, sess, stream)
	log.Info("MCP session ended")
}

// handshake accepts the first stream and consumes the magic bytes.
func (h *Handler) handshake(ctx context.Context, conn *quic.Conn) (*quic.Stream, error) {
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(ConnErrorProtocolViolation, "stream accept failed")
		return nil, err
	}

	if err := ValidateMagicBytes(stream); err != nil {
		stream.CancelWrite(StreamErrorProtocolConfusion)
		stream.CancelRead(StreamErrorProtocolConfusion)
		conn.CloseWithError(ConnErrorProtocolViolation, "invalid magic bytes")
		return nil, err
	}
	return stream, nil
}

// serveStream reads newline-delimited JSON-RPC requests and writes the
// server's responses back on the same stream.
func (h *Handler) serveStream(ctx context.Context, log *slog.Logger, sess *quicSession, stream *quic.Stream) {
	r := bufio.NewReader(stream)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.Error("MCP read error", "error", err)
			}
			return
		}

		msg := line[:len(line)-1]
		if len(msg) == 0 {
			continue
		}

		resp := h.mcp.HandleMessage(ctx, json.RawMessage(msg))
		if resp == nil {
			continue
		}
		if err := sess.writeJSON(resp); err != nil {
			log.Error("MCP write error", "error", err)
			return
		}
	}
}

// Listener is the standalone variant: it owns a QUIC listener whose TLS
// config offers only the MCP ALPN token.
type Listener struct {
	ln      *quic.Listener
	handler *Handler
	logger  *slog.Logger
}

func NewListener(addr string, tlsCfg *tls.Config, mcpSrv *server.MCPServer, logger *slog.Logger) (*Listener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := quic.ListenAddr(addr, tlsCfg, ProductionQUICConfig())
	if err != nil {
		return nil, err
	}
	logger.Info("MCP QUIC listener ready", "addr", addr)
	return &Listener{ln: ln, handler: NewHandler(mcpSrv, logger), logger: logger}, nil
}

func (l *Listener) Serve(ctx context.Context) error {
	for {
		conn, err := l.ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Error("QUIC accept error", "error", err)
			continue
		}

		if alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn != ALPNProtocolMCP {
			conn.CloseWithError(ConnErrorUnsupportedALPN, "unsupported ALPN: "+alpn)
			continue
		}
		go l.handler.ServeConn(ctx, conn)
	}
}

// Addr reports the bound UDP address, useful with a ":0" listen address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) Close() error { return l.ln.Close() }

// quicSession implements server.ClientSession. All stream writes funnel
// through writeJSON so responses and async notifications never interleave
// mid-line.
type quicSession struct {
	id            string
	notifications chan mcp.JSONRPCNotification
	initialized   atomic.Bool

	mu sync.Mutex
	w  io.Writer
}

func newQUICSession(w io.Writer) *quicSession {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return &quicSession{
		id:            "quic_" + hex.EncodeToString(b),
		notifications: make(chan mcp.JSONRPCNotification, 100),
		w:             w,
	}
}

func (s *quicSession) SessionID() string                                   { return s.id }
func (s *quicSession) NotificationChannel() chan<- mcp.JSONRPCNotification { return s.notifications }
func (s *quicSession) Initialize()                                         { s.initialized.Store(true) }
func (s *quicSession) Initialized() bool                                   { return s.initialized.Load() }

func (s *quicSession) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(append(data, '\n'))
	return err
}

func (s *quicSession) pumpNotifications(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif := <-s.notifications:
			_ = s.writeJSON(notif)
		}
	}
}
