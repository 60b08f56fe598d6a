// Package gateway serves the change feed to browser clients over
// WebSocket, next to the daemon's gRPC socket.
package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matheus3301/huddle/internal/api"
	"github.com/matheus3301/huddle/internal/realtime"
	"github.com/matheus3301/huddle/internal/store"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// Clients only send control frames.
	maxMessageSize = 512
)

// Feed opens change streams.
type Feed interface {
	Subscribe(ctx context.Context, filter store.ChangeFilter) (store.ChangeStream, error)
}

// Gateway upgrades /v1/watch requests and streams change envelopes.
type Gateway struct {
	feed        Feed
	sessionName string
	logger      *zap.Logger
	upgrader    websocket.Upgrader
}

// New creates a gateway over feed.
func New(feed Feed, sessionName string, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		feed:        feed,
		sessionName: sessionName,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Handler returns the gateway's HTTP routes.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/watch", g.handleWatch)
	return mux
}

// FilterFromQuery reads a change filter from table, chat_id, user_id and
// member_of query parameters. table defaults to messages; events streams
// new activities.
func FilterFromQuery(r *http.Request) (store.ChangeFilter, error) {
	q := r.URL.Query()
	f := store.ChangeFilter{
		Table:    q.Get("table"),
		ChatID:   q.Get("chat_id"),
		UserID:   q.Get("user_id"),
		MemberOf: q.Get("member_of"),
	}
	if f.Table == "" {
		f.Table = store.TableMessages
	}
	if !store.KnownTable(f.Table) {
		return f, realtime.ErrInvalid
	}
	return f, nil
}

func (g *Gateway) handleWatch(w http.ResponseWriter, r *http.Request) {
	filter, err := FilterFromQuery(r)
	if err != nil {
		http.Error(w, "unknown table", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe first so every change after the handshake is delivered.
	changes, err := g.feed.Subscribe(ctx, filter)
	if err != nil {
		g.logger.Warn("websocket subscribe failed", zap.Error(err))
		http.Error(w, "subscribe failed", http.StatusInternalServerError)
		return
	}
	defer func() { _ = changes.Close() }()

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		g.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	g.logger.Debug("websocket watcher connected", zap.String("remote", r.RemoteAddr), zap.String("table", filter.Table))
	go g.readPump(conn, cancel, changes)
	g.writePump(ctx, conn, changes)
}

// readPump discards client frames and keeps the read deadline fresh. It
// ends the session when the client goes away.
func (g *Gateway) readPump(conn *websocket.Conn, cancel context.CancelFunc, changes store.ChangeStream) {
	defer func() {
		cancel()
		_ = changes.Close()
	}()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
	}
}

type recvResult struct {
	change store.Change
	err    error
}

func (g *Gateway) writePump(ctx context.Context, conn *websocket.Conn, changes store.ChangeStream) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	next := make(chan recvResult)
	go func() {
		for {
			c, err := changes.Recv()
			select {
			case next <- recvResult{c, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case res := <-next:
			if res.err != nil {
				if errors.Is(res.err, realtime.ErrEventsDropped) {
					g.closeWith(conn, websocket.CloseTryAgainLater, "events dropped, resubscribe")
				} else if !errors.Is(res.err, realtime.ErrStreamClosed) && ctx.Err() == nil {
					g.closeWith(conn, websocket.CloseInternalServerErr, "stream failed")
				}
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(api.NewEnvelope(g.sessionName, res.change)); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// Server runs a gateway on a TCP address.
type Server struct {
	http     *http.Server
	listener net.Listener
	logger   *zap.Logger
	// cancel ends hijacked connections, which Shutdown does not track.
	cancel context.CancelFunc
}

// Listen binds addr and prepares the HTTP server.
func Listen(addr string, g *Gateway, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	base, cancel := context.WithCancel(context.Background())
	return &Server{
		http: &http.Server{
			Handler:           g.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return base },
		},
		listener: l,
		logger:   logger,
		cancel:   cancel,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Serve blocks until the server is shut down.
func (s *Server) Serve() error {
	s.logger.Info("websocket gateway listening", zap.String("addr", s.Addr()))
	if err := s.http.Serve(s.listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting and closes open connections once ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	err := s.http.Shutdown(ctx)
	if err != nil {
		_ = s.http.Close()
	}
	return err
}
