package signal

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/imposter/internal/app"
	"github.com/dkeye/imposter/internal/app/orch"
	"github.com/dkeye/imposter/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

// Poster accepts dispatcher messages.
type Poster interface {
	Post(msg orch.Msg) bool
}

type Options struct {
	ReadLimit      int64
	PingPeriod     time.Duration
	AllowedOrigins []string
	ChatRate       float64
	ChatBurst      int
}

type SignalWSController struct {
	orch     Poster
	registry *app.Registry
	chat     *ChatLimiter
	opts     Options
	upgrader websocket.Upgrader
}

func NewSignalWSController(p Poster, reg *app.Registry, opts Options) *SignalWSController {
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 30 * time.Second
	}
	return &SignalWSController{
		orch:     p,
		registry: reg,
		chat:     NewChatLimiter(opts.ChatRate, opts.ChatBurst),
		opts:     opts,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin(opts.AllowedOrigins)},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

// WsSignalConn is the app.Conn for one websocket. Only the write pump
// writes to the socket.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan app.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan app.Frame, sendBuffer)}
}

func (c *WsSignalConn) TrySend(f app.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return app.ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return app.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// HandleSignal upgrades the request and serves the socket until it closes
// or ctx is done. Every socket gets a fresh connection id.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	id := domain.NewConnID()
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("client", c.GetString("client_token")).Msg("new WS connection")

	conn := newWsSignalConn(ws)
	ctx, cancel := context.WithCancel(ctx)
	ctl.registry.Bind(id, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, id, conn)
}
