package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/config"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/internal/metrics"
	"github.com/dkeye/chatrelay/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

type Deps struct {
	Config   *config.Config
	Rooms    core.RoomRegistry
	Sessions *app.Registry
	Jokes    core.JokeSource
	Policy   app.Policy
	Limiter  *RoomRateLimiter
}

type SignalWSController struct {
	Deps
}

func NewSignalWSController(deps Deps) *SignalWSController {
	return &SignalWSController{Deps: deps}
}

// WsSignalConn is the send capability of one websocket peer. Frames are
// queued; the write pump drains the queue and then sends the close frame.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu       sync.RWMutex
	closed   bool
	closeMsg []byte
}

var _ core.SignalConnection = (*WsSignalConn)(nil)

func NewWsSignalConn(conn *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{
		conn: conn,
		send: make(chan core.Frame, buffer),
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.CloseWith(websocket.CloseNormalClosure, "")
}

// CloseWith stops accepting frames; queued frames are still flushed before
// the close frame carrying code is written.
func (c *WsSignalConn) CloseWith(code int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeMsg = websocket.FormatCloseMessage(code, text)
	close(c.send)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleSignal serves one chat connection for roomName until the peer goes
// away or ctx is canceled.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context, roomName domain.RoomName) {
	token := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := NewWsSignalConn(ws, ctl.Config.SendBuffer)
	sess := app.NewSession(ctl.Rooms, roomName, conn, ctl.Jokes, ctl.Policy)
	sid := sess.ID()
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("client", token).Str("room", string(roomName)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	ctl.Sessions.Bind(sess, cancel)
	metrics.IncConnections()

	var writer, pinger conc.WaitGroup
	writer.Go(func() { ctl.writePump(ctx, conn) })
	pinger.Go(func() { ctl.keepAlive(ctx, conn) })

	ctl.readPump(ctx, token, sess, conn)

	sess.Close()
	ctl.Sessions.Unbind(sid)
	ctl.Limiter.Forget(string(sid))
	// Let the writer flush what is queued before the socket is torn down.
	conn.Close()
	writer.Wait()
	cancel()
	pinger.Wait()
	metrics.DecConnections()
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("connection finished")
}

// handleDispatchError reports err to the peer and says whether the
// connection should stay open.
func (ctl *SignalWSController) handleDispatchError(sid core.SessionID, c *WsSignalConn, err error) bool {
	switch {
	case errors.Is(err, protocol.ErrMalformed), errors.Is(err, protocol.ErrUnknownType):
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad message, closing")
		ctl.sendJSON(c, protocol.NewError(err.Error()))
		c.CloseWith(websocket.CloseUnsupportedData, "unsupported message")
		return false
	case errors.Is(err, app.ErrJokeUnavailable):
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("joke fetch failed")
		ctl.sendJSON(c, protocol.NewError(app.ErrJokeUnavailable.Error()))
		return true
	default:
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("dispatch failed")
		ctl.sendJSON(c, protocol.NewError("request failed"))
		return true
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = core.Deliver(c, b)
}
