package signal

import (
	"context"
	"time"

	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	defer func() { _ = c.conn.Close() }()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, c.closeMsg, time.Now().Add(ctl.Config.WriteWait))
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Config.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// keepAlive pings the peer and tears the socket down when ctx ends, which
// unblocks the read pump.
func (ctl *SignalWSController) keepAlive(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Config.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = c.conn.Close()
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.Config.WriteWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, token string, sess *app.Session, c *WsSignalConn) {
	sid := sess.ID()
	defer log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")

	pongWait := ctl.Config.PongWait()
	c.conn.SetReadLimit(ctl.Config.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		if !ctl.Limiter.Allow(string(sid)) {
			log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("client", token).Msg("rate limited")
			ctl.sendJSON(c, protocol.NewError("rate limited"))
			continue
		}
		if err := sess.Dispatch(ctx, data); err != nil {
			if !ctl.handleDispatchError(sid, c, err) {
				return
			}
		}
	}
}
