package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/internal/metrics"
	"github.com/dkeye/chatrelay/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrJokeUnavailable = errors.New("joke unavailable")

// Session is one connected participant. It is bound to a single room for its
// whole life and owns its send capability and its name.
type Session struct {
	id     core.SessionID
	room   core.RoomService
	conn   core.SignalConnection
	jokes  core.JokeSource
	policy Policy

	meta      atomic.Pointer[domain.Member]
	closeOnce sync.Once
	logger    zerolog.Logger
}

var _ core.MemberSession = (*Session)(nil)

func NewSession(
	rooms core.RoomRegistry,
	roomName domain.RoomName,
	conn core.SignalConnection,
	jokes core.JokeSource,
	policy Policy,
) *Session {
	if policy == nil {
		policy = DropPolicy{}
	}
	id := domain.NewMemberID()
	s := &Session{
		id:     core.SessionID(id),
		room:   rooms.GetOrCreate(roomName),
		conn:   conn,
		jokes:  jokes,
		policy: policy,
	}
	meta := domain.NewMember(id)
	s.meta.Store(&meta)
	s.logger = log.With().
		Str("module", "app.session").
		Str("sid", string(s.id)).
		Str("room", string(roomName)).
		Logger()
	s.logger.Info().Msg("session created")
	return s
}

func (s *Session) ID() core.SessionID            { return s.id }
func (s *Session) Meta() domain.Member           { return *s.meta.Load() }
func (s *Session) Signal() core.SignalConnection { return s.conn }

func (s *Session) name() string { return s.meta.Load().Name }

// Dispatch handles one inbound frame. Decoding errors wrap
// protocol.ErrMalformed or protocol.ErrUnknownType and leave no side effects.
func (s *Session) Dispatch(ctx context.Context, data []byte) error {
	msg, err := protocol.Decode(data)
	if err != nil {
		metrics.IncInbound("invalid")
		return err
	}
	metrics.IncInbound(protocol.Kind(msg))
	switch m := msg.(type) {
	case protocol.Join:
		s.handleJoin(m.Name)
	case protocol.Chat:
		s.handleChat(m.Text)
	case protocol.Joke:
		return s.handleJoke(ctx)
	case protocol.Members:
		s.handleMembers()
	case protocol.Priv:
		s.handlePriv(m.Text, m.User)
	default:
		return fmt.Errorf("%w: %T", protocol.ErrUnknownType, msg)
	}
	return nil
}

func (s *Session) handleJoin(name string) {
	meta := s.Meta().WithName(name)
	s.meta.Store(&meta)
	s.room.AddMember(s)
	s.logger.Info().Str("name", name).Msg("joined")
	s.broadcast(protocol.NewNote(protocol.JoinedText(name, string(s.room.Room().Name))))
}

func (s *Session) handleChat(text string) {
	s.broadcast(protocol.NewChat(s.name(), text))
}

func (s *Session) handleJoke(ctx context.Context) error {
	if s.jokes == nil {
		return ErrJokeUnavailable
	}
	joke, err := s.jokes.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrJokeUnavailable, err)
	}
	s.send(s.conn, protocol.NewJoke(joke))
	return nil
}

func (s *Session) handleMembers() {
	members := s.room.Members()
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Meta().Name)
	}
	s.send(s.conn, protocol.NewMembers(names))
}

func (s *Session) handlePriv(text, user string) {
	var targets []core.MemberSession
	for _, m := range s.room.Members() {
		if m.Meta().Name == user {
			targets = append(targets, m)
		}
	}
	if len(targets) == 0 {
		s.send(s.conn, protocol.NewPrivNotFound())
		return
	}
	// One echo per recipient.
	from := s.name()
	for _, m := range targets {
		s.send(s.conn, protocol.NewPrivEcho(text, user))
		s.send(m.Signal(), protocol.NewPrivDelivery(text, from))
	}
}

// Close leaves the room and announces the departure. Only the first call has
// any effect. A session that never joined still announces, with an empty name.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.room.RemoveMember(s.id)
		s.broadcast(protocol.NewNote(protocol.LeftText(s.name(), string(s.room.Room().Name))))
		s.logger.Info().Msg("session closed")
	})
}

func (s *Session) broadcast(v any) {
	frame, err := protocol.Encode(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("broadcast encode")
		return
	}
	res := s.room.Broadcast(frame)
	for _, slow := range res.Dropped {
		switch s.policy.OnBackPressure(s.room, slow) {
		case KickMember:
			s.logger.Warn().Str("peer", string(slow.ID())).Msg("kicking slow member")
			if conn := slow.Signal(); conn != nil {
				conn.Close()
			}
		case NoAction:
		}
	}
}

// send is best-effort: failures are logged and dropped.
func (s *Session) send(conn core.SignalConnection, v any) {
	frame, err := protocol.Encode(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("send encode")
		return
	}
	if err := core.Deliver(conn, frame); err != nil {
		s.logger.Debug().Err(err).Msg("send dropped")
	}
}
