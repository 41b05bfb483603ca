package core

import (
	"sync"

	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	room *domain.Room

	mu    sync.RWMutex
	bySID map[SessionID]MemberSession
	order []SessionID

	// fanout serializes broadcasts so every member sees them in issue order.
	fanout sync.Mutex
}

func NewRoomService(room *domain.Room) RoomService {
	return &roomImpl{
		room:  room,
		bySID: make(map[SessionID]MemberSession),
	}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySID)
}

func (r *roomImpl) AddMember(ms MemberSession) {
	sid := ms.ID()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[sid]; !ok {
		r.order = append(r.order, sid)
	}
	r.bySID[sid] = ms
	log.Info().Str("module", "core.room").Str("room", string(r.room.Name)).Str("sid", string(sid)).Msg("member added")
}

func (r *roomImpl) RemoveMember(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[sid]; !ok {
		return
	}
	delete(r.bySID, sid)
	for i, s := range r.order {
		if s == sid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Info().Str("module", "core.room").Str("room", string(r.room.Name)).Str("sid", string(sid)).Msg("member removed")
}

func (r *roomImpl) Members() []MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberSession, 0, len(r.order))
	for _, sid := range r.order {
		out = append(out, r.bySID[sid])
	}
	return out
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	members := r.Members()
	out := make([]MemberDTO, 0, len(members))
	for _, ms := range members {
		out = append(out, MemberDTO{ID: ms.ID(), Name: ms.Meta().Name})
	}
	return out
}

// Broadcast delivers data to every member of the snapshot taken at call time.
// Delivery happens outside the membership lock; a failing member is reported
// in Dropped and does not affect the others.
func (r *roomImpl) Broadcast(data Frame) PublishResult {
	r.fanout.Lock()
	defer r.fanout.Unlock()

	res := PublishResult{}
	for _, m := range r.Members() {
		if err := Deliver(m.Signal(), data); err != nil {
			log.Debug().Err(err).Str("module", "core.room").Str("sid", string(m.ID())).Msg("delivery failed")
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SentTo++
	}
	metrics.AddDelivered(res.SentTo)
	metrics.AddDropped(len(res.Dropped))
	log.Debug().Str("module", "core.room").Str("room", string(r.room.Name)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
