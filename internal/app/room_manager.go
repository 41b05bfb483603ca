package app

import (
	"sort"
	"sync"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// RoomManager is the process-wide room registry. Rooms live until shutdown.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]core.RoomService
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[domain.RoomName]core.RoomService)}
}

func (f *RoomManager) GetOrCreate(name domain.RoomName) core.RoomService {
	f.mu.RLock()
	room, ok := f.rooms[name]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[name]; ok {
		return room
	}
	room = core.NewRoomService(domain.NewRoom(name))
	f.rooms[name] = room
	metrics.SetRooms(len(f.rooms))
	log.Info().Str("module", "app.rooms").Str("room", string(name)).Msg("room created")
	return room
}

func (f *RoomManager) Get(name domain.RoomName) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[name]
	return room, ok
}

// List returns rooms sorted by name.
func (f *RoomManager) List() []core.RoomInfo {
	f.mu.RLock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for name, r := range f.rooms {
		out = append(out, core.RoomInfo{Name: name, MemberCount: r.MemberCount(), CreatedAt: r.Room().CreatedAt})
	}
	f.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
