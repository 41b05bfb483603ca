package core

import (
	"time"

	"github.com/dkeye/chatrelay/internal/domain"
)

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SentTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID   SessionID `json:"id"`
	Name string    `json:"name"`
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	// Members is a point-in-time snapshot in join order.
	Members() []MemberSession
	MembersSnapshot() []MemberDTO

	AddMember(ms MemberSession)
	RemoveMember(sid SessionID)
	Broadcast(data Frame) PublishResult
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"member_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

// RoomRegistry hands out one shared RoomService per name. Rooms are never removed.
type RoomRegistry interface {
	GetOrCreate(name domain.RoomName) RoomService
	Get(name domain.RoomName) (RoomService, bool)
	List() []RoomInfo
}
