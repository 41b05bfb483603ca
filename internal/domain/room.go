package domain

import "time"

type RoomName string

// Room is the identity of a broadcast domain. Membership lives in core.
type Room struct {
	Name      RoomName
	CreatedAt time.Time
}

func NewRoom(name RoomName) *Room {
	return &Room{Name: name, CreatedAt: time.Now()}
}
