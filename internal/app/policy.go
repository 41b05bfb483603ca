package app

import (
	"fmt"

	"github.com/dkeye/chatrelay/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a member whose connection refused a frame.
type Policy interface {
	OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction
}

// DropPolicy loses the frame and keeps the member.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(core.RoomService, core.MemberSession) BackpressureAction {
	return NoAction
}

// KickPolicy disconnects members that cannot keep up.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(core.RoomService, core.MemberSession) BackpressureAction {
	return KickMember
}

func PolicyFor(mode string) (Policy, error) {
	switch mode {
	case "", "drop":
		return DropPolicy{}, nil
	case "kick":
		return KickPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown backpressure mode %q", mode)
	}
}
