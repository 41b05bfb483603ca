package core

import (
	"context"

	"github.com/dkeye/chatrelay/internal/domain"
)

type SessionID string

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	ID() SessionID
	Meta() domain.Member
	Signal() SignalConnection
}

// JokeSource fetches one joke per call.
type JokeSource interface {
	Fetch(ctx context.Context) (string, error)
}
