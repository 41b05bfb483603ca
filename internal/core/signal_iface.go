package core

import (
	"errors"
	"fmt"
)

// Frame is one serialized outbound payload.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
//
//go:generate mockgen -destination=mocks/mock_core.go -package=mocks github.com/dkeye/chatrelay/internal/core SignalConnection,JokeSource
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Deliver hands f to conn. A panicking transport is reported as an error so
// one broken peer never takes down the caller.
func Deliver(conn SignalConnection, f Frame) (err error) {
	if conn == nil {
		return ErrConnClosed
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()
	return conn.TrySend(f)
}
