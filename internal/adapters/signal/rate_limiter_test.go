package signal

import (
	"testing"
	"time"
)

func TestRoomRateLimiter(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRoomRateLimiter(2, 10*time.Second)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two attempts should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third attempt inside the window should be blocked")
	}
	if !rl.Allow("b") {
		t.Fatal("keys must be independent")
	}

	now = now.Add(11 * time.Second)
	if !rl.Allow("a") {
		t.Fatal("attempt after the window should pass")
	}

	rl.Forget("a")
	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("Forget should reset history")
	}
}

func TestRoomRateLimiterDisabled(t *testing.T) {
	var nilLimiter *RoomRateLimiter
	if !nilLimiter.Allow("x") {
		t.Fatal("nil limiter must allow")
	}
	rl := NewRoomRateLimiter(0, time.Second)
	for i := 0; i < 100; i++ {
		if !rl.Allow("x") {
			t.Fatal("zero limit means unlimited")
		}
	}
}
