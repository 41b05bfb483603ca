package core_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/core/mocks"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"
)

type recordingConn struct {
	mu     sync.Mutex
	frames []string
}

func (c *recordingConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, string(f))
	return nil
}

func (c *recordingConn) Close() {}

func (c *recordingConn) Frames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

type panickingConn struct{}

func (panickingConn) TrySend(core.Frame) error { panic("send on closed channel") }
func (panickingConn) Close()                   {}

type member struct {
	id   core.SessionID
	name string
	conn core.SignalConnection
}

func (m *member) ID() core.SessionID { return m.id }
func (m *member) Meta() domain.Member {
	return domain.Member{ID: domain.MemberID(m.id), Name: m.name, Joined: true}
}
func (m *member) Signal() core.SignalConnection { return m.conn }

func newMember(name string) (*member, *recordingConn) {
	conn := &recordingConn{}
	return &member{id: core.SessionID("sid-" + name), name: name, conn: conn}, conn
}

func newRoom() core.RoomService {
	return core.NewRoomService(domain.NewRoom("lobby"))
}

func names(room core.RoomService) []string {
	var out []string
	for _, m := range room.MembersSnapshot() {
		out = append(out, m.Name)
	}
	return out
}

func TestRoomJoinLeaveSequence(t *testing.T) {
	room := newRoom()
	a, _ := newMember("alice")
	b, _ := newMember("bob")
	c, _ := newMember("carol")

	room.AddMember(a)
	room.AddMember(b)
	room.AddMember(a) // no duplicate, keeps position
	room.AddMember(c)
	room.RemoveMember(b.ID())
	room.RemoveMember(b.ID()) // absent: no-op
	room.RemoveMember("nobody")

	got := names(room)
	want := []string{"alice", "carol"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("members = %v, want %v", got, want)
	}
	if room.MemberCount() != 2 {
		t.Fatalf("MemberCount = %d, want 2", room.MemberCount())
	}
}

func TestRoomBroadcastDeliversOnce(t *testing.T) {
	room := newRoom()
	a, ac := newMember("alice")
	b, bc := newMember("bob")
	c, cc := newMember("carol")
	room.AddMember(a)
	room.AddMember(b)
	room.AddMember(c)

	res := room.Broadcast(core.Frame("p"))
	if res.SentTo != 3 || len(res.Dropped) != 0 {
		t.Fatalf("result = %+v, want 3 sent", res)
	}
	for name, conn := range map[string]*recordingConn{"alice": ac, "bob": bc, "carol": cc} {
		if got := conn.Frames(); len(got) != 1 || got[0] != "p" {
			t.Errorf("%s got %v, want [p]", name, got)
		}
	}
}

func TestRoomBroadcastIsolatesFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	failing := mocks.NewMockSignalConnection(ctrl)
	failing.EXPECT().TrySend(core.Frame("p")).Return(core.ErrBackpressure).Times(1)

	room := newRoom()
	a, ac := newMember("alice")
	b := &member{id: "sid-bob", name: "bob", conn: failing}
	c, cc := newMember("carol")
	room.AddMember(a)
	room.AddMember(b)
	room.AddMember(c)

	delivered := testutil.ToFloat64(metrics.MessagesDelivered)
	dropped := testutil.ToFloat64(metrics.MessagesDropped)

	res := room.Broadcast(core.Frame("p"))
	if res.SentTo != 2 {
		t.Fatalf("SentTo = %d, want 2", res.SentTo)
	}
	if len(res.Dropped) != 1 || res.Dropped[0].ID() != "sid-bob" {
		t.Fatalf("Dropped = %v, want bob", res.Dropped)
	}
	if len(ac.Frames()) != 1 || len(cc.Frames()) != 1 {
		t.Fatalf("alice=%v carol=%v, want one frame each", ac.Frames(), cc.Frames())
	}
	if d := testutil.ToFloat64(metrics.MessagesDelivered) - delivered; d != 2 {
		t.Errorf("delivered delta = %v, want 2", d)
	}
	if d := testutil.ToFloat64(metrics.MessagesDropped) - dropped; d != 1 {
		t.Errorf("dropped delta = %v, want 1", d)
	}
}

func TestRoomBroadcastSurvivesPanickingConn(t *testing.T) {
	room := newRoom()
	a, ac := newMember("alice")
	room.AddMember(&member{id: "sid-bad", name: "bad", conn: panickingConn{}})
	room.AddMember(a)

	res := room.Broadcast(core.Frame("p"))
	if res.SentTo != 1 || len(res.Dropped) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(ac.Frames()) != 1 {
		t.Fatalf("alice got %v", ac.Frames())
	}
}

func TestRoomBroadcastPerMemberOrder(t *testing.T) {
	room := newRoom()
	a, ac := newMember("alice")
	room.AddMember(a)

	for i := 0; i < 50; i++ {
		room.Broadcast(core.Frame(fmt.Sprint(i)))
	}
	got := ac.Frames()
	for i, f := range got {
		if f != fmt.Sprint(i) {
			t.Fatalf("frame %d = %s, want %d", i, f, i)
		}
	}
}

func TestRoomConcurrentMembership(t *testing.T) {
	room := newRoom()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		m, _ := newMember(fmt.Sprintf("m%d", i))
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			room.AddMember(m)
			room.Broadcast(core.Frame("x"))
			_ = room.Members()
			if i%2 == 0 {
				room.RemoveMember(m.ID())
			}
		}()
	}
	wg.Wait()

	if got := room.MemberCount(); got != 32 {
		t.Fatalf("MemberCount = %d, want 32", got)
	}
	seen := map[core.SessionID]bool{}
	for _, m := range room.Members() {
		if seen[m.ID()] {
			t.Fatalf("duplicate member %s", m.ID())
		}
		seen[m.ID()] = true
	}
}

func TestDeliverNilConn(t *testing.T) {
	if err := core.Deliver(nil, core.Frame("x")); !errors.Is(err, core.ErrConnClosed) {
		t.Fatalf("err = %v, want ErrConnClosed", err)
	}
}
