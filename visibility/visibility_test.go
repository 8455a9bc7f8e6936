package visibility

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"colorfulez-server/facility"
	"colorfulez-server/network_state"
)

type fakeInterest map[string][]string

func (f fakeInterest) InterestSet(roomID string) facility.RoomSet {
	out := facility.RoomSet{roomID: {}}
	for _, id := range f[roomID] {
		out[id] = struct{}{}
	}
	return out
}

type fakeObjects map[string][]*network_state.NetworkObject

func (f fakeObjects) Objects(roomID string) []*network_state.NetworkObject { return f[roomID] }

type fakeConn struct {
	id    string
	valid bool
}

func (c *fakeConn) ID() string                       { return c.id }
func (c *fakeConn) IsValid() bool                    { return c.valid }
func (c *fakeConn) Send(network_state.Message) error { return nil }

func newConn(id string) *fakeConn { return &fakeConn{id: id, valid: true} }

func objectsIn(ids ...string) []*network_state.NetworkObject {
	out := make([]*network_state.NetworkObject, len(ids))
	for i, id := range ids {
		out[i] = &network_state.NetworkObject{ID: id, Networked: true}
	}
	return out
}

type call struct {
	conn, kind, id string
}

type fakeSender struct {
	mu    sync.Mutex
	calls []call
	// fail maps connection id -> object ids whose sends fail.
	fail map[string]map[string]bool
}

func (s *fakeSender) record(conn network_state.Connection, kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[conn.ID()][id] {
		return network_state.ErrSendBufferFull
	}
	s.calls = append(s.calls, call{conn.ID(), kind, id})
	return nil
}

func (s *fakeSender) SendSpawn(obj *network_state.NetworkObject, conn network_state.Connection) error {
	return s.record(conn, "spawn", obj.ID)
}

func (s *fakeSender) SendDestroy(id string, conn network_state.Connection) error {
	return s.record(conn, "destroy", id)
}

func (s *fakeSender) ids(conn, kind string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		if c.conn == conn && c.kind == kind {
			out = append(out, c.id)
		}
	}
	sort.Strings(out)
	return out
}

func (s *fakeSender) reset() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

// world has rooms A..E, each holding one object named after it in lower case.
func world() (fakeInterest, fakeObjects) {
	interest := fakeInterest{
		"A": {"B", "C"},
		"D": {"B", "E"},
	}
	objects := fakeObjects{
		"A": objectsIn("a"),
		"B": objectsIn("b"),
		"C": objectsIn("c"),
		"D": objectsIn("d"),
		"E": objectsIn("e"),
	}
	return interest, objects
}

func TestDiff(t *testing.T) {
	unload, load := Diff(
		facility.RoomSet{"A": {}, "B": {}, "C": {}},
		facility.RoomSet{"D": {}, "B": {}, "E": {}},
	)
	if !reflect.DeepEqual(unload, []string{"A", "C"}) || !reflect.DeepEqual(load, []string{"D", "E"}) {
		t.Fatalf("Diff = %v, %v", unload, load)
	}
}

func TestTransitionLoadsAndUnloadsDifference(t *testing.T) {
	interest, objects := world()
	sender := &fakeSender{}
	tr := NewTracker(sender, interest, objects, false)
	conn := newConn("p1")

	res := tr.Transition("p1", conn, "A")
	if got := sender.ids("p1", "spawn"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("initial spawn = %v", got)
	}
	if res.Spawned != 3 || len(res.Unloaded) != 0 {
		t.Fatalf("unexpected first result %+v", res)
	}

	sender.reset()
	res = tr.Transition("p1", conn, "D")
	if !reflect.DeepEqual(res.Unloaded, []string{"A", "C"}) || !reflect.DeepEqual(res.Loaded, []string{"D", "E"}) {
		t.Fatalf("rooms unloaded %v loaded %v", res.Unloaded, res.Loaded)
	}
	if got := sender.ids("p1", "destroy"); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("destroyed %v", got)
	}
	if got := sender.ids("p1", "spawn"); !reflect.DeepEqual(got, []string{"d", "e"}) {
		t.Fatalf("spawned %v", got)
	}
	if room, _ := tr.LastRoom("p1"); room != "D" {
		t.Fatalf("lastRoom = %q", room)
	}
}

func TestTransitionSameRoomIsNoop(t *testing.T) {
	interest, objects := world()
	sender := &fakeSender{}
	tr := NewTracker(sender, interest, objects, false)
	conn := newConn("p1")

	tr.Transition("p1", conn, "A")
	sender.reset()
	for i := 0; i < 3; i++ {
		res := tr.Transition("p1", conn, "A")
		if !res.Unchanged {
			t.Fatalf("expected unchanged result, got %+v", res)
		}
	}
	if len(sender.calls) != 0 {
		t.Fatalf("repeated transitions sent %v", sender.calls)
	}
	if tr.Stats().Transitions != 1 {
		t.Fatalf("only the first call counts as a transition, got %d", tr.Stats().Transitions)
	}
}

func TestTransitionToNoRoomUnloadsEverything(t *testing.T) {
	interest, objects := world()
	sender := &fakeSender{}
	tr := NewTracker(sender, interest, objects, false)
	conn := newConn("p1")

	tr.Transition("p1", conn, "D")
	sender.reset()
	res := tr.Transition("p1", conn, "")
	if got := sender.ids("p1", "destroy"); !reflect.DeepEqual(got, []string{"b", "d", "e"}) {
		t.Fatalf("destroyed %v", got)
	}
	if len(res.Loaded) != 0 || len(sender.ids("p1", "spawn")) != 0 {
		t.Fatalf("nothing should load for the empty room")
	}

	// Staying nowhere is unchanged.
	if !tr.Transition("p1", conn, "").Unchanged {
		t.Fatal("expected unchanged")
	}
}

func TestTransitionSkipsInvalidConnection(t *testing.T) {
	interest, objects := world()
	sender := &fakeSender{}
	tr := NewTracker(sender, interest, objects, false)
	conn := &fakeConn{id: "p1"}

	res := tr.Transition("p1", conn, "A")
	if len(sender.calls) != 0 || res.Skipped != 3 {
		t.Fatalf("invalid connection must not be sent to, result %+v", res)
	}
	if room, _ := tr.LastRoom("p1"); room != "A" {
		t.Fatalf("lastRoom still advances, got %q", room)
	}
	if tr.Stats().Pending != 0 {
		t.Fatal("skipped sends are not queued")
	}
}

func TestFailureIsolationAcrossPlayers(t *testing.T) {
	interest, objects := world()
	sender := &fakeSender{fail: map[string]map[string]bool{"p2": {"b": true}}}
	tr := NewTracker(sender, interest, objects, false)

	for _, id := range []string{"p1", "p2", "p3"} {
		tr.Transition(id, newConn(id), "A")
	}
	for _, id := range []string{"p1", "p3"} {
		if got := sender.ids(id, "spawn"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
			t.Fatalf("%s spawned %v", id, got)
		}
	}
	if got := sender.ids("p2", "spawn"); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("p2 should still get the other objects, got %v", got)
	}
	if st := tr.Stats(); st.Failed != 1 || st.Pending != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestInvalidConnectionDoesNotAffectOthers(t *testing.T) {
	interest, objects := world()
	sender := &fakeSender{}
	tr := NewTracker(sender, interest, objects, false)
	conns := map[string]*fakeConn{
		"p1": newConn("p1"),
		"p2": {id: "p2"},
		"p3": newConn("p3"),
	}

	for _, id := range []string{"p1", "p2", "p3"} {
		tr.Transition(id, conns[id], "A")
	}
	for _, id := range []string{"p1", "p3"} {
		if got := sender.ids(id, "spawn"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
			t.Fatalf("%s spawned %v", id, got)
		}
	}
	if got := sender.ids("p2", "spawn"); len(got) != 0 {
		t.Fatalf("nothing may be sent on an invalid connection, got %v", got)
	}
	if room, _ := tr.LastRoom("p2"); room != "A" {
		t.Fatalf("p2 lastRoom = %q, want A", room)
	}

	sender.reset()
	for _, id := range []string{"p1", "p2", "p3"} {
		tr.Transition(id, conns[id], "D")
	}
	for _, id := range []string{"p1", "p3"} {
		if got := sender.ids(id, "spawn"); !reflect.DeepEqual(got, []string{"d", "e"}) {
			t.Fatalf("%s spawned %v after moving", id, got)
		}
	}
	if room, _ := tr.LastRoom("p2"); room != "D" {
		t.Fatalf("p2 lastRoom = %q, want D", room)
	}
	if st := tr.Stats(); st.Skipped != 7 || st.Pending != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestFailedSendIsRetried(t *testing.T) {
	interest, objects := world()
	sender := &fakeSender{fail: map[string]map[string]bool{"p1": {"b": true}}}
	tr := NewTracker(sender, interest, objects, false)
	conn := newConn("p1")

	tr.Transition("p1", conn, "A")
	sender.mu.Lock()
	sender.fail = nil
	sender.mu.Unlock()
	sender.reset()

	res := tr.Transition("p1", conn, "A")
	if !res.Unchanged || res.Retried != 1 {
		t.Fatalf("expected one retry on an unchanged room, got %+v", res)
	}
	if got := sender.ids("p1", "spawn"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("retried %v", got)
	}
	if tr.Stats().Pending != 0 {
		t.Fatal("pending queue should drain")
	}
}

func TestPendingSpawnCancelledByUnload(t *testing.T) {
	interest, objects := world()
	sender := &fakeSender{fail: map[string]map[string]bool{"p1": {"c": true}}}
	tr := NewTracker(sender, interest, objects, false)
	conn := newConn("p1")

	tr.Transition("p1", conn, "A")
	sender.reset()
	tr.Transition("p1", conn, "D")

	if got := sender.ids("p1", "destroy"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("c never reached the client and must not be destroyed, got %v", got)
	}
	if tr.Stats().Pending != 0 {
		t.Fatal("cancelled spawn should leave the queue")
	}
}

func TestPendingDestroyCancelledByReload(t *testing.T) {
	interest, objects := world()
	sender := &fakeSender{}
	tr := NewTracker(sender, interest, objects, false)
	conn := newConn("p1")

	// a spawns fine the first time, then its destroy fails.
	tr.Transition("p1", conn, "A")
	sender.fail = map[string]map[string]bool{"p1": {"a": true}}
	tr.Transition("p1", conn, "D")
	if tr.Stats().Pending != 1 {
		t.Fatalf("destroy of a should be pending, stats %+v", tr.Stats())
	}

	sender.reset()
	tr.Transition("p1", conn, "A")
	for _, id := range sender.ids("p1", "spawn") {
		if id == "a" {
			t.Fatal("client still holds a, it must not be spawned twice")
		}
	}
	if tr.Stats().Pending != 0 {
		t.Fatal("cancelled destroy should leave the queue")
	}
}

func TestForgetAndReset(t *testing.T) {
	interest, objects := world()
	tr := NewTracker(&fakeSender{}, interest, objects, false)
	tr.Transition("p1", newConn("p1"), "A")
	tr.Transition("p2", newConn("p2"), "D")

	tr.Forget("p1")
	if _, ok := tr.LastRoom("p1"); ok {
		t.Fatal("forgotten player still tracked")
	}
	tr.Reset(interest, objects)
	if _, ok := tr.LastRoom("p2"); ok || tr.Stats().Players != 0 {
		t.Fatal("reset should clear every player")
	}
}

// grid is three rooms side by side along X.
type grid struct{}

func (grid) RoomAt(pos mgl32.Vec3) *facility.Room {
	switch {
	case pos[0] >= 0 && pos[0] < 10:
		return &facility.Room{ID: "A"}
	case pos[0] >= 10 && pos[0] < 20:
		return &facility.Room{ID: "B"}
	case pos[0] >= 20 && pos[0] < 30:
		return &facility.Room{ID: "C"}
	}
	return nil
}

type directory struct {
	mu      sync.Mutex
	players []PlayerView
}

func (d *directory) Players() []PlayerView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]PlayerView(nil), d.players...)
}

func (d *directory) Player(id string) (PlayerView, bool) {
	for _, p := range d.Players() {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerView{}, false
}

func TestResolveRoom(t *testing.T) {
	dir := &directory{players: []PlayerView{
		{ID: "runner", Alive: true, Position: mgl32.Vec3{15, 0, 0}},
		{ID: "corpse", Alive: false, Position: mgl32.Vec3{25, 0, 0}},
	}}
	cases := []struct {
		name string
		p    PlayerView
		want string
	}{
		{"alive", PlayerView{ID: "x", Alive: true, Position: mgl32.Vec3{5, 0, 0}}, "A"},
		{"alive outside", PlayerView{ID: "x", Alive: true, Position: mgl32.Vec3{-5, 0, 0}}, ""},
		{"spectating alive", PlayerView{ID: "x", SpectatingID: "runner"}, "B"},
		{"spectating dead", PlayerView{ID: "x", SpectatingID: "corpse"}, ""},
		{"spectating missing", PlayerView{ID: "x", SpectatingID: "ghost"}, ""},
		{"spectating nobody", PlayerView{ID: "x"}, ""},
	}
	for _, tc := range cases {
		if got := ResolveRoom(tc.p, dir, grid{}); got != tc.want {
			t.Errorf("%s: ResolveRoom = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestClassification(t *testing.T) {
	conn := newConn("c")
	if Eligible(PlayerView{Verified: true, IsBot: true, Conn: conn}) {
		t.Error("bots are never eligible")
	}
	if Eligible(PlayerView{Verified: false, Conn: conn}) {
		t.Error("unverified players are not eligible")
	}
	if !Eligible(PlayerView{Verified: true, Conn: conn}) {
		t.Error("verified human should be eligible")
	}
	for _, p := range []PlayerView{{SpeedBoost: true}, {ExpandedVision: true}, {NoClip: true}} {
		if !IsFast(p) {
			t.Errorf("%+v should be fast", p)
		}
	}
	if IsFast(PlayerView{}) {
		t.Error("plain player is not fast")
	}
}

type countingLocker struct {
	mu    sync.Mutex
	locks int
}

func (l *countingLocker) Lock()   { l.mu.Lock(); l.locks++ }
func (l *countingLocker) Unlock() { l.mu.Unlock() }

func TestSweepPartitionsPlayers(t *testing.T) {
	interest := fakeInterest{}
	objects := fakeObjects{"A": objectsIn("a"), "B": objectsIn("b")}
	sender := &fakeSender{}
	tr := NewTracker(sender, interest, objects, false)
	dir := &directory{players: []PlayerView{
		{ID: "walker", Verified: true, Alive: true, Position: mgl32.Vec3{5, 0, 0}, Conn: newConn("walker")},
		{ID: "sprinter", Verified: true, Alive: true, SpeedBoost: true, Position: mgl32.Vec3{15, 0, 0}, Conn: newConn("sprinter")},
		{ID: "bot", Verified: true, IsBot: true, Alive: true, Conn: newConn("bot")},
		{ID: "newbie", Alive: true, Conn: newConn("newbie")},
	}}
	lock := &countingLocker{}
	s := NewSynchronizer(lock, dir, grid{}, tr, time.Second, time.Second)

	s.Sweep(context.Background(), NormalSweep)
	if _, ok := tr.LastRoom("walker"); !ok {
		t.Fatal("normal sweep should cover the walker")
	}
	if _, ok := tr.LastRoom("sprinter"); ok {
		t.Fatal("normal sweep must skip fast players")
	}
	if lock.locks != 1 {
		t.Fatalf("one lock acquisition per player, got %d", lock.locks)
	}

	s.Sweep(context.Background(), FastSweep)
	if room, _ := tr.LastRoom("sprinter"); room != "B" {
		t.Fatalf("fast sweep should place sprinter in B, got %q", room)
	}
	for _, id := range []string{"bot", "newbie"} {
		if _, ok := tr.LastRoom(id); ok {
			t.Fatalf("%s must never be tracked", id)
		}
	}

	normal, fast := s.Stats()
	if normal.Runs != 1 || normal.Players != 1 || fast.Runs != 1 || fast.Players != 1 {
		t.Fatalf("stats normal %+v fast %+v", normal, fast)
	}
}

func TestSweepReleasesPlayersWhoBecomeIneligible(t *testing.T) {
	objects := fakeObjects{"A": objectsIn("a"), "B": objectsIn("b")}
	sender := &fakeSender{}
	tr := NewTracker(sender, fakeInterest{"A": {"B"}}, objects, false)
	conn := newConn("p1")
	dir := &directory{players: []PlayerView{
		{ID: "p1", Verified: true, Alive: true, Position: mgl32.Vec3{5, 0, 0}, Conn: conn},
	}}
	s := NewSynchronizer(&sync.Mutex{}, dir, grid{}, tr, time.Second, time.Second)

	s.Sweep(context.Background(), NormalSweep)
	if got := sender.ids("p1", "spawn"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("spawned %v", got)
	}

	dir.mu.Lock()
	dir.players[0].IsBot = true
	dir.mu.Unlock()

	s.Sweep(context.Background(), FastSweep)
	if _, ok := tr.LastRoom("p1"); !ok {
		t.Fatal("only the normal sweep releases players")
	}
	s.Sweep(context.Background(), NormalSweep)
	if got := sender.ids("p1", "destroy"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("destroyed %v, want everything that was loaded", got)
	}
	if _, ok := tr.LastRoom("p1"); ok {
		t.Fatal("released player should no longer be tracked")
	}

	sender.reset()
	s.Sweep(context.Background(), NormalSweep)
	if len(sender.calls) != 0 {
		t.Fatalf("an untracked ineligible player gets nothing, got %+v", sender.calls)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	tr := NewTracker(&fakeSender{}, fakeInterest{}, fakeObjects{}, false)
	dir := &directory{players: []PlayerView{
		{ID: "walker", Verified: true, Alive: true, Position: mgl32.Vec3{5, 0, 0}, Conn: newConn("walker")},
	}}
	s := NewSynchronizer(&sync.Mutex{}, dir, grid{}, tr, 5*time.Millisecond, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := tr.LastRoom("walker"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sweep never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	done := make(chan struct{})
	go func() { s.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeps did not stop after cancel")
	}
}

func TestSenderErrorsAreSentinels(t *testing.T) {
	// The tracker treats a vanished object as settled rather than retrying it.
	tr := NewTracker(vanishingSender{}, fakeInterest{}, fakeObjects{"A": objectsIn("a")}, false)
	res := tr.Transition("p1", newConn("p1"), "A")
	if res.Failed != 0 || tr.Stats().Pending != 0 {
		t.Fatalf("unknown objects must not be queued, result %+v", res)
	}
}

type vanishingSender struct{}

func (vanishingSender) SendSpawn(obj *network_state.NetworkObject, _ network_state.Connection) error {
	return fmt.Errorf("%w: %s", network_state.ErrUnknownObject, obj.ID)
}

func (vanishingSender) SendDestroy(string, network_state.Connection) error { return nil }
