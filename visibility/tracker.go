package visibility

import (
	"errors"
	"log"
	"sync"

	"colorfulez-server/network_state"
)

// ObjectSource lists the client visible objects registered for a room.
type ObjectSource interface {
	Objects(roomID string) []*network_state.NetworkObject
}

// Sender delivers per connection spawn and destroy messages.
type Sender interface {
	SendSpawn(obj *network_state.NetworkObject, conn network_state.Connection) error
	SendDestroy(id string, conn network_state.Connection) error
}

type opKind int

const (
	opSpawn opKind = iota
	opDestroy
)

// pendingOp is a send that failed and is retried on the next transition.
type pendingOp struct {
	kind opKind
	obj  *network_state.NetworkObject
}

type playerState struct {
	lastRoom string
	pending  map[string]pendingOp // object id -> op
}

// Result summarizes one transition.
type Result struct {
	Unchanged bool
	Unloaded  []string
	Loaded    []string
	Spawned   int
	Destroyed int
	Failed    int
	Skipped   int
	Retried   int
}

// Stats are cumulative tracker counters.
type Stats struct {
	Players     int    `json:"players"`
	Transitions uint64 `json:"transitions"`
	Spawned     uint64 `json:"spawned"`
	Destroyed   uint64 `json:"destroyed"`
	Failed      uint64 `json:"failed"`
	Skipped     uint64 `json:"skipped"`
	Retried     uint64 `json:"retried"`
	Pending     int    `json:"pending"`
}

// Tracker remembers the room each player was last synchronized for and
// sends only the difference when that room changes.
type Tracker struct {
	mu       sync.Mutex
	sender   Sender
	interest Interest
	objects  ObjectSource
	players  map[string]*playerState
	stats    Stats
	verbose  bool
}

// NewTracker creates a tracker with no players.
func NewTracker(sender Sender, interest Interest, objects ObjectSource, verbose bool) *Tracker {
	return &Tracker{
		sender:   sender,
		interest: interest,
		objects:  objects,
		players:  make(map[string]*playerState),
		verbose:  verbose,
	}
}

// Reset drops every player state and swaps in the index and registry of a new round.
func (t *Tracker) Reset(interest Interest, objects ObjectSource) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interest = interest
	t.objects = objects
	t.players = make(map[string]*playerState)
}

// Forget drops a disconnected player.
func (t *Tracker) Forget(playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.players, playerID)
}

// LastRoom returns the room the player was last synchronized for; false if the player is unknown.
func (t *Tracker) LastRoom(playerID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.players[playerID]
	if !ok {
		return "", false
	}
	return st.lastRoom, true
}

// Stats returns a snapshot of the counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats
	s.Players = len(t.players)
	for _, st := range t.players {
		s.Pending += len(st.pending)
	}
	return s
}

// Transition moves a player's view to newRoom. The empty room id means the
// player sees no room. Send failures are logged, queued and retried on the
// following transition; they never stop the remaining sends. Sends to an
// invalid connection are skipped and not queued.
func (t *Tracker) Transition(playerID string, conn network_state.Connection, newRoom string) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.players[playerID]
	if !ok {
		st = &playerState{pending: make(map[string]pendingOp)}
		t.players[playerID] = st
	}

	var res Result
	carried := make(map[string]pendingOp, len(st.pending))
	for id, op := range st.pending {
		carried[id] = op
	}

	if st.lastRoom == newRoom {
		res.Unchanged = true
		t.retry(playerID, st, conn, carried, &res)
		t.record(res)
		return res
	}

	res.Unloaded, res.Loaded = RoomDiff(t.interest, st.lastRoom, newRoom)
	if t.verbose {
		log.Printf("Tracker: player %s %q -> %q, unload %v, load %v", playerID, st.lastRoom, newRoom, res.Unloaded, res.Loaded)
	}

	for _, roomID := range res.Unloaded {
		for _, obj := range t.roomObjects(roomID) {
			if op, queued := st.pending[obj.ID]; queued && op.kind == opSpawn {
				// The client never received it.
				delete(st.pending, obj.ID)
				continue
			}
			t.send(playerID, st, conn, pendingOp{kind: opDestroy, obj: obj}, &res)
		}
	}
	for _, roomID := range res.Loaded {
		for _, obj := range t.roomObjects(roomID) {
			if op, queued := st.pending[obj.ID]; queued && op.kind == opDestroy {
				// The client still holds it.
				delete(st.pending, obj.ID)
				continue
			}
			t.send(playerID, st, conn, pendingOp{kind: opSpawn, obj: obj}, &res)
		}
	}

	st.lastRoom = newRoom
	t.retry(playerID, st, conn, carried, &res)
	t.record(res)
	return res
}

func (t *Tracker) roomObjects(roomID string) []*network_state.NetworkObject {
	if t.objects == nil {
		return nil
	}
	return t.objects.Objects(roomID)
}

// send performs one op and queues it on failure.
func (t *Tracker) send(playerID string, st *playerState, conn network_state.Connection, op pendingOp, res *Result) {
	if conn == nil || !conn.IsValid() {
		res.Skipped++
		return
	}

	var err error
	switch op.kind {
	case opSpawn:
		err = t.sender.SendSpawn(op.obj, conn)
	case opDestroy:
		err = t.sender.SendDestroy(op.obj.ID, conn)
	}

	switch {
	case err == nil:
		if op.kind == opSpawn {
			res.Spawned++
		} else {
			res.Destroyed++
		}
		delete(st.pending, op.obj.ID)
	case errors.Is(err, network_state.ErrUnknownObject), errors.Is(err, network_state.ErrNotNetworked):
		// Nothing left to deliver.
		delete(st.pending, op.obj.ID)
	case errors.Is(err, network_state.ErrConnectionClosed):
		res.Skipped++
	default:
		log.Printf("Tracker: WARNING: %s of %s for player %s failed: %v", op.kind, op.obj.ID, playerID, err)
		res.Failed++
		st.pending[op.obj.ID] = op
	}
}

// retry resends ops that failed on an earlier transition and were not
// cancelled by this one.
func (t *Tracker) retry(playerID string, st *playerState, conn network_state.Connection, carried map[string]pendingOp, res *Result) {
	if conn == nil || !conn.IsValid() {
		return
	}
	for id, op := range carried {
		cur, ok := st.pending[id]
		if !ok || cur.kind != op.kind {
			continue
		}
		res.Retried++
		t.send(playerID, st, conn, op, res)
	}
}

func (t *Tracker) record(res Result) {
	if !res.Unchanged {
		t.stats.Transitions++
	}
	t.stats.Spawned += uint64(res.Spawned)
	t.stats.Destroyed += uint64(res.Destroyed)
	t.stats.Failed += uint64(res.Failed)
	t.stats.Skipped += uint64(res.Skipped)
	t.stats.Retried += uint64(res.Retried)
}

func (k opKind) String() string {
	if k == opSpawn {
		return "spawn"
	}
	return "destroy"
}
