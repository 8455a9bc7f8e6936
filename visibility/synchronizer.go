package visibility

import (
	"context"
	"log"
	"sync"
	"time"
)

// SweepKind selects which players a sweep covers.
type SweepKind int

const (
	NormalSweep SweepKind = iota
	FastSweep
)

func (k SweepKind) String() string {
	if k == FastSweep {
		return "fast"
	}
	return "normal"
}

// SweepStats counts completed sweeps of one kind.
type SweepStats struct {
	Runs         uint64        `json:"runs"`
	Players      uint64        `json:"players"`
	LastDuration time.Duration `json:"last_duration_ns"`
}

// Synchronizer drives the tracker from two periodic sweeps. Each player's
// transition runs under the round lock, which is released between players.
type Synchronizer struct {
	lock      sync.Locker
	players   PlayerDirectory
	rooms     RoomLocator
	tracker   *Tracker
	intervals [2]time.Duration

	wg      sync.WaitGroup
	statsMu sync.Mutex
	stats   [2]SweepStats
}

// NewSynchronizer wires a synchronizer. normal and fast are the sweep periods.
func NewSynchronizer(lock sync.Locker, players PlayerDirectory, rooms RoomLocator, tracker *Tracker, normal, fast time.Duration) *Synchronizer {
	return &Synchronizer{
		lock:      lock,
		players:   players,
		rooms:     rooms,
		tracker:   tracker,
		intervals: [2]time.Duration{normal, fast},
	}
}

// Start launches both sweeps. They run until ctx is cancelled.
func (s *Synchronizer) Start(ctx context.Context) {
	for _, kind := range []SweepKind{NormalSweep, FastSweep} {
		s.wg.Add(1)
		go s.run(ctx, kind)
	}
}

// Wait blocks until both sweeps have returned.
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}

func (s *Synchronizer) run(ctx context.Context, kind SweepKind) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.intervals[kind])
	defer ticker.Stop()

	log.Printf("Synchronizer: %s sweep started (every %s)", kind, s.intervals[kind])
	for {
		select {
		case <-ctx.Done():
			log.Printf("Synchronizer: %s sweep stopped", kind)
			return
		case <-ticker.C:
			s.Sweep(ctx, kind)
		}
	}
}

// Sweep runs one pass over the eligible players of the given kind.
func (s *Synchronizer) Sweep(ctx context.Context, kind SweepKind) {
	start := time.Now()
	var processed uint64

	for _, p := range s.players.Players() {
		if ctx.Err() != nil {
			return
		}
		if !Eligible(p) {
			if kind == NormalSweep {
				s.release(p.ID)
			}
			continue
		}
		if IsFast(p) != (kind == FastSweep) {
			continue
		}
		s.step(p)
		processed++
	}

	s.statsMu.Lock()
	st := &s.stats[kind]
	st.Runs++
	st.Players += processed
	st.LastDuration = time.Since(start)
	s.statsMu.Unlock()
}

func (s *Synchronizer) step(p PlayerView) {
	s.lock.Lock()
	defer s.lock.Unlock()
	// The player may have left since the sweep listed them.
	cur, ok := s.players.Player(p.ID)
	if !ok || !Eligible(cur) {
		return
	}
	room := ResolveRoom(cur, s.players, s.rooms)
	s.tracker.Transition(cur.ID, cur.Conn, room)
}

// release unloads everything a tracked player still sees once they stop being
// eligible, for example after turning into a bot. State is kept while
// destroys are pending so later sweeps retry them.
func (s *Synchronizer) release(playerID string) {
	if _, tracked := s.tracker.LastRoom(playerID); !tracked {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	cur, ok := s.players.Player(playerID)
	if !ok || Eligible(cur) {
		return
	}
	if _, tracked := s.tracker.LastRoom(playerID); !tracked {
		return
	}
	res := s.tracker.Transition(playerID, cur.Conn, "")
	if res.Failed == 0 {
		s.tracker.Forget(playerID)
	}
}

// Stats returns the counters of both sweeps.
func (s *Synchronizer) Stats() (normal, fast SweepStats) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats[NormalSweep], s.stats[FastSweep]
}
