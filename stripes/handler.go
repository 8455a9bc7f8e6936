package stripes

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"

	"colorfulez-server/assets"
	"colorfulez-server/config"
	"colorfulez-server/decoration"
	"colorfulez-server/facility"
	"colorfulez-server/network_state"
	"colorfulez-server/visibility"
)

// ErrRoundActive is returned when starting a round while another one runs.
var ErrRoundActive = errors.New("round already active")

// Handler is the decoration plugin of one server. It owns the round lock that
// serializes registry rebuilds, per player transitions, color changes and hue ticks.
type Handler struct {
	cfg     config.Config
	state   *network_state.NetworkState
	rooms   *facility.Facility
	players visibility.PlayerDirectory

	registry *decoration.Registry
	tracker  *visibility.Tracker
	sweeps   *visibility.Synchronizer

	lifecycle sync.Mutex // serializes RoundStart and RoundEnd
	round     sync.Mutex

	active    bool
	cancel    context.CancelFunc
	index     *facility.AdjacencyIndex
	rainbow   *decoration.Rainbow
	rounds    int
	startedAt time.Time
	rng       *rand.Rand
}

// NewHandler wires the plugin. No round runs until RoundStart.
func NewHandler(cfg config.Config, state *network_state.NetworkState, rooms *facility.Facility, loader *assets.Loader, players visibility.PlayerDirectory) *Handler {
	h := &Handler{
		cfg:     cfg,
		state:   state,
		rooms:   rooms,
		players: players,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	h.registry = decoration.NewRegistry(state, loader, rooms, cfg.VerboseOutput)
	h.tracker = visibility.NewTracker(state, nil, h.registry, cfg.VerboseOutput)
	h.sweeps = visibility.NewSynchronizer(&h.round, players, rooms, h.tracker, cfg.SyncInterval, cfg.FastSyncInterval)
	return h
}

// RoundStart spawns the decorations, builds the adjacency index, picks the
// round color and starts the sweeps (and the hue rotation in rainbow mode).
func (h *Handler) RoundStart() (decoration.RebuildReport, error) {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	h.round.Lock()
	defer h.round.Unlock()
	if h.active {
		return decoration.RebuildReport{}, ErrRoundActive
	}

	index, err := facility.NewIndex(h.rooms, h.cfg.InterestMode, h.cfg.InterestHops, h.cfg.InterestRadius)
	if err != nil {
		return decoration.RebuildReport{}, fmt.Errorf("failed to build adjacency index: %w", err)
	}

	report := h.registry.Rebuild()
	if err := report.Err(); err != nil {
		log.Printf("Stripes: WARNING: round starts without decorations: %v", err)
	}
	h.index = index
	h.tracker.Reset(index, h.registry)

	c := h.pickColor()
	h.registry.SetColor(c)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.sweeps.Start(ctx)
	if h.cfg.RainbowMode {
		hue, _, _ := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hsv()
		h.rainbow = decoration.NewRainbow(&h.round, h.registry, h.cfg.RainbowInterval, h.cfg.RainbowStep, hue)
		h.rainbow.Start(ctx)
	}

	h.active = true
	h.rounds++
	h.startedAt = time.Now()
	log.Printf("Stripes: round %d started, %d decorations in %d rooms, color %s", h.rounds, report.Objects, report.Rooms, c.Hex())
	return report, nil
}

// RoundEnd stops every round task, waits for them, then clears the registry,
// the adjacency index and the tracker. It is a no-op without an active round.
func (h *Handler) RoundEnd() {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	h.round.Lock()
	if !h.active {
		h.round.Unlock()
		return
	}
	cancel, rainbow := h.cancel, h.rainbow
	h.active = false
	h.cancel, h.rainbow = nil, nil
	h.round.Unlock()

	// Tasks take the round lock on every step, so it must not be held while waiting.
	cancel()
	h.sweeps.Wait()
	if rainbow != nil {
		rainbow.Wait()
	}

	h.round.Lock()
	destroyed := h.registry.Destroy()
	h.index = nil
	h.tracker.Reset(nil, h.registry)
	h.round.Unlock()
	log.Printf("Stripes: round %d ended, %d objects destroyed", h.rounds, destroyed)
}

// Restart ends the current round, if any, and starts a new one.
func (h *Handler) Restart() (decoration.RebuildReport, error) {
	h.RoundEnd()
	return h.RoundStart()
}

// ReloadAssets rebuilds the registry from disk during a round. Players are
// resynchronized from scratch on the next sweep.
func (h *Handler) ReloadAssets() (bool, []string) {
	h.round.Lock()
	defer h.round.Unlock()
	if !h.active {
		log.Printf("Stripes: reload requested outside a round")
		return false, []string{"Failed to reload objects"}
	}

	report := h.registry.Rebuild()
	h.tracker.Reset(h.index, h.registry)
	if err := report.Err(); err != nil {
		log.Printf("Stripes: reload failed: %v", err)
		return false, []string{"Failed to reload objects"}
	}
	h.registry.SetColor(h.registry.Color())
	return true, []string{"Success"}
}

// ChangeColor parses a hex or named color and applies it to every decoration.
func (h *Handler) ChangeColor(arg string) (bool, []string) {
	if arg == "" {
		return false, []string{"You must provide color in hex or name"}
	}
	c, err := network_state.ParseHTMLColor(arg)
	if err != nil {
		if h.cfg.VerboseOutput {
			log.Printf("Stripes: rejected color %q: %v", arg, err)
		}
		return false, []string{"Invalid parameters"}
	}

	h.round.Lock()
	defer h.round.Unlock()
	if h.registry.Count() == 0 {
		return false, []string{"Failed to change color"}
	}
	h.registry.SetColor(c)
	log.Printf("Stripes: color changed to %s", c.Hex())
	return true, []string{"Success"}
}

// PlayerLeft drops all per player state of a disconnected player.
func (h *Handler) PlayerLeft(playerID string, conn network_state.Connection) {
	h.round.Lock()
	defer h.round.Unlock()
	h.tracker.Forget(playerID)
	if conn != nil {
		h.state.DropConnection(conn.ID())
	}
}

// pickColor chooses the round color from the configured list, or a random
// fully saturated hue when the list has no usable entry.
func (h *Handler) pickColor() network_state.Color {
	if n := len(h.cfg.Colors); n > 0 {
		s := h.cfg.Colors[h.rng.Intn(n)]
		c, err := network_state.ParseHTMLColor(s)
		if err == nil {
			return c
		}
		log.Printf("Stripes: WARNING: configured color %q is invalid: %v", s, err)
	}
	return network_state.ColorFromHSV(h.rng.Float64()*360, 1, 1)
}

// Snapshot is a point in time view of the plugin for metrics.
type Snapshot struct {
	Active         bool                  `json:"active"`
	Rounds         int                   `json:"rounds"`
	Uptime         string                `json:"round_uptime,omitempty"`
	Color          string                `json:"color"`
	Rainbow        bool                  `json:"rainbow"`
	Decorations    int                   `json:"decorations"`
	DecoratedRooms int                   `json:"decorated_rooms"`
	HostObjects    int                   `json:"host_objects"`
	IndexedRooms   int                   `json:"indexed_rooms"`
	Tracker        visibility.Stats      `json:"tracker"`
	NormalSweep    visibility.SweepStats `json:"normal_sweep"`
	FastSweep      visibility.SweepStats `json:"fast_sweep"`
}

// Snapshot reports counters without taking the round lock.
func (h *Handler) Snapshot() Snapshot {
	normal, fast := h.sweeps.Stats()
	s := Snapshot{
		Color:          h.registry.Color().Hex(),
		Rainbow:        h.cfg.RainbowMode,
		Decorations:    h.registry.Count(),
		DecoratedRooms: h.registry.RoomCount(),
		HostObjects:    h.state.Count(),
		Tracker:        h.tracker.Stats(),
		NormalSweep:    normal,
		FastSweep:      fast,
	}

	h.lifecycle.Lock()
	s.Active = h.active
	s.Rounds = h.rounds
	if h.active {
		s.Uptime = time.Since(h.startedAt).Round(time.Second).String()
		s.IndexedRooms = h.index.Len()
	}
	h.lifecycle.Unlock()
	return s
}
