package decoration

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"colorfulez-server/assets"
	"colorfulez-server/config"
	"colorfulez-server/facility"
	"colorfulez-server/network_state"
)

var (
	// ErrNoConversion is reported for asset files no room type is mapped to.
	ErrNoConversion = errors.New("no room conversion for prefab")
	// ErrNothingSpawned is reported when a rebuild leaves the registry empty.
	ErrNothingSpawned = errors.New("no decorations spawned")
)

// RebuildReport describes what a rebuild did.
type RebuildReport struct {
	Files   int
	Prefabs int
	Rooms   int
	Objects int
	Ignored int

	// Undecorated counts layout rooms of a type no stripes prefab exists for.
	Undecorated int
	Errors      []error
}

// Err returns ErrNothingSpawned when the rebuild produced no client visible object.
func (r RebuildReport) Err() error {
	if r.Objects == 0 {
		return ErrNothingSpawned
	}
	return nil
}

// Registry owns the decorations of the current round, indexed by room.
// Callers serialize Rebuild, Destroy and SetColor through the round lock;
// the internal lock only protects concurrent readers.
type Registry struct {
	mu      sync.RWMutex
	state   *network_state.NetworkState
	factory *network_state.ServerNetworkObjectFactory
	loader  *assets.Loader
	rooms   *facility.Facility
	verbose bool

	byRoom map[string][]*network_state.NetworkObject
	owned  []string // every spawned id, structural and ignored included
	color  network_state.Color
}

// NewRegistry creates an empty registry.
func NewRegistry(state *network_state.NetworkState, loader *assets.Loader, rooms *facility.Facility, verbose bool) *Registry {
	return &Registry{
		state:   state,
		factory: network_state.NewServerNetworkObjectFactory(state),
		loader:  loader,
		rooms:   rooms,
		verbose: verbose,
		byRoom:  make(map[string][]*network_state.NetworkObject),
		color:   network_state.White,
	}
}

// Rebuild destroys any previous decorations and spawns one set per decoratable
// room from the asset files. Problems with single assets are logged and skipped.
func (r *Registry) Rebuild() RebuildReport {
	r.Destroy()

	var report RebuildReport
	fail := func(err error) {
		log.Printf("Registry: WARNING: %v", err)
		report.Errors = append(report.Errors, err)
	}

	files, err := r.loader.Files()
	if err != nil {
		fail(err)
		return report
	}
	report.Files = len(files)

	for _, room := range r.rooms.Rooms() {
		if !config.DecoratableRoomType(room.Type) {
			report.Undecorated++
			if r.verbose {
				log.Printf("Registry: room %s (%s) is not decoratable", room.ID, room.Type)
			}
		}
	}

	seen := make(map[string]bool, len(files))
	byRoom := make(map[string][]*network_state.NetworkObject)
	var owned []string

	for _, name := range files {
		seen[name] = true
		roomType, ok := config.PrefabConversion[name]
		if !ok {
			fail(fmt.Errorf("%w: %s", ErrNoConversion, name))
			continue
		}

		bundle, err := r.loader.Load(name)
		if err != nil {
			fail(err)
			continue
		}
		prefab, err := bundle.Prefab(name)
		if err != nil {
			fail(fmt.Errorf("%s: %w", name, err))
			continue
		}
		descs, nodeErrs := assets.Flatten(prefab)
		for _, e := range nodeErrs {
			fail(fmt.Errorf("%s: %w", name, e))
		}
		if len(descs) == 0 {
			continue
		}
		report.Prefabs++

		for _, room := range r.rooms.RoomsOfType(roomType) {
			anchor := room.Anchor()
			if roomType == config.RoomHczEzCheckpoint {
				child, ok := room.ChildAnchor(config.CheckpointChild)
				if !ok {
					fail(fmt.Errorf("room %s has no %s child", room.ID, config.CheckpointChild))
					continue
				}
				anchor = child
			}

			instances, err := r.factory.Instantiate(descs, anchor, room.ID, "")
			if err != nil {
				fail(fmt.Errorf("%s in room %s: %w", name, room.ID, err))
				continue
			}
			for _, inst := range instances {
				owned = append(owned, inst.Object.ID)
				switch {
				case inst.Structural:
				case inst.Ignored:
					report.Ignored++
				default:
					byRoom[room.ID] = append(byRoom[room.ID], inst.Object)
					report.Objects++
				}
			}
			if r.verbose {
				log.Printf("Registry: spawned %s in room %s (%d nodes)", name, room.ID, len(instances))
			}
		}
	}

	if r.verbose {
		missing := make([]string, 0)
		for name := range config.PrefabConversion {
			if !seen[name] {
				missing = append(missing, name)
			}
		}
		sort.Strings(missing)
		for _, name := range missing {
			log.Printf("Registry: no asset file for %s", name)
		}
	}

	r.mu.Lock()
	r.byRoom = byRoom
	r.owned = owned
	r.mu.Unlock()

	report.Rooms = len(byRoom)
	log.Printf("Registry: rebuilt %d objects in %d rooms from %d prefabs (%d ignored, %d undecorated rooms, %d errors)",
		report.Objects, report.Rooms, report.Prefabs, report.Ignored, report.Undecorated, len(report.Errors))
	return report
}

// Destroy removes every decoration from the host and from the clients observing it.
// It returns the number of destroyed objects and is safe to call repeatedly.
func (r *Registry) Destroy() int {
	r.mu.Lock()
	owned := r.owned
	r.owned = nil
	r.byRoom = make(map[string][]*network_state.NetworkObject)
	r.mu.Unlock()

	destroyed := 0
	// Children first, so clients never see an orphan.
	for i := len(owned) - 1; i >= 0; i-- {
		if r.state.Destroy(owned[i]) {
			destroyed++
		}
	}
	return destroyed
}

// SetColor recolors every registered decoration. The color is kept even when
// nothing is registered yet so a later rebuild can apply it; the result is
// false in that case.
func (r *Registry) SetColor(c network_state.Color) bool {
	r.mu.Lock()
	r.color = c
	if len(r.byRoom) == 0 {
		r.mu.Unlock()
		return false
	}
	var ids []string
	for _, objs := range r.byRoom {
		for _, obj := range objs {
			ids = append(ids, obj.ID)
		}
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.state.SetColor(id, c)
	}
	return true
}

// Color returns the last color set.
func (r *Registry) Color() network_state.Color {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.color
}

// Objects returns the client visible decorations of a room.
func (r *Registry) Objects(roomID string) []*network_state.NetworkObject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	objs := r.byRoom[roomID]
	out := make([]*network_state.NetworkObject, len(objs))
	copy(out, objs)
	return out
}

// Count returns the number of registered decorations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, objs := range r.byRoom {
		n += len(objs)
	}
	return n
}

// RoomCount returns the number of rooms holding at least one decoration.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byRoom)
}
