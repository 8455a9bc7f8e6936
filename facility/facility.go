package facility

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"colorfulez-server/config"
)

// Grid spacing and room size used by Generate.
const (
	cellSize   = 16.0
	roomHeight = 4.0
)

// Layout is the on-disk form of a facility.
type Layout struct {
	Rooms []*Room `json:"rooms"`
}

// Facility is the set of rooms of the current round.
type Facility struct {
	rooms map[string]*Room
	order []*Room
}

// New validates rooms and links every neighbor reference in both directions.
func New(rooms []*Room) (*Facility, error) {
	f := &Facility{rooms: make(map[string]*Room, len(rooms))}
	for _, r := range rooms {
		if r == nil || r.ID == "" {
			return nil, fmt.Errorf("room without id")
		}
		if _, dup := f.rooms[r.ID]; dup {
			return nil, fmt.Errorf("duplicate room id %s", r.ID)
		}
		f.rooms[r.ID] = r
		f.order = append(f.order, r)
	}

	for _, r := range f.order {
		for _, n := range r.Neighbors {
			other, ok := f.rooms[n]
			if !ok {
				return nil, fmt.Errorf("room %s references unknown neighbor %s", r.ID, n)
			}
			if other == r {
				return nil, fmt.Errorf("room %s lists itself as neighbor", r.ID)
			}
			if !contains(other.Neighbors, r.ID) {
				other.Neighbors = append(other.Neighbors, r.ID)
			}
		}
	}
	return f, nil
}

// LoadLayout reads a facility layout JSON file.
func LoadLayout(path string) (*Facility, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout: %w", err)
	}
	var layout Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to unmarshal layout: %w", err)
	}
	return New(layout.Rooms)
}

// Generate builds a rows x cols grid of entrance zone rooms with four-way
// connectivity. The first cell is always the heavy/entrance checkpoint.
func Generate(rows, cols int, seed int64) (*Facility, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid layout size %dx%d, rows and cols must be positive", rows, cols)
	}

	rng := rand.New(rand.NewSource(seed))
	types := ezRoomTypes()
	id := func(r, c int) string { return fmt.Sprintf("r%d-c%d", r, c) }

	rooms := make([]*Room, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			room := &Room{
				ID:       id(r, c),
				Type:     types[rng.Intn(len(types))],
				Position: mgl32.Vec3{float32(c) * cellSize, 0, float32(r) * cellSize},
				Yaw:      float32(rng.Intn(4) * 90),
				Extents:  mgl32.Vec3{cellSize / 2, roomHeight, cellSize / 2},
			}
			if r == 0 && c == 0 {
				room.Type = config.RoomHczEzCheckpoint
				room.Children = map[string]Child{
					config.CheckpointChild: {Position: mgl32.Vec3{0, 0, -cellSize / 4}},
				}
			}
			if c > 0 {
				room.Neighbors = append(room.Neighbors, id(r, c-1))
			}
			if r > 0 {
				room.Neighbors = append(room.Neighbors, id(r-1, c))
			}
			rooms = append(rooms, room)
		}
	}

	f, err := New(rooms)
	if err != nil {
		return nil, err
	}
	log.Printf("Facility: generated %d rooms (%dx%d, seed %d)", len(rooms), rows, cols, seed)
	return f, nil
}

// ezRoomTypes lists the decoratable room types a generated grid draws from.
func ezRoomTypes() []string {
	return []string{
		config.RoomEzStraight, config.RoomEzCafeteria, config.RoomEzCollapsedTunnel,
		config.RoomEzConference, config.RoomEzTCross, config.RoomEzCrossing,
		config.RoomEzCurve, config.RoomEzIntercom, config.RoomEzGateA,
		config.RoomEzGateB, config.RoomEzShelter, config.RoomEzPcs,
		config.RoomEzDownstairsPcs, config.RoomEzUpstairsPcs,
	}
}

// Rooms returns every room in layout order.
func (f *Facility) Rooms() []*Room {
	return f.order
}

// Room looks a room up by id.
func (f *Facility) Room(id string) (*Room, bool) {
	r, ok := f.rooms[id]
	return r, ok
}

// RoomsOfType returns the rooms of one type in layout order.
func (f *Facility) RoomsOfType(roomType string) []*Room {
	var out []*Room
	for _, r := range f.order {
		if r.Type == roomType {
			out = append(out, r)
		}
	}
	return out
}

// RoomAt returns the room containing pos, or nil when the position is outside every room.
func (f *Facility) RoomAt(pos mgl32.Vec3) *Room {
	for _, r := range f.order {
		if r.Contains(pos) {
			return r
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// SaveLayout writes the facility in the form LoadLayout reads.
func (f *Facility) SaveLayout(path string) error {
	data, err := json.MarshalIndent(Layout{Rooms: f.order}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal layout: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write layout: %w", err)
	}
	return nil
}
