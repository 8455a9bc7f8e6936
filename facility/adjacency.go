package facility

import (
	"fmt"
	"sort"

	"colorfulez-server/config"
)

// RoomSet is a set of room ids.
type RoomSet map[string]struct{}

// Has reports membership.
func (s RoomSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order.
func (s RoomSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AdjacencyIndex holds the precomputed far neighbors of every room. It is
// built once per round and only read afterwards.
type AdjacencyIndex struct {
	far map[string]RoomSet
}

// NewIndex builds the index for the configured interest mode.
func NewIndex(f *Facility, mode string, hops int, radius float64) (*AdjacencyIndex, error) {
	switch mode {
	case config.InterestModeGraph:
		return NewGraphIndex(f, hops), nil
	case config.InterestModeDistance:
		return NewDistanceIndex(f, radius), nil
	default:
		return nil, fmt.Errorf("unknown interest mode %q", mode)
	}
}

// NewGraphIndex treats every room reachable in at most hops neighbor steps as far neighbor.
func NewGraphIndex(f *Facility, hops int) *AdjacencyIndex {
	idx := &AdjacencyIndex{far: make(map[string]RoomSet, len(f.order))}
	for _, start := range f.order {
		seen := RoomSet{start.ID: {}}
		frontier := []string{start.ID}
		for depth := 0; depth < hops && len(frontier) > 0; depth++ {
			var next []string
			for _, id := range frontier {
				r := f.rooms[id]
				for _, n := range r.Neighbors {
					if seen.Has(n) {
						continue
					}
					seen[n] = struct{}{}
					next = append(next, n)
				}
			}
			frontier = next
		}
		delete(seen, start.ID)
		idx.far[start.ID] = seen
	}
	return idx
}

// NewDistanceIndex treats every room whose center lies within radius as far neighbor.
func NewDistanceIndex(f *Facility, radius float64) *AdjacencyIndex {
	idx := &AdjacencyIndex{far: make(map[string]RoomSet, len(f.order))}
	for _, r := range f.order {
		idx.far[r.ID] = RoomSet{}
	}
	limit := float32(radius)
	for i, a := range f.order {
		for _, b := range f.order[i+1:] {
			if a.Position.Sub(b.Position).Len() <= limit {
				idx.far[a.ID][b.ID] = struct{}{}
				idx.far[b.ID][a.ID] = struct{}{}
			}
		}
	}
	return idx
}

// FarNeighbors returns the rooms within interest range of roomID, excluding roomID.
// An empty id or a room outside the index has none.
func (idx *AdjacencyIndex) FarNeighbors(roomID string) RoomSet {
	if idx == nil {
		return nil
	}
	return idx.far[roomID]
}

// InterestSet is FarNeighbors(roomID) plus roomID itself. The empty id yields an empty set.
func (idx *AdjacencyIndex) InterestSet(roomID string) RoomSet {
	out := RoomSet{}
	if roomID == "" {
		return out
	}
	out[roomID] = struct{}{}
	for id := range idx.FarNeighbors(roomID) {
		out[id] = struct{}{}
	}
	return out
}

// Len returns the number of indexed rooms.
func (idx *AdjacencyIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.far)
}
