package visibility

import (
	"sort"

	"colorfulez-server/facility"
)

// Interest resolves the rooms a player in a given room should see, the room included.
// The empty room id has an empty interest set.
type Interest interface {
	InterestSet(roomID string) facility.RoomSet
}

// Diff returns the rooms to unload and to load when moving from one interest
// set to another, both sorted.
func Diff(loaded, target facility.RoomSet) (toUnload, toLoad []string) {
	for id := range loaded {
		if !target.Has(id) {
			toUnload = append(toUnload, id)
		}
	}
	for id := range target {
		if !loaded.Has(id) {
			toLoad = append(toLoad, id)
		}
	}
	sort.Strings(toUnload)
	sort.Strings(toLoad)
	return toUnload, toLoad
}

// RoomDiff computes the unload and load lists for a move from lastRoom to newRoom.
func RoomDiff(idx Interest, lastRoom, newRoom string) (toUnload, toLoad []string) {
	return Diff(interestOf(idx, lastRoom), interestOf(idx, newRoom))
}

func interestOf(idx Interest, roomID string) facility.RoomSet {
	if roomID == "" {
		return facility.RoomSet{}
	}
	if idx == nil {
		return facility.RoomSet{roomID: {}}
	}
	return idx.InterestSet(roomID)
}
