package network_state

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrUnknownObject is returned for ids that are not (or no longer) spawned.
	ErrUnknownObject = errors.New("unknown network object")
	// ErrNotNetworked is returned when sending a host-only object to a client.
	ErrNotNetworked = errors.New("object is not networked")
)

// SpawnRequest describes an object to be spawned on the host.
type SpawnRequest struct {
	Name      string
	RoomID    string
	ParentID  string
	Primitive PrimitiveType
	Transform Transform
	Color     Color
	Networked bool
}

// NetworkState owns every spawned object and tracks which connections observe each one.
type NetworkState struct {
	Mu             sync.RWMutex
	NetworkObjects map[string]*NetworkObject
	observers      map[string]map[string]Connection // object id -> connection id -> connection
}

// NewNetworkState returns an empty network state.
func NewNetworkState() *NetworkState {
	return &NetworkState{
		NetworkObjects: make(map[string]*NetworkObject),
		observers:      make(map[string]map[string]Connection),
	}
}

// SpawnPrimitive creates an object on the host. No connection observes it
// until SendSpawn is called for that connection.
func (ns *NetworkState) SpawnPrimitive(req SpawnRequest) *NetworkObject {
	obj := &NetworkObject{
		ID:        uuid.New().String(),
		Name:      req.Name,
		RoomID:    req.RoomID,
		ParentID:  req.ParentID,
		Primitive: req.Primitive,
		Transform: req.Transform,
		Color:     req.Color,
		Networked: req.Networked,
	}

	ns.Mu.Lock()
	ns.NetworkObjects[obj.ID] = obj
	ns.Mu.Unlock()
	return obj
}

// SpawnEmpty creates a host-only structural object used as a parent.
func (ns *NetworkState) SpawnEmpty(name, roomID, parentID string, t Transform) *NetworkObject {
	return ns.SpawnPrimitive(SpawnRequest{
		Name:      name,
		RoomID:    roomID,
		ParentID:  parentID,
		Transform: t,
		Color:     Gray,
	})
}

// Get returns the object with the given id.
func (ns *NetworkState) Get(id string) (*NetworkObject, bool) {
	ns.Mu.RLock()
	defer ns.Mu.RUnlock()
	obj, ok := ns.NetworkObjects[id]
	return obj, ok
}

// Destroy removes an object from the host and tells every observing connection to drop it.
func (ns *NetworkState) Destroy(id string) bool {
	ns.Mu.Lock()
	if _, exists := ns.NetworkObjects[id]; !exists {
		ns.Mu.Unlock()
		return false
	}
	delete(ns.NetworkObjects, id)
	watchers := ns.observers[id]
	delete(ns.observers, id)
	ns.Mu.Unlock()

	msg := Message{Type: MsgObjectDestroy, Payload: DestroyPayload{ID: id}}
	for _, conn := range watchers {
		if !conn.IsValid() {
			continue
		}
		if err := conn.Send(msg); err != nil {
			log.Printf("WARNING: destroy of %s not delivered to %s: %v", id, conn.ID(), err)
		}
	}
	return true
}

// SetColor recolors an object and pushes the change to its observers.
func (ns *NetworkState) SetColor(id string, c Color) bool {
	ns.Mu.Lock()
	obj, exists := ns.NetworkObjects[id]
	if !exists {
		ns.Mu.Unlock()
		return false
	}
	obj.Color = c
	watchers := make([]Connection, 0, len(ns.observers[id]))
	for _, conn := range ns.observers[id] {
		watchers = append(watchers, conn)
	}
	ns.Mu.Unlock()

	msg := Message{Type: MsgObjectUpdate, Payload: UpdatePayload{ID: id, Color: c}}
	for _, conn := range watchers {
		if !conn.IsValid() {
			continue
		}
		if err := conn.Send(msg); err != nil {
			log.Printf("WARNING: color update of %s not delivered to %s: %v", id, conn.ID(), err)
		}
	}
	return true
}

// SendSpawn makes the object visible to one connection.
func (ns *NetworkState) SendSpawn(obj *NetworkObject, conn Connection) error {
	if !conn.IsValid() {
		return ErrConnectionClosed
	}
	if !obj.Networked {
		return fmt.Errorf("%w: %s", ErrNotNetworked, obj.ID)
	}

	ns.Mu.RLock()
	_, exists := ns.NetworkObjects[obj.ID]
	payload := obj.SpawnPayload()
	ns.Mu.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownObject, obj.ID)
	}

	if err := conn.Send(Message{Type: MsgObjectSpawn, Payload: payload}); err != nil {
		return err
	}

	ns.Mu.Lock()
	if _, stillExists := ns.NetworkObjects[obj.ID]; stillExists {
		watchers := ns.observers[obj.ID]
		if watchers == nil {
			watchers = make(map[string]Connection)
			ns.observers[obj.ID] = watchers
		}
		watchers[conn.ID()] = conn
	}
	ns.Mu.Unlock()
	return nil
}

// SendDestroy hides the object from one connection without destroying it on the host.
func (ns *NetworkState) SendDestroy(id string, conn Connection) error {
	if !conn.IsValid() {
		return ErrConnectionClosed
	}
	if err := conn.Send(Message{Type: MsgObjectDestroy, Payload: DestroyPayload{ID: id}}); err != nil {
		return err
	}

	ns.Mu.Lock()
	if watchers, ok := ns.observers[id]; ok {
		delete(watchers, conn.ID())
		if len(watchers) == 0 {
			delete(ns.observers, id)
		}
	}
	ns.Mu.Unlock()
	return nil
}

// DropConnection forgets a connection in every observer set.
func (ns *NetworkState) DropConnection(connID string) {
	ns.Mu.Lock()
	defer ns.Mu.Unlock()
	for id, watchers := range ns.observers {
		delete(watchers, connID)
		if len(watchers) == 0 {
			delete(ns.observers, id)
		}
	}
}

// Count returns the number of spawned objects.
func (ns *NetworkState) Count() int {
	ns.Mu.RLock()
	defer ns.Mu.RUnlock()
	return len(ns.NetworkObjects)
}

// ObserverCount returns how many connections currently see the object.
func (ns *NetworkState) ObserverCount(id string) int {
	ns.Mu.RLock()
	defer ns.Mu.RUnlock()
	return len(ns.observers[id])
}
