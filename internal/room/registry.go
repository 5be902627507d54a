package room

import "sync"

// Room is one live broadcast session: at most one broadcaster plus a
// set of viewer connections.
type Room struct {
	ID          string
	Broadcaster string // empty means no active publisher
	Viewers     map[string]struct{}
}

func (r *Room) empty() bool {
	return r.Broadcaster == "" && len(r.Viewers) == 0
}

// members returns every connection currently in the room.
func (r *Room) members() []string {
	out := make([]string, 0, len(r.Viewers)+1)
	if r.Broadcaster != "" {
		out = append(out, r.Broadcaster)
	}
	for id := range r.Viewers {
		if id != r.Broadcaster {
			out = append(out, id)
		}
	}
	return out
}

// Departure describes the effect of removing a connection from one room.
type Departure struct {
	RoomID         string
	WasBroadcaster bool
	// Remaining holds the members still in the room after the removal:
	// for a departed broadcaster these are the viewers to be told
	// broadcaster-left.
	Remaining []string
	// Broadcaster is the room's broadcaster after the removal, empty if
	// none. For a departed viewer this is who gets the viewer-left
	// notification.
	Broadcaster string
	RoomRemoved bool
}

// Registry is the process-wide room registry. It is explicitly owned
// and injected into the relay so tests can build isolated instances.
//
// A room exists only while it has a broadcaster or at least one viewer;
// every mutation re-checks that invariant and deletes empty rooms
// synchronously.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	// joined is the reverse index connID -> roomIDs, used to sweep a
	// connection out of every room on disconnect.
	joined map[string]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		joined: make(map[string]map[string]struct{}),
	}
}

func (g *Registry) getOrCreate(roomID string) *Room {
	r, ok := g.rooms[roomID]
	if !ok {
		r = &Room{ID: roomID, Viewers: make(map[string]struct{})}
		g.rooms[roomID] = r
	}
	return r
}

func (g *Registry) index(connID, roomID string) {
	rooms, ok := g.joined[connID]
	if !ok {
		rooms = make(map[string]struct{})
		g.joined[connID] = rooms
	}
	rooms[roomID] = struct{}{}
}

func (g *Registry) unindex(connID, roomID string) {
	if rooms, ok := g.joined[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(g.joined, connID)
		}
	}
}

// reap deletes the room once it has neither broadcaster nor viewers.
func (g *Registry) reap(r *Room) bool {
	if r.empty() {
		delete(g.rooms, r.ID)
		return true
	}
	return false
}

// JoinBroadcaster registers connID as the room's broadcaster, creating
// the room if needed. The broadcaster pointer is last-writer-wins; the
// previous broadcaster's id is returned so the caller can notify it.
func (g *Registry) JoinBroadcaster(roomID, connID string) (displaced string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r := g.getOrCreate(roomID)
	displaced = r.Broadcaster
	if displaced == connID {
		displaced = ""
	}
	r.Broadcaster = connID
	g.index(connID, roomID)

	// The displaced connection is out of the room unless it also sits
	// in the viewer set.
	if displaced != "" {
		if _, viewer := r.Viewers[displaced]; !viewer {
			g.unindex(displaced, roomID)
		}
	}
	return displaced
}

// JoinViewer registers connID as a viewer of the room, creating the
// room if needed.
func (g *Registry) JoinViewer(roomID, connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r := g.getOrCreate(roomID)
	r.Viewers[connID] = struct{}{}
	g.index(connID, roomID)
}

// Broadcaster returns the room's broadcaster connection, if any.
func (g *Registry) Broadcaster(roomID string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.rooms[roomID]
	if !ok || r.Broadcaster == "" {
		return "", false
	}
	return r.Broadcaster, true
}

// Members returns every connection in the room, broadcaster included.
func (g *Registry) Members(roomID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return nil
	}
	return r.members()
}

// Leave removes connID from a single room and reports what the removal
// changed. ok is false when the connection was not in the room.
func (g *Registry) Leave(roomID, connID string) (dep Departure, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, exists := g.rooms[roomID]
	if !exists {
		return Departure{}, false
	}
	dep, ok = g.remove(r, connID)
	return dep, ok
}

// Disconnect sweeps the connection out of every room it joined and
// returns one Departure per affected room.
func (g *Registry) Disconnect(connID string) []Departure {
	g.mu.Lock()
	defer g.mu.Unlock()

	rooms := g.joined[connID]
	if len(rooms) == 0 {
		return nil
	}

	deps := make([]Departure, 0, len(rooms))
	for roomID := range rooms {
		r, ok := g.rooms[roomID]
		if !ok {
			continue
		}
		if dep, removed := g.remove(r, connID); removed {
			deps = append(deps, dep)
		}
	}
	return deps
}

// remove takes connID out of the room in whatever role(s) it holds.
// Caller must hold the write lock.
func (g *Registry) remove(r *Room, connID string) (Departure, bool) {
	wasBroadcaster := r.Broadcaster == connID
	_, wasViewer := r.Viewers[connID]
	if !wasBroadcaster && !wasViewer {
		return Departure{}, false
	}

	if wasBroadcaster {
		r.Broadcaster = ""
	}
	delete(r.Viewers, connID)
	g.unindex(connID, r.ID)

	dep := Departure{
		RoomID:         r.ID,
		WasBroadcaster: wasBroadcaster,
		Remaining:      r.members(),
		Broadcaster:    r.Broadcaster,
	}
	dep.RoomRemoved = g.reap(r)
	return dep, true
}

// HasRoom reports whether a room currently exists in the registry.
func (g *Registry) HasRoom(roomID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.rooms[roomID]
	return ok
}

// RoomCount returns the number of live rooms.
func (g *Registry) RoomCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// ViewerCount returns the number of viewers in a room.
func (g *Registry) ViewerCount(roomID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if r, ok := g.rooms[roomID]; ok {
		return len(r.Viewers)
	}
	return 0
}
