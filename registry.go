package main

import "sync"

const defaultName = "Anon"

// ConnectionRegistry tracks the display name attached to each live
// connection. Names are attached at join time and resolved at read time,
// so a rename lands on the next broadcast rather than on a cached copy.
type ConnectionRegistry struct {
	mu    sync.RWMutex
	names map[string]string
}

func newConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		names: make(map[string]string),
	}
}

// Add records a connection with no name yet.
func (reg *ConnectionRegistry) Add(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.names[id]; !ok {
		reg.names[id] = ""
	}
}

// SetName attaches a display name to a connection, overwriting any previous
// one. An empty name falls back to the default.
func (reg *ConnectionRegistry) SetName(id, name string) {
	if name == "" {
		name = defaultName
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.names[id] = name
}

// Name resolves the current display name for a connection. Unknown or
// not-yet-named connections resolve to the default.
func (reg *ConnectionRegistry) Name(id string) string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	name := reg.names[id]
	if name == "" {
		return defaultName
	}
	return name
}

// Remove purges a connection's bookkeeping on disconnect.
func (reg *ConnectionRegistry) Remove(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.names, id)
}
