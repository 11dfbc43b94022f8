package main

// Messages coming from clients
type ClientMessage struct {
	Type string   `json:"type"`           // "join", "acquirePointer", "releasePointer", "pointerMove", "type"
	Room string   `json:"room,omitempty"` // target room; empty falls back to the connection's path room
	Name string   `json:"name,omitempty"` // join
	X    *float64 `json:"x,omitempty"`    // pointerMove
	Y    *float64 `json:"y,omitempty"`    // pointerMove
	Text *string  `json:"text,omitempty"` // type
}

// PlayerInfo is one entry of a presence snapshot.
type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SessionMessage is sent once on connect so the client knows its own
// connection id, for filtering its own echoes and recognizing lock grants.
type SessionMessage struct {
	Type string `json:"type"` // "session"
	ID   string `json:"id"`
}

// PresenceMessage carries the full membership of a room, emitted to the
// whole room whenever membership changes.
type PresenceMessage struct {
	Type    string       `json:"type"` // "presence"
	Players []PlayerInfo `json:"players"`
}

// PointerLockedMessage announces the current planchette holder to the room.
type PointerLockedMessage struct {
	Type  string `json:"type"` // "pointerLocked"
	Owner string `json:"owner"`
}

// PointerLockFailedMessage is sent only to a denied requester, naming the
// connection that holds the lock.
type PointerLockFailedMessage struct {
	Type  string `json:"type"` // "pointerLockFailed"
	Owner string `json:"owner"`
}

// PointerLockReleasedMessage announces that the planchette is up for grabs.
type PointerLockReleasedMessage struct {
	Type string `json:"type"` // "pointerReleased"
}

// PointerMoveMessage relays a planchette position to the whole room,
// including the sender, which filters its own echo.
type PointerMoveMessage struct {
	Type string  `json:"type"` // "pointerMove"
	ID   string  `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// TextMessage relays one typed fragment to the whole room. An empty text
// means "clear the transcript."
type TextMessage struct {
	Type string `json:"type"` // "type"
	ID   string `json:"id"`
	Text string `json:"text"`
	Name string `json:"name"`
}
