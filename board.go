// Planchette board coordination
//
// Each room is a Board: a roster of connected clients sharing one virtual
// planchette and a typed-letter transcript. All events for a room funnel
// through its run loop, so lock transitions and broadcasts are observed in
// the same order by every member.
//
// Features:
// - Presence snapshots broadcast to the whole room on every membership change
// - Exclusive planchette lock per room, idempotent re-acquire, holder-only
//   release, denial sent only to the requester with the current holder's id
// - Pointer positions relayed as opaque telemetry, never clamped
// - Typed fragments trimmed and capped at 200 characters; empty means clear
// - Disconnects force-release the lock and re-check membership after a short
//   delay before the presence rebroadcast

package main

import (
	"strings"
	"sync"
	"time"
)

const maxTextRunes = 200

type joinRequest struct {
	client *Client
	name   string
}

type moveRequest struct {
	client *Client
	x, y   float64
}

type textRequest struct {
	client *Client
	text   string
}

type Board struct {
	name    string
	clients map[string]*Client

	joins    chan joinRequest
	parts    chan *Client
	acquires chan *Client
	releases chan *Client
	moves    chan moveRequest
	texts    chan textRequest
	done     chan struct{}

	mu sync.RWMutex

	lastActive time.Time

	locks    *PointerLockManager
	registry *ConnectionRegistry
}

func newBoard(name string, locks *PointerLockManager, registry *ConnectionRegistry) *Board {
	return &Board{
		name:       name,
		clients:    make(map[string]*Client),
		joins:      make(chan joinRequest),
		parts:      make(chan *Client),
		acquires:   make(chan *Client),
		releases:   make(chan *Client),
		moves:      make(chan moveRequest),
		texts:      make(chan textRequest),
		done:       make(chan struct{}),
		lastActive: time.Now(),
		locks:      locks,
		registry:   registry,
	}
}

func (b *Board) run(cfg *Config) {
	for {
		select {
		case jr := <-b.joins:
			b.handleJoin(cfg, jr)

		case c := <-b.parts:
			b.handlePart(cfg, c)

		case c := <-b.acquires:
			b.handleAcquire(cfg, c)

		case c := <-b.releases:
			b.handleRelease(cfg, c)

		case mr := <-b.moves:
			b.handleMove(mr)

		case tr := <-b.texts:
			b.handleText(tr)

		case <-b.done:
			return
		}
	}
}

// The submit methods hand inbound events to the run loop. Once a board is
// reaped its loop is gone and a bare channel send would block forever, so
// every send races against done; false means the board is dead and the
// caller should resolve the room again.

func (b *Board) submitJoin(jr joinRequest) bool {
	select {
	case b.joins <- jr:
		return true
	case <-b.done:
		return false
	}
}

func (b *Board) submitAcquire(c *Client) bool {
	select {
	case b.acquires <- c:
		return true
	case <-b.done:
		return false
	}
}

func (b *Board) submitRelease(c *Client) bool {
	select {
	case b.releases <- c:
		return true
	case <-b.done:
		return false
	}
}

func (b *Board) submitMove(mr moveRequest) bool {
	select {
	case b.moves <- mr:
		return true
	case <-b.done:
		return false
	}
}

func (b *Board) submitText(tr textRequest) bool {
	select {
	case b.texts <- tr:
		return true
	case <-b.done:
		return false
	}
}

// membersLocked builds a presence snapshot, resolving names through the
// registry at call time rather than from anything cached at join.
func (b *Board) membersLocked() []PlayerInfo {
	players := make([]PlayerInfo, 0, len(b.clients))
	for id := range b.clients {
		players = append(players, PlayerInfo{
			ID:   id,
			Name: b.registry.Name(id),
		})
	}
	return players
}

// broadcastLocked fans a message out to every current member. A member whose
// send buffer is full is dropped from the roster rather than blocking the
// room, and its connection is shut down so the write pump unblocks and the
// read pump runs its teardown, which rebroadcasts presence.
func (b *Board) broadcastLocked(msg any) {
	for id, client := range b.clients {
		select {
		case client.send <- msg:
		default:
			delete(b.clients, id)
			client.shutdown()
		}
	}
}

// sendLocked delivers a message to one connection, member or not. Lock
// denials go to requesters that may never have joined the room.
func (b *Board) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
	}
}

func (b *Board) broadcastPresenceLocked() {
	b.broadcastLocked(PresenceMessage{
		Type:    "presence",
		Players: b.membersLocked(),
	})
}

// handleJoin processes "join" messages.
func (b *Board) handleJoin(cfg *Config, jr joinRequest) {
	c := jr.client

	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastActive = time.Now()

	b.registry.SetName(c.id, jr.name)

	if _, ok := b.clients[c.id]; !ok {
		b.clients[c.id] = c
		logf(cfg, "BOARD: %q joined %s", b.registry.Name(c.id), b.name)
	}

	b.broadcastPresenceLocked()
}

// handlePart processes a disconnecting member: force-release the lock,
// remove membership, then schedule the deferred presence rebroadcast.
func (b *Board) handlePart(cfg *Config, c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastActive = time.Now()

	name := b.registry.Name(c.id)

	if b.locks.ForceRelease(b.name, c.id) {
		b.broadcastLocked(PointerLockReleasedMessage{Type: "pointerReleased"})
		logf(cfg, "BOARD: Planchette freed in %s after %q disconnected", b.name, name)
	}

	if _, ok := b.clients[c.id]; ok {
		delete(b.clients, c.id)
		logf(cfg, "BOARD: %q left %s", name, b.name)
	}

	go b.schedulePresence(cfg.presenceDelay)
}

// schedulePresence waits for d, then rebuilds the membership snapshot and
// broadcasts it. The snapshot is re-fetched after the wait, never reused
// from scheduling time, so bookkeeping that settles asynchronously relative
// to the disconnect still yields an accurate roster.
func (b *Board) schedulePresence(d time.Duration) {
	time.Sleep(d)

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.clients) == 0 {
		return
	}

	b.broadcastPresenceLocked()
}

// handleAcquire resolves one planchette grab. Requests race through the run
// loop one at a time, so exactly one of any set of simultaneous grabs wins
// and the rest are denied with the winner's id.
func (b *Board) handleAcquire(cfg *Config, c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastActive = time.Now()

	granted, owner := b.locks.Acquire(b.name, c.id)
	if !granted {
		b.sendLocked(c, PointerLockFailedMessage{
			Type:  "pointerLockFailed",
			Owner: owner,
		})
		return
	}

	b.broadcastLocked(PointerLockedMessage{
		Type:  "pointerLocked",
		Owner: owner,
	})
	logf(cfg, "BOARD: %q holds the planchette in %s", b.registry.Name(owner), b.name)
}

// handleRelease lets the holder give the planchette up. Anyone else asking
// is silently ignored.
func (b *Board) handleRelease(cfg *Config, c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastActive = time.Now()

	if !b.locks.Release(b.name, c.id) {
		return
	}

	b.broadcastLocked(PointerLockReleasedMessage{Type: "pointerReleased"})
	logf(cfg, "BOARD: %q released the planchette in %s", b.registry.Name(c.id), b.name)
}

// handleMove relays a planchette position to the whole room. The sender
// receives its own echo too and filters it client-side.
func (b *Board) handleMove(mr moveRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastActive = time.Now()

	b.broadcastLocked(PointerMoveMessage{
		Type: "pointerMove",
		ID:   mr.client.id,
		X:    mr.x,
		Y:    mr.y,
	})
}

// handleText relays one typed fragment, trimmed and capped, with the
// sender's name resolved at emission time.
func (b *Board) handleText(tr textRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastActive = time.Now()

	text := strings.TrimSpace(tr.text)
	if runes := []rune(text); len(runes) > maxTextRunes {
		text = string(runes[:maxTextRunes])
	}

	b.broadcastLocked(TextMessage{
		Type: "type",
		ID:   tr.client.id,
		Text: text,
		Name: b.registry.Name(tr.client.id),
	})
}

func (b *Board) memberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.clients)
}
