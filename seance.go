package main

import (
	"crypto/rand"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Room ids come from the request path; a connection with no path segment
// lands in the sentinel room.
const defaultRoom = "default-room"

// Client is one websocket session. The id is unique per transport session
// and dies with it. boards tracks every room the connection has touched,
// joined or not, and is only accessed from the connection's read pump.
type Client struct {
	id   string
	room string
	conn *websocket.Conn
	send chan any
	done chan struct{}

	closeOnce sync.Once

	boards map[string]*Board
}

// shutdown marks the session finished. Both the read pump's teardown and a
// board evicting a slow member call this, so the close goes through a Once.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// BoardManager is the room directory: it maps room ids to live boards,
// creating them on first use and reaping them once empty and idle. The lock
// manager and registry are shared across all boards.
type BoardManager struct {
	mu     sync.Mutex
	boards map[string]*Board

	locks    *PointerLockManager
	registry *ConnectionRegistry
}

func newBoardManager(cfg *Config) *BoardManager {
	bm := &BoardManager{
		boards:   make(map[string]*Board),
		locks:    newPointerLockManager(),
		registry: newConnectionRegistry(),
	}
	if cfg.roomTimeout > 0 {
		go bm.reaperLoop(cfg)
	}
	return bm
}

func (bm *BoardManager) board(cfg *Config, room string) *Board {
	if room == "" {
		room = defaultRoom
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()

	if b, ok := bm.boards[room]; ok {
		return b
	}

	b := newBoard(room, bm.locks, bm.registry)
	bm.boards[room] = b
	go b.run(cfg)
	return b
}

// Rooms lists rooms that currently have members, sorted. Boards linger for
// a while after emptying out; those are skipped, never surfaced as stale.
func (bm *BoardManager) Rooms() []string {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	rooms := make([]string, 0, len(bm.boards))
	for name, b := range bm.boards {
		if b.memberCount() > 0 {
			rooms = append(rooms, name)
		}
	}
	sort.Strings(rooms)
	return rooms
}

// newRoomID generates a crypto-random room id and ensures it doesn't
// collide with existing boards.
func (bm *BoardManager) newRoomID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		bm.mu.Lock()
		_, exists := bm.boards[id]
		bm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes boards that have sat empty longer than
// roomTimeout, along with any stale lock entry for them.
func (bm *BoardManager) reaperLoop(cfg *Config) {
	ticker := time.NewTicker(cfg.roomTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-cfg.roomTimeout)

		bm.mu.Lock()
		for name, b := range bm.boards {
			b.mu.RLock()
			last := b.lastActive
			empty := len(b.clients) == 0
			b.mu.RUnlock()

			if empty && last.Before(cutoff) {
				delete(bm.boards, name)
				bm.locks.Drop(name)
				close(b.done)
				logf(cfg, "BOARD: Reaped idle room %s", name)
			}
		}
		bm.mu.Unlock()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocket handler that binds the connection's default room to :room.
func serveWSForManager(cfg *Config, bm *BoardManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room := ps.ByName("room")
		if room == "" {
			room = defaultRoom
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		connectionsTotal.Inc()

		client := &Client{
			id:     uuid.New().String(),
			room:   room,
			conn:   conn,
			send:   make(chan any, 32),
			done:   make(chan struct{}),
			boards: make(map[string]*Board),
		}

		bm.registry.Add(client.id)

		logf(cfg, "BOARD: Connection %s opened from %s", client.id, realIP(r))

		// Tell the client its own id before anything else arrives.
		client.send <- SessionMessage{Type: "session", ID: client.id}

		go client.writePump()
		client.readPump(cfg, bm)

		logf(cfg, "BOARD: Connection %s closed", client.id)
	}
}

// board returns the hub for a room, remembering it for disconnect cleanup.
// Every room a connection touches gets cleaned up when the connection goes
// away, so a lock acquired in a never-joined room cannot outlive its holder.
func (c *Client) board(cfg *Config, bm *BoardManager, room string) *Board {
	if b, ok := c.boards[room]; ok {
		return b
	}
	b := bm.board(cfg, room)
	c.boards[room] = b
	return b
}

func (c *Client) readPump(cfg *Config, bm *BoardManager) {
	defer func() {
		// A touched-but-empty board can be reaped while this connection is
		// still alive; its loop is gone, so don't wait on it.
		for _, b := range c.boards {
			select {
			case b.parts <- c:
			case <-b.done:
			}
		}
		bm.registry.Remove(c.id)
		c.shutdown()
		_ = c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		// Malformed payloads are dropped, never fatal: the unmarshal runs
		// per message so one bad frame cannot take the connection down.
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		c.dispatch(cfg, bm, msg)
	}
}

// dispatch routes one inbound event to its room's board. A cached board can
// be reaped between events; a dead board is treated like an unknown room, so
// the stale entry is dropped and the event retried against a fresh board
// from the manager.
func (c *Client) dispatch(cfg *Config, bm *BoardManager, msg ClientMessage) {
	room := msg.Room
	if room == "" {
		room = c.room
	}

	deliver := func(submit func(*Board) bool) {
		for !submit(c.board(cfg, bm, room)) {
			delete(c.boards, room)
		}
	}

	switch msg.Type {
	case "join":
		eventsTotal.WithLabelValues("join").Inc()
		jr := joinRequest{client: c, name: msg.Name}
		deliver(func(b *Board) bool { return b.submitJoin(jr) })

	case "acquirePointer":
		eventsTotal.WithLabelValues("acquirePointer").Inc()
		deliver(func(b *Board) bool { return b.submitAcquire(c) })

	case "releasePointer":
		eventsTotal.WithLabelValues("releasePointer").Inc()
		deliver(func(b *Board) bool { return b.submitRelease(c) })

	case "pointerMove":
		if msg.X == nil || msg.Y == nil {
			return
		}
		eventsTotal.WithLabelValues("pointerMove").Inc()
		mr := moveRequest{client: c, x: *msg.X, y: *msg.Y}
		deliver(func(b *Board) bool { return b.submitMove(mr) })

	case "type":
		if msg.Text == nil {
			return
		}
		eventsTotal.WithLabelValues("type").Inc()
		tr := textRequest{client: c, text: *msg.Text}
		deliver(func(b *Board) bool { return b.submitText(tr) })

	default:
		// ignore unknown types
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// serveRooms lists all currently non-empty rooms, for operational
// visibility.
func serveRooms(cfg *Config, bm *BoardManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		securityHeaders(cfg, w)

		_ = json.NewEncoder(w).Encode(map[string][]string{
			"rooms": bm.Rooms(),
		})
	}
}

// QR handler: generates a PNG QR code for the current room URL.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	room := ps.ByName("room")
	if room == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:room/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// redirectNewRoom handles GET /path by generating a new random room id
// (with server-side collision detection) and redirecting to /path/:room.
func redirectNewRoom(cfg *Config, path string, bm *BoardManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		room := bm.newRoomID()
		logf(cfg, "BOARD: Created room %s%s/%s", cfg.prefix, path, room)
		http.Redirect(w, r, cfg.prefix+path+"/"+room, http.StatusTemporaryRedirect)
	}
}

// registerBoard sets up routes so that:
//   - $path           → redirects to a new random room (8-char id)
//   - $path/:room     → HTML client
//   - $path/:room/ws  → WebSocket for that room
//   - $path/:room/qr  → PNG QR code for that room URL
//   - /ws             → WebSocket for the sentinel default room
func registerBoard(cfg *Config, path string, mux *httprouter.Router, bm *BoardManager) {
	mux.GET(cfg.prefix+path, redirectNewRoom(cfg, path, bm))

	mux.GET(cfg.prefix+path+"/:room", serveBoardPage(cfg))

	mux.GET(cfg.prefix+path+"/:room/ws", serveWSForManager(cfg, bm))

	mux.GET(cfg.prefix+path+"/:room/qr", qrHandler)

	mux.GET(cfg.prefix+"/ws", serveWSForManager(cfg, bm))
}
