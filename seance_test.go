package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardManager_DefaultRoom(t *testing.T) {
	cfg := testConfig()
	bm := newBoardManager(cfg)

	b := bm.board(cfg, "")

	assert.Equal(t, defaultRoom, b.name)
	assert.Same(t, b, bm.board(cfg, defaultRoom))
}

func TestBoardManager_BoardReuse(t *testing.T) {
	cfg := testConfig()
	bm := newBoardManager(cfg)

	first := bm.board(cfg, "seance")
	second := bm.board(cfg, "seance")
	other := bm.board(cfg, "parlor")

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
}

func TestBoardManager_RoomsListsOnlyOccupied(t *testing.T) {
	cfg := testConfig()
	bm := newBoardManager(cfg)

	// An empty board exists but must not be surfaced.
	bm.board(cfg, "empty")

	occupied := bm.board(cfg, "seance")
	occupied.handleJoin(cfg, joinRequest{client: newTestClient("conn-a"), name: "Ada"})

	parlor := bm.board(cfg, "parlor")
	parlor.handleJoin(cfg, joinRequest{client: newTestClient("conn-b"), name: "Bea"})

	assert.Equal(t, []string{"parlor", "seance"}, bm.Rooms())
}

func TestBoardManager_NewRoomID(t *testing.T) {
	cfg := testConfig()
	bm := newBoardManager(cfg)

	first := bm.newRoomID()
	second := bm.newRoomID()

	assert.Len(t, first, 8)
	assert.Len(t, second, 8)
	assert.NotEqual(t, first, second)
	assert.Regexp(t, "^[A-Za-z0-9]{8}$", first)
}

func TestBoardManager_ReapsIdleEmptyRooms(t *testing.T) {
	cfg := testConfig()
	cfg.roomTimeout = 20 * time.Millisecond
	bm := newBoardManager(cfg)

	bm.board(cfg, "abandoned")
	bm.locks.Acquire("abandoned", "ghost")

	// An occupied board must survive the reaper regardless of age.
	kept := bm.board(cfg, "seance")
	kept.handleJoin(cfg, joinRequest{client: newTestClient("conn-a"), name: "Ada"})

	require.Eventually(t, func() bool {
		bm.mu.Lock()
		defer bm.mu.Unlock()
		_, exists := bm.boards["abandoned"]
		return !exists
	}, time.Second, 10*time.Millisecond)

	assert.Empty(t, bm.locks.Owner("abandoned"), "reaping must drop the stale lock entry")

	bm.mu.Lock()
	_, exists := bm.boards["seance"]
	bm.mu.Unlock()
	assert.True(t, exists)
}

// A connection can outlive a board it merely touched. If the reaper removes
// that board between events, the next event for the room must land on a
// fresh board instead of blocking forever on the dead one's channels.
func TestClient_DispatchSurvivesReapedBoard(t *testing.T) {
	cfg := testConfig()
	bm := newBoardManager(cfg)
	c := newTestClient("conn-a")

	stale := newBoard("haunted", bm.locks, bm.registry)
	close(stale.done)
	c.boards["haunted"] = stale

	delivered := make(chan struct{})
	go func() {
		c.dispatch(cfg, bm, ClientMessage{Type: "join", Room: "haunted", Name: "Ada"})
		close(delivered)
	}()

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch blocked on a reaped board")
	}

	fresh := c.boards["haunted"]
	require.NotSame(t, stale, fresh)

	// The retried join reaches the fresh board's run loop.
	require.Eventually(t, func() bool {
		return fresh.memberCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestClient_BoardTrackingForCleanup(t *testing.T) {
	cfg := testConfig()
	bm := newBoardManager(cfg)
	c := newTestClient("conn-a")

	first := c.board(cfg, bm, "seance")
	second := c.board(cfg, bm, "seance")

	assert.Same(t, first, second)
	assert.Contains(t, c.boards, "seance")
}

func TestServeRooms(t *testing.T) {
	cfg := testConfig()
	bm := newBoardManager(cfg)

	mux := httprouter.New()
	mux.GET("/rooms", serveRooms(cfg, bm))

	get := func() []string {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var body struct {
			Rooms []string `json:"rooms"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body.Rooms
	}

	assert.Empty(t, get())

	b := bm.board(cfg, "seance")
	b.handleJoin(cfg, joinRequest{client: newTestClient("conn-a"), name: "Ada"})

	assert.Equal(t, []string{"seance"}, get())
}

// Payload validation happens at unmarshal time: wrong-typed fields reject
// the whole frame, missing optional fields surface as nils for the
// dispatcher to check.
func TestClientMessage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		check   func(*testing.T, ClientMessage)
	}{
		{
			name:    "numeric coordinates accepted",
			payload: `{"type":"pointerMove","room":"seance","x":12,"y":34.5}`,
			check: func(t *testing.T, msg ClientMessage) {
				require.NotNil(t, msg.X)
				require.NotNil(t, msg.Y)
				assert.Equal(t, 12.0, *msg.X)
				assert.Equal(t, 34.5, *msg.Y)
			},
		},
		{
			name:    "non-numeric coordinates rejected",
			payload: `{"type":"pointerMove","room":"seance","x":"twelve","y":34}`,
			wantErr: true,
		},
		{
			name:    "missing coordinates surface as nil",
			payload: `{"type":"pointerMove","room":"seance"}`,
			check: func(t *testing.T, msg ClientMessage) {
				assert.Nil(t, msg.X)
				assert.Nil(t, msg.Y)
			},
		},
		{
			name:    "non-string text rejected",
			payload: `{"type":"type","room":"seance","text":42}`,
			wantErr: true,
		},
		{
			name:    "empty text is a valid clear signal",
			payload: `{"type":"type","room":"seance","text":""}`,
			check: func(t *testing.T, msg ClientMessage) {
				require.NotNil(t, msg.Text)
				assert.Empty(t, *msg.Text)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg ClientMessage
			err := json.Unmarshal([]byte(tt.payload), &msg)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			tt.check(t, msg)
		})
	}
}
