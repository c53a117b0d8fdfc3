package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"trivia-service/internal/constants"
	"trivia-service/internal/game"
)

type fakeDispatcher struct {
	mu   sync.Mutex
	cmds []game.Command
}

func (d *fakeDispatcher) Enqueue(cmd game.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmds = append(d.cmds, cmd)
	return nil
}

func (d *fakeDispatcher) count(kind game.CommandKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.cmds {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

func (d *fakeDispatcher) find(kind game.CommandKind) (game.Command, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.cmds {
		if c.Kind == kind {
			return c, true
		}
	}
	return game.Command{}, false
}

// stuckDispatcher never accepts a command until released, like a session
// whose queue is full.
type stuckDispatcher struct {
	release chan struct{}
	calls   chan game.Command
}

func (d *stuckDispatcher) Enqueue(cmd game.Command) error {
	d.calls <- cmd
	<-d.release
	return nil
}

type testGateway struct {
	hub  *Hub
	d    *fakeDispatcher
	srv  *httptest.Server
	base string

	mu     sync.Mutex
	routes map[string]Dispatcher
}

// route sends sockets of sessionID to d instead of the default dispatcher.
func (g *testGateway) route(sessionID string, d Dispatcher) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes[sessionID] = d
}

func (g *testGateway) dispatcher(sessionID string) Dispatcher {
	g.mu.Lock()
	defer g.mu.Unlock()
	if d := g.routes[sessionID]; d != nil {
		return d
	}
	return g.d
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	g := &testGateway{hub: NewHub(), d: &fakeDispatcher{}, routes: make(map[string]Dispatcher)}
	go g.hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		q := r.URL.Query()
		sessionID := q.Get("session_id")
		if sessionID == "" {
			sessionID = "s1"
		}
		g.hub.Attach(NewClient(g.hub, conn, g.dispatcher(sessionID), sessionID, q.Get("client_id"), q.Get("role"), 100))
	}))
	g.base = "ws" + strings.TrimPrefix(g.srv.URL, "http")

	t.Cleanup(func() {
		g.srv.Close()
		cancel()
	})
	return g
}

func (g *testGateway) dial(t *testing.T, role, clientID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(g.base+"/?role="+role+"&client_id="+clientID, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn, want MessageType) InboundMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("bad frame %s: %v", data, err)
		}
		if msg.Type == want {
			return msg
		}
	}
}

func eventually(t *testing.T, desc string, ok func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !ok() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", desc)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSecondHostReplacesFirst(t *testing.T) {
	g := newTestGateway(t)

	first := g.dial(t, constants.RoleHost, "host")
	eventually(t, "first host registered", func() bool { return g.d.count(game.CmdHostConnect) == 1 })

	second := g.dial(t, constants.RoleHost, "host")
	readType(t, first, MessageTypeHostReplaced)
	eventually(t, "second host registered", func() bool { return g.d.count(game.CmdHostConnect) == 2 })

	time.Sleep(50 * time.Millisecond)
	if n := g.d.count(game.CmdHostDisconnect); n != 0 {
		t.Fatalf("replaced socket must not report a disconnect, got %d", n)
	}
	if g.hub.ConnectionCount() != 1 {
		t.Fatalf("expected one live socket, got %d", g.hub.ConnectionCount())
	}

	second.Close()
	eventually(t, "host disconnect", func() bool { return g.d.count(game.CmdHostDisconnect) == 1 })
}

func TestPlayerSocketReplacedPerClientID(t *testing.T) {
	g := newTestGateway(t)

	old := g.dial(t, constants.RolePlayer, "p1")
	eventually(t, "p1 registered", func() bool { return g.d.count(game.CmdPlayerConnect) == 1 })
	g.dial(t, constants.RolePlayer, "p2")
	eventually(t, "p2 registered", func() bool { return g.d.count(game.CmdPlayerConnect) == 2 })

	fresh := g.dial(t, constants.RolePlayer, "p1")
	readType(t, old, MessageTypeConnectionReplaced)
	eventually(t, "p1 re-registered", func() bool { return g.d.count(game.CmdPlayerConnect) == 3 })

	NewBroadcaster(g.hub).ToPlayer("s1", "p1", game.Event{Type: game.EventQuestionReady, Payload: map[string]int{"question_index": 0}})
	readType(t, fresh, MessageType(game.EventQuestionReady))

	if g.hub.ConnectionCount() != 2 {
		t.Fatalf("expected two live sockets, got %d", g.hub.ConnectionCount())
	}
}

func TestReadPumpForwardsCommands(t *testing.T) {
	g := newTestGateway(t)
	conn := g.dial(t, constants.RolePlayer, "p1")

	before := time.Now()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	readType(t, conn, MessageTypePong)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"submit_answer","payload":{"answer_index":2}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	eventually(t, "submit forwarded", func() bool { return g.d.count(game.CmdSubmitAnswer) == 1 })

	cmd, _ := g.d.find(game.CmdSubmitAnswer)
	if cmd.AnswerIndex != 2 || cmd.ClientID != "p1" || cmd.Role != constants.RolePlayer {
		t.Fatalf("unexpected command %+v", cmd)
	}
	if cmd.ReceivedAt.Before(before) {
		t.Fatal("receipt time should be stamped when the frame is read")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readType(t, conn, MessageTypeError)
	var payload ErrorPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Code != "invalid_message" {
		t.Fatalf("expected invalid_message, got %s", msg.Payload)
	}
}

func TestCloseRoomDropsSockets(t *testing.T) {
	g := newTestGateway(t)
	conn := g.dial(t, constants.RolePlayer, "p1")
	eventually(t, "registered", func() bool { return g.hub.ConnectionCount() == 1 })

	NewBroadcaster(g.hub).CloseRoom("s1")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	if g.hub.ConnectionCount() != 0 {
		t.Fatalf("expected no sockets, got %d", g.hub.ConnectionCount())
	}
	time.Sleep(50 * time.Millisecond)
	if n := g.d.count(game.CmdDisconnect); n != 0 {
		t.Fatalf("closed room should not report disconnects, got %d", n)
	}
}

func TestFullSessionQueueDoesNotStallOtherRooms(t *testing.T) {
	g := newTestGateway(t)
	stuck := &stuckDispatcher{release: make(chan struct{}), calls: make(chan game.Command, 4)}
	g.route("s2", stuck)
	t.Cleanup(func() { close(stuck.release) })

	conn, _, err := websocket.DefaultDialer.Dial(g.base+"/?session_id=s2&role="+constants.RolePlayer+"&client_id=p9", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	select {
	case cmd := <-stuck.calls:
		if cmd.Kind != game.CmdPlayerConnect {
			t.Fatalf("expected player_connect, got %s", cmd.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stuck session never saw the connect")
	}

	g.dial(t, constants.RolePlayer, "p1")
	g.dial(t, constants.RoleHost, "host")
	eventually(t, "connects in s1", func() bool {
		return g.d.count(game.CmdPlayerConnect) == 1 && g.d.count(game.CmdHostConnect) == 1
	})
	if n := g.hub.ConnectionCount(); n != 3 {
		t.Fatalf("expected 3 sockets, got %d", n)
	}
}
