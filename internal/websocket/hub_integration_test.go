package websocket

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gws "github.com/gorilla/websocket"

	"notify-broker/internal/auth"
	"notify-broker/pkg/response"
)

const testSecret = "test-secret"

func startTestServer(t *testing.T, cfg Config) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(cfg, auth.NewJWTVerifier(testSecret))
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})
	return hub, srv
}

func mintToken(t *testing.T, userID uint) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func dial(t *testing.T, srv *httptest.Server) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Every admitted connection is greeted with a connection frame.
	frame := readFrame(t, conn)
	if frame["type"] != TypeConnection {
		t.Fatalf("Expected connection frame, got %v", frame)
	}
	if id, ok := frame["connection_id"].(string); !ok || id == "" {
		t.Fatal("Connection frame missing connection_id")
	}
	return conn
}

func readFrame(t *testing.T, conn *gws.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return frame
}

func send(t *testing.T, conn *gws.Conn, raw string) {
	t.Helper()
	if err := conn.WriteMessage(gws.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func authenticate(t *testing.T, conn *gws.Conn, userID uint) {
	t.Helper()
	send(t, conn, fmt.Sprintf(`{"type":"auth","user_id":%d,"token":"%s"}`, userID, mintToken(t, userID)))
	frame := readFrame(t, conn)
	if frame["type"] != TypeAuthSuccess {
		t.Fatalf("Expected auth_success for user %d, got %v", userID, frame)
	}
}

func waitForConnCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.registry.Len() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Registry never reached %d connections, have %d", want, hub.registry.Len())
}

// Scenario A: the user channel accepts only its own identity.
func TestUserChannelAuthorization(t *testing.T) {
	_, srv := startTestServer(t, Config{})

	c1 := dial(t, srv)
	authenticate(t, c1, 42)
	send(t, c1, `{"type":"join_user"}`)
	if frame := readFrame(t, c1); frame["type"] != TypeUserJoined {
		t.Fatalf("Owner should join user:42, got %v", frame)
	}

	c2 := dial(t, srv)
	authenticate(t, c2, 7)
	send(t, c2, `{"type":"join_user","user_id":42}`)
	if frame := readFrame(t, c2); frame["error"] != response.MsgForbidden {
		t.Fatalf("Foreign identity should be forbidden, got %v", frame)
	}
}

// Scenario B: a project notification reaches every member and the
// submitter gets an ack.
func TestProjectNotificationFanOut(t *testing.T) {
	_, srv := startTestServer(t, Config{})

	c1 := dial(t, srv)
	authenticate(t, c1, 42)
	c2 := dial(t, srv)
	authenticate(t, c2, 7)

	for _, c := range []*gws.Conn{c1, c2} {
		send(t, c, `{"type":"join_project","project_id":100}`)
		if frame := readFrame(t, c); frame["type"] != TypeProjectJoined {
			t.Fatalf("Expected project_joined, got %v", frame)
		}
	}

	send(t, c1, `{"type":"notification","target_type":"project","target_id":100,"notification":{"title":"release","body":"v2 shipped","priority":"high"}}`)

	got1 := readFrame(t, c1)
	if got1["type"] != TypeProjectNotification {
		t.Fatalf("Submitter is a member and should see the broadcast, got %v", got1)
	}
	ack := readFrame(t, c1)
	if ack["type"] != TypeNotificationSent {
		t.Fatalf("Expected notification_sent, got %v", ack)
	}

	got2 := readFrame(t, c2)
	if got2["type"] != TypeProjectNotification {
		t.Fatalf("Member should receive the broadcast, got %v", got2)
	}
	data := got2["data"].(map[string]any)
	if data["title"] != "release" || data["priority"] != "high" {
		t.Errorf("Payload mangled in fan-out: %v", data)
	}
}

// Scenario C: an abrupt disconnect cleans up all state and later
// broadcasts reach only the remaining members.
func TestAbruptDisconnectCleanup(t *testing.T) {
	hub, srv := startTestServer(t, Config{})

	c1 := dial(t, srv)
	authenticate(t, c1, 42)
	c2 := dial(t, srv)
	authenticate(t, c2, 7)

	for _, c := range []*gws.Conn{c1, c2} {
		send(t, c, `{"type":"join_project","project_id":100}`)
		readFrame(t, c)
	}
	send(t, c1, `{"type":"join_user"}`)
	readFrame(t, c1)

	// Kill the socket without a close handshake.
	c1.UnderlyingConn().Close()
	waitForConnCount(t, hub, 1)

	if n := hub.Publish(ProjectChannel(100), []byte(`{"title":"t"}`)); n != 1 {
		t.Fatalf("Expected delivery to remaining member only, got %d", n)
	}
	if n := hub.Publish(UserChannel(42), []byte(`{"title":"t"}`)); n != 0 {
		t.Fatalf("Expected no deliveries on the dead user channel, got %d", n)
	}
	if frame := readFrame(t, c2); frame["type"] != TypeProjectNotification {
		t.Fatalf("Survivor should receive the broadcast, got %v", frame)
	}
}

// Scenario D: pre-auth frames are rejected without closing the connection.
func TestPreAuthFrameRejected(t *testing.T) {
	_, srv := startTestServer(t, Config{})

	c := dial(t, srv)
	send(t, c, `{"type":"join_project","project_id":100}`)
	if frame := readFrame(t, c); frame["error"] != response.MsgAuthenticateFirst {
		t.Fatalf("Expected authenticate-first error, got %v", frame)
	}

	authenticate(t, c, 42)
	send(t, c, `{"type":"join_project","project_id":100}`)
	if frame := readFrame(t, c); frame["type"] != TypeProjectJoined {
		t.Fatalf("Expected project_joined after auth, got %v", frame)
	}
}

func TestPingPongOverSocket(t *testing.T) {
	_, srv := startTestServer(t, Config{})

	c := dial(t, srv)
	authenticate(t, c, 42)

	send(t, c, `{"type":"ping"}`)
	frame := readFrame(t, c)
	if frame["type"] != TypePong {
		t.Fatalf("Expected pong, got %v", frame)
	}
	if _, ok := frame["timestamp"].(float64); !ok {
		t.Error("Pong should carry a numeric timestamp")
	}
}

func TestAuthDeadlineTearsDown(t *testing.T) {
	hub, srv := startTestServer(t, Config{AuthTimeout: 100 * time.Millisecond})

	dial(t, srv)
	waitForConnCount(t, hub, 0)
}

func TestConnectionLimitRefusal(t *testing.T) {
	_, srv := startTestServer(t, Config{MaxConnections: 1})

	dial(t, srv)

	// The second connection is refused at the transport level with no
	// application message.
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if err == nil {
		t.Fatal("Expected the refused connection to be closed")
	}
	if !gws.IsCloseError(err, gws.CloseTryAgainLater) {
		t.Errorf("Expected close code 1013, got %v", err)
	}
}
