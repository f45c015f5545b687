package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketAttemptFlow(t *testing.T) {
	srv := newTestServer(t)
	_, attempt := srv.do(t, http.MethodPost, "/attempts/start", "u1", map[string]any{"quizSlug": sampleQuiz().Slug})
	id := attempt["slug"].(string)

	u := "ws" + srv.URL[len("http"):] + "/ws/attempts/" + id + "?userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, payload := readNext(t, conn, "snapshot")
	if payload["slug"] != id {
		t.Fatalf("expected snapshot of %s, got %v", id, payload)
	}

	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{"questionIndex": 0, "selected": []int{1}}})
	seen := readUntil(t, conn, "answerResult", "attempt.answered")
	if !seen["answerResult"] || !seen["attempt.answered"] {
		t.Fatalf("expected answerResult and attempt.answered, got %v", seen)
	}

	send(t, conn, map[string]any{"type": "answer", "payload": map[string]any{"questionIndex": 0, "selected": []int{9}}})
	_, errPayload := readNext(t, conn, "error")
	if errPayload["kind"] != "OutOfRange" {
		t.Fatalf("expected OutOfRange error, got %v", errPayload)
	}

	send(t, conn, map[string]any{"type": "submit"})
	seen = readUntil(t, conn, "result", "attempt.completed")
	if !seen["result"] || !seen["attempt.completed"] {
		t.Fatalf("expected result and attempt.completed, got %v", seen)
	}
}

func TestWebSocketRejectsOtherUsers(t *testing.T) {
	srv := newTestServer(t)
	_, attempt := srv.do(t, http.MethodPost, "/attempts/start", "u1", map[string]any{"quizSlug": sampleQuiz().Slug})
	id := attempt["slug"].(string)

	u := "ws" + srv.URL[len("http"):] + "/ws/attempts/" + id + "?userId=u2"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 handshake response, got %v", resp)
	}
}

func TestWebSocketUnsupportedMessage(t *testing.T) {
	srv := newTestServer(t)
	_, attempt := srv.do(t, http.MethodPost, "/attempts/start", "u1", map[string]any{"quizSlug": sampleQuiz().Slug})

	header := http.Header{}
	header.Set(userHeader, "u1")
	u := "ws" + srv.URL[len("http"):] + "/ws/attempts/" + attempt["slug"].(string)
	conn, _, err := websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readNext(t, conn, "snapshot")
	send(t, conn, map[string]any{"type": "shout"})
	_, payload := readNext(t, conn, "error")
	if payload["kind"] != "InvalidArgument" {
		t.Fatalf("expected InvalidArgument, got %v", payload)
	}
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil reads messages until every wanted type has been seen or five messages passed.
func readUntil(t *testing.T, conn *websocket.Conn, want ...string) map[string]bool {
	t.Helper()
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		typ, _ := readNext(t, conn, "")
		seen[typ] = true
		done := true
		for _, w := range want {
			done = done && seen[w]
		}
		if done {
			break
		}
	}
	return seen
}

func readNext(t *testing.T, conn *websocket.Conn, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
