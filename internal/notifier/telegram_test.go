package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testNotifier(serverURL string) *TelegramNotifier {
	t := NewTelegramNotifier("token", "chat-1", "")
	t.apiBase = serverURL
	return t
}

func TestSend_PostsMessageToChat(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Errorf("path = %s, want .../sendMessage", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := testNotifier(srv.URL)
	if err := n.Send("hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["chat_id"] != "chat-1" || got["text"] != "hello" {
		t.Errorf("payload = %v, want chat-1 / hello", got)
	}
}

func TestSend_SurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"bad token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	if err := testNotifier(srv.URL).Send("hello"); err == nil {
		t.Fatal("expected an error on a 401 response")
	}
}

func TestFetchUpdates_AdvancesPastMalformedMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"result":[
			{"update_id":7,"message":{"text":"/scan"}},
			{"update_id":8},
			{"update_id":9,"message":{"text":""}}
		]}`))
	}))
	defer srv.Close()

	n := testNotifier(srv.URL)
	updates, err := n.fetchUpdates(context.Background(), srv.Client(), 0)
	if err != nil {
		t.Fatalf("fetchUpdates: %v", err)
	}
	if len(updates) != 3 {
		t.Fatalf("updates = %d, want 3", len(updates))
	}
	if updates[0].Message == nil || updates[0].Message.Text != "/scan" {
		t.Errorf("first update = %+v, want /scan command", updates[0])
	}
	if updates[1].Message != nil {
		t.Error("update without a message body must decode with a nil message")
	}
}

func TestFetchUpdates_RejectsNotOKResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false}`))
	}))
	defer srv.Close()

	n := testNotifier(srv.URL)
	if _, err := n.fetchUpdates(context.Background(), srv.Client(), 0); err == nil {
		t.Fatal("expected an error when the API reports not ok")
	}
}
