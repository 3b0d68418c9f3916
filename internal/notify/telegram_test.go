package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	logx "blkmsg/pkg/logx"
)

type botAPI struct {
	mu     sync.Mutex
	paths  []string
	bodies []string
}

func (a *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	a.mu.Lock()
	a.paths = append(a.paths, r.URL.Path)
	a.bodies = append(a.bodies, string(body))
	a.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`)
}

func TestSendText(t *testing.T) {
	t.Parallel()
	api := &botAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	tg, err := New(Config{Token: "123:abc", ChatID: 42, APIURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tg.SendText(context.Background(), "  batch finished  "); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if err := tg.SendText(context.Background(), "   "); err != nil {
		t.Fatalf("SendText blank: %v", err)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.paths) != 1 {
		t.Fatalf("requests = %v, want exactly one", api.paths)
	}
	if api.paths[0] != "/bot123:abc/sendMessage" {
		t.Fatalf("path = %s", api.paths[0])
	}
	if !strings.Contains(api.bodies[0], "batch finished") {
		t.Fatalf("body = %s", api.bodies[0])
	}
}

func TestNewValidates(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{ChatID: 1}, logx.Nop()); err == nil {
		t.Fatalf("expected error for empty token")
	}
	if _, err := New(Config{Token: "x"}, logx.Nop()); err == nil {
		t.Fatalf("expected error for empty chat id")
	}
}

func TestSendTextCanceled(t *testing.T) {
	t.Parallel()
	tg, err := New(Config{Token: "1:x", ChatID: 1, APIURL: "http://127.0.0.1:1"}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tg.SendText(ctx, "hi"); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
