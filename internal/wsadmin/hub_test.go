package wsadmin

import (
	"sync"
	"testing"
	"time"

	"github.com/svyatogor45/linekeeper/internal/models"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()
	if hub == nil {
		t.Fatal("NewHub returned nil")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestOriginChecker_Check(t *testing.T) {
	checker := &originChecker{
		allowedOrigins: map[string]struct{}{
			"http://localhost:3000": {},
			"https://example.com":   {},
		},
	}

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"https://example.com", true},
		{"http://evil.com", false},
		{"http://localhost:8080", false},
	}

	for _, tt := range tests {
		if got := checker.check(tt.origin); got != tt.want {
			t.Errorf("check(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestOriginChecker_AllowAll(t *testing.T) {
	checker := &originChecker{allowAll: true}
	for _, origin := range []string{"http://localhost:3000", "https://evil.com", ""} {
		if !checker.check(origin) {
			t.Errorf("allowAll=true but check(%q) = false", origin)
		}
	}
}

func TestHub_BroadcastReachesRegisteredClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{hub: hub, send: make(chan []byte, clientSendBufferSize)}
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}

	hub.Broadcast(map[string]string{"type": "test"})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("expected non-empty broadcast payload")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}

	hub.unregister <- client
}

func TestHub_BroadcastNotification(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{hub: hub, send: make(chan []byte, clientSendBufferSize)}
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	lineID := "line-42"
	hub.BroadcastNotification(&models.Notification{
		ID:       1,
		Type:     models.NotificationTypeFill,
		Severity: models.SeverityInfo,
		LineID:   &lineID,
		Message:  "wager filled",
	})

	select {
	case <-client.send:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification broadcast")
	}
}

func TestHub_ConcurrentOperations(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	var wg sync.WaitGroup
	const goroutines = 10
	const operations = 200

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < operations; j++ {
				hub.Broadcast(map[string]int{"goroutine": id, "op": j})
			}
		}(i)
	}
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < operations; j++ {
				_ = hub.ClientCount()
			}
		}()
	}
	wg.Wait()
}
