package progress

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func TestBroadcasterPublishesToSubscriber(t *testing.T) {
	b := NewBroadcaster(nil)
	server := httptest.NewServer(b)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for b.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(time.Millisecond)
	}

	runID := uuid.New()
	b.Publish(Frame{RunID: runID, RowsScanned: 10, RowsWritten: 5, PartitionsTouched: 1})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got Frame
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.RunID != runID || got.RowsScanned != 10 || got.RowsWritten != 5 || got.PartitionsTouched != 1 {
		t.Fatalf("unexpected frame: %+v", got)
	}
}

func TestNilBroadcasterIsNoop(t *testing.T) {
	var b *Broadcaster
	b.Publish(Frame{})
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers on nil broadcaster")
	}
}
