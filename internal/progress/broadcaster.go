package progress

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Broadcaster fans a stream of Frame values out to any number of
// websocket subscribers. The zero value is not usable; build one with
// NewBroadcaster. A nil *Broadcaster is accepted everywhere a caller
// passes one, and Publish/ServeHTTP are safe to call on it — the engine
// runs identically whether or not anyone is watching.
type Broadcaster struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[int64]*frameQueue

	nextID atomic.Int64
}

// NewBroadcaster builds an empty Broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		logger: logger,
		subs:   make(map[int64]*frameQueue),
	}
}

// Publish pushes a frame to every current subscriber's queue. A lagging
// subscriber grows its own queue rather than losing frames; only a
// subscriber that disconnects entirely stops receiving them.
func (b *Broadcaster) Publish(f Frame) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, q := range b.subs {
		q.Send(f)
	}
}

// ServeHTTP upgrades the request to a websocket and streams Frame values
// to it as JSON until the connection closes or the request context ends.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if b == nil {
		http.Error(w, "progress feed disabled", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("progress websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id := b.nextID.Add(1)
	q := newFrameQueue(16)
	b.mu.Lock()
	b.subs[id] = q
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		q.Close()
	}()

	// frameQueue.Receive has no context awareness, so a goroutine pumps it
	// into a channel the select below can watch alongside ctx.Done(); the
	// pump also selects on done so it can't leak blocked on a send nobody
	// will ever read. Closing q (the deferred call above) unblocks its
	// final Receive.
	ctx := r.Context()
	done := ctx.Done()
	frames := make(chan Frame)
	go func() {
		defer close(frames)
		for {
			f, ok := q.Receive()
			if !ok {
				return
			}
			select {
			case frames <- f:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			payload, err := json.Marshal(f)
			if err != nil {
				b.logger.Error("progress frame marshal failed", "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

// SubscriberCount reports how many websocket clients are currently
// attached, mainly for tests and health checks.
func (b *Broadcaster) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
