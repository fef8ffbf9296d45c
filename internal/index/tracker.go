package index

import (
	"context"
	"log"
	"sync"
	"time"

	"conversation-index/internal/models"
	"conversation-index/internal/observability"
	"conversation-index/internal/repositories"
)

// maxSubscribeFailures is the consecutive-failure streak after which a
// room's broken subscription is reported through onError.
const maxSubscribeFailures = 3

const initialHeadTimeout = 5 * time.Second

// LiveMessageTracker maintains exactly one latest-message subscription per
// tracked room. Every subscribe is paired with exactly one unsubscribe, at
// the latest when Close runs.
type LiveMessageTracker struct {
	store     repositories.RoomStore
	onMessage func(roomID string, msg *models.Message)
	onError   func(roomID string, err error)

	mu       sync.Mutex
	subs     map[string]repositories.Subscription
	failures map[string]int
	closed   bool
}

// NewLiveMessageTracker constructs a tracker delivering to onMessage.
// onMessage may be invoked concurrently from multiple room subscriptions.
// onError, when non-nil, is told about rooms whose subscription repeatedly
// fails to establish.
func NewLiveMessageTracker(store repositories.RoomStore, onMessage func(roomID string, msg *models.Message), onError func(roomID string, err error)) *LiveMessageTracker {
	if onError == nil {
		onError = func(string, error) {}
	}
	return &LiveMessageTracker{
		store:     store,
		onMessage: onMessage,
		onError:   onError,
		subs:      make(map[string]repositories.Subscription),
		failures:  make(map[string]int),
	}
}

// Sync reconciles the tracked set with roomIDs: rooms no longer present are
// unsubscribed, newly discovered rooms are subscribed and their current head
// message delivered. A subscription failure on one room leaves the others
// unaffected; a room that keeps failing is reported once per failure streak.
func (t *LiveMessageTracker) Sync(roomIDs []string) {
	want := make(map[string]struct{}, len(roomIDs))
	for _, id := range roomIDs {
		want[id] = struct{}{}
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	var stale []repositories.Subscription
	for id, sub := range t.subs {
		if _, ok := want[id]; !ok {
			delete(t.subs, id)
			stale = append(stale, sub)
		}
	}
	for id := range t.failures {
		if _, ok := want[id]; !ok {
			delete(t.failures, id)
		}
	}
	var missing []string
	for _, id := range roomIDs {
		if _, ok := t.subs[id]; !ok {
			missing = append(missing, id)
		}
	}
	t.mu.Unlock()

	for _, sub := range stale {
		sub.Unsubscribe()
		observability.DecRoomSubscriptions()
	}

	for _, id := range missing {
		roomID := id
		sub, err := t.store.SubscribeLatestMessage(roomID, func(msg *models.Message) {
			t.deliver(roomID, msg)
		})
		if err != nil {
			log.Printf("latest message subscription failed room=%s: %v", roomID, err)
			if t.recordFailure(roomID) {
				t.onError(roomID, err)
			}
			continue
		}

		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			sub.Unsubscribe()
			continue
		}
		if _, dup := t.subs[roomID]; dup {
			t.mu.Unlock()
			sub.Unsubscribe()
			continue
		}
		t.subs[roomID] = sub
		delete(t.failures, roomID)
		t.mu.Unlock()
		observability.IncRoomSubscriptions()

		// deliver the head that predates the subscription, so a message
		// landing between the list fetch and the subscribe is not lost
		hctx, cancel := context.WithTimeout(context.Background(), initialHeadTimeout)
		head, err := t.store.LatestMessage(hctx, roomID)
		cancel()
		if err != nil {
			log.Printf("initial latest message fetch failed room=%s: %v", roomID, err)
			continue
		}
		if head != nil {
			t.deliver(roomID, head)
		}
	}
}

// recordFailure reports whether the room's streak just hit the surfacing
// threshold. Later failures in the same streak stay silent.
func (t *LiveMessageTracker) recordFailure(roomID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[roomID]++
	return t.failures[roomID] == maxSubscribeFailures
}

func (t *LiveMessageTracker) deliver(roomID string, msg *models.Message) {
	t.mu.Lock()
	_, tracked := t.subs[roomID]
	closed := t.closed
	t.mu.Unlock()
	if closed || !tracked || msg == nil {
		return
	}
	t.onMessage(roomID, msg)
}

// Tracked returns the number of active room subscriptions.
func (t *LiveMessageTracker) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Close unsubscribes every outstanding room subscription before returning.
// Idempotent; messages arriving afterwards are dropped.
func (t *LiveMessageTracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	subs := t.subs
	t.subs = make(map[string]repositories.Subscription)
	t.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
		observability.DecRoomSubscriptions()
	}
}
