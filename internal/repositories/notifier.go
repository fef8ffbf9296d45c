package repositories

import (
	"log"
	"sync"
	"time"

	"github.com/lib/pq"

	"conversation-index/internal/observability"
)

// Postgres notification channels, raised by the triggers installed in the
// migration layer.
const (
	channelFriendEdges = "friend_edges_changed"
	channelRooms       = "rooms_changed"
	channelMessages    = "room_messages"
)

const pingInterval = 90 * time.Second

// Notifier turns Postgres LISTEN/NOTIFY into per-key change callbacks for
// the store subscriptions. One Notifier is shared by all repositories.
type Notifier struct {
	listener    *pq.Listener
	mu          sync.Mutex
	next        int
	friendSubs  map[string]map[int]func()
	roomSubs    map[string]map[int]func()
	messageSubs map[string]map[int]func()
	done        chan struct{}
	closeOnce   sync.Once
}

// NewNotifier connects a dedicated listener and starts dispatching.
func NewNotifier(dsn string) (*Notifier, error) {
	n := &Notifier{
		friendSubs:  make(map[string]map[int]func()),
		roomSubs:    make(map[string]map[int]func()),
		messageSubs: make(map[string]map[int]func()),
		done:        make(chan struct{}),
	}

	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, n.onListenerEvent)
	for _, channel := range []string{channelFriendEdges, channelRooms, channelMessages} {
		if err := listener.Listen(channel); err != nil {
			_ = listener.Close()
			return nil, err
		}
	}
	n.listener = listener

	go n.run()
	return n, nil
}

func (n *Notifier) onListenerEvent(ev pq.ListenerEventType, err error) {
	if err != nil {
		log.Printf("pg listener event error: %v", err)
		observability.IncNotifyError()
	}
	if ev == pq.ListenerEventReconnected {
		// Notifications may have been lost while disconnected, so every
		// subscriber gets a change signal to refetch.
		log.Println("pg listener reconnected, refiring all subscriptions")
		n.fireAll()
	}
}

func (n *Notifier) run() {
	for {
		select {
		case <-n.done:
			return
		case note := <-n.listener.Notify:
			if note == nil {
				// nil is delivered after a reconnect; handled via the event callback
				continue
			}
			observability.IncNotifyEvent(note.Channel)
			n.dispatch(note.Channel, note.Extra)
		case <-time.After(pingInterval):
			go func() {
				if err := n.listener.Ping(); err != nil {
					log.Printf("pg listener ping failed: %v", err)
				}
			}()
		}
	}
}

func (n *Notifier) dispatch(channel, key string) {
	n.mu.Lock()
	var callbacks []func()
	var byKey map[string]map[int]func()
	switch channel {
	case channelFriendEdges:
		byKey = n.friendSubs
	case channelRooms:
		byKey = n.roomSubs
	case channelMessages:
		byKey = n.messageSubs
	}
	if byKey != nil {
		for _, fn := range byKey[key] {
			callbacks = append(callbacks, fn)
		}
	}
	n.mu.Unlock()

	// Callbacks do their own fetching; never invoke them under the lock or
	// inline in the dispatch loop.
	for _, fn := range callbacks {
		go fn()
	}
}

func (n *Notifier) fireAll() {
	n.mu.Lock()
	var callbacks []func()
	for _, subs := range []map[string]map[int]func(){n.friendSubs, n.roomSubs, n.messageSubs} {
		for _, byToken := range subs {
			for _, fn := range byToken {
				callbacks = append(callbacks, fn)
			}
		}
	}
	n.mu.Unlock()

	for _, fn := range callbacks {
		go fn()
	}
}

func (n *Notifier) subscribe(byKey map[string]map[int]func(), key string, fn func()) Subscription {
	n.mu.Lock()
	token := n.next
	n.next++
	if _, ok := byKey[key]; !ok {
		byKey[key] = make(map[int]func())
	}
	byKey[key][token] = fn
	n.mu.Unlock()

	return SubscriptionFunc(func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if byToken, ok := byKey[key]; ok {
			delete(byToken, token)
			if len(byToken) == 0 {
				delete(byKey, key)
			}
		}
	})
}

// SubscribeFriendChanges fires fn when the user's friend set changes.
func (n *Notifier) SubscribeFriendChanges(userID string, fn func()) Subscription {
	return n.subscribe(n.friendSubs, userID, fn)
}

// SubscribeRoomChanges fires fn when the user's room set changes.
func (n *Notifier) SubscribeRoomChanges(userID string, fn func()) Subscription {
	return n.subscribe(n.roomSubs, userID, fn)
}

// SubscribeMessageChanges fires fn when a message lands in the room.
func (n *Notifier) SubscribeMessageChanges(roomID string, fn func()) Subscription {
	return n.subscribe(n.messageSubs, roomID, fn)
}

// Close stops dispatching and closes the underlying listener.
func (n *Notifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		close(n.done)
		err = n.listener.Close()
	})
	return err
}
