package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"conversation-index/internal/models"
	"conversation-index/internal/observability"
	"conversation-index/internal/repositories"
)

const fetchAttempts = 3

// UpdateFunc receives the fully merged conversation list on every change.
type UpdateFunc func([]models.ConversationSummary)

// ErrorFunc receives session-level errors. Individual lookup failures are
// degraded inside the merge instead of being surfaced here.
type ErrorFunc func(error)

// Index builds and live-updates conversation lists. It owns no source data,
// only the derived projection and its subscriptions.
type Index struct {
	friends repositories.FriendEdgeStore
	rooms   repositories.RoomStore
	merger  *Merger
}

// New constructs an Index over the three collaborator stores.
func New(friends repositories.FriendEdgeStore, rooms repositories.RoomStore, profiles repositories.UserProfileLookup) *Index {
	return &Index{friends: friends, rooms: rooms, merger: NewMerger(profiles)}
}

// Snapshot assembles the user's conversation list once, without starting a
// live session.
func (ix *Index) Snapshot(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	friendIDs, err := ix.friends.GetFriendIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch friend ids: %w", err)
	}
	rooms, err := ix.rooms.GetRoomsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch rooms: %w", err)
	}
	return ix.merger.Merge(ctx, userID, friendIDs, rooms), nil
}

// Handle controls one live session. Stop is idempotent and synchronous: by
// the time it returns every subscription is released and no further
// callbacks will fire. Callbacks must not call Stop themselves.
type Handle struct {
	once sync.Once
	stop func()
}

func (h *Handle) Stop() {
	h.once.Do(h.stop)
}

// Start begins live tracking for userID. onUpdate fires with the initial
// (possibly empty) list and again after every recompute, always with a fully
// merged snapshot, never partially constructed data.
func (ix *Index) Start(ctx context.Context, userID string, onUpdate UpdateFunc, onError ErrorFunc) (*Handle, error) {
	if userID == "" {
		return nil, errors.New("user id is empty")
	}
	if onUpdate == nil {
		onUpdate = func([]models.ConversationSummary) {}
	}
	if onError == nil {
		onError = func(error) {}
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &session{
		index:    ix,
		userID:   userID,
		onUpdate: onUpdate,
		onError:  onError,
		ctx:      sctx,
		cancel:   cancel,
		kick:     make(chan struct{}, 1),
		latest:   make(map[string]*models.Message),
	}
	s.tracker = NewLiveMessageTracker(ix.rooms, s.onRoomMessage, s.onSubscriptionError)

	friendSub, err := ix.friends.SubscribeFriends(userID, s.schedule)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe friend changes: %w", err)
	}
	roomSub, err := ix.rooms.SubscribeRooms(userID, s.schedule)
	if err != nil {
		friendSub.Unsubscribe()
		cancel()
		return nil, fmt.Errorf("subscribe room changes: %w", err)
	}
	s.friendSub = friendSub
	s.roomSub = roomSub

	observability.IncActiveSessions()
	go s.run()
	s.schedule()
	return &Handle{stop: s.stop}, nil
}

// session is the single mutation point for one user's live projection. All
// recomputes run on the session goroutine; subscription callbacks only write
// the latest-message overlay and request a recompute.
type session struct {
	index    *Index
	userID   string
	onUpdate UpdateFunc
	onError  ErrorFunc

	ctx    context.Context
	cancel context.CancelFunc
	kick   chan struct{}

	friendSub repositories.Subscription
	roomSub   repositories.Subscription
	tracker   *LiveMessageTracker

	// publishMu serializes consumer callbacks; stop acquires it so that an
	// in-flight callback drains before Stop returns.
	publishMu sync.Mutex

	mu        sync.Mutex
	stopped   bool
	published bool
	failing   bool
	latest    map[string]*models.Message
}

// schedule coalesces recompute requests; a pending kick absorbs new ones.
func (s *session) schedule() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *session) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.kick:
			s.recompute()
		}
	}
}

func (s *session) recompute() {
	start := time.Now()

	friendIDs, rooms, err := s.fetch()
	if err != nil {
		observability.ObserveRecompute("error", time.Since(start))
		s.fail(err)
		return
	}

	roomIDs := make([]string, 0, len(rooms))
	for i := range rooms {
		roomIDs = append(roomIDs, rooms[i].Room.ID)
	}

	// Prime the overlay with the snapshot's heads before syncing, so the
	// head a fresh subscription delivers on registration dedups instead of
	// scheduling a redundant recompute.
	s.mu.Lock()
	for i := range rooms {
		msg := rooms[i].LatestMessage
		if msg == nil {
			continue
		}
		cached, ok := s.latest[rooms[i].Room.ID]
		if !ok || msg.CreatedAt.After(cached.CreatedAt) {
			s.latest[rooms[i].Room.ID] = msg
		}
	}
	s.mu.Unlock()

	s.tracker.Sync(roomIDs)

	// Overlay messages that arrived through subscriptions after the fetch
	// snapshot was taken.
	s.mu.Lock()
	for i := range rooms {
		cached, ok := s.latest[rooms[i].Room.ID]
		if !ok {
			continue
		}
		if rooms[i].LatestMessage == nil || cached.CreatedAt.After(rooms[i].LatestMessage.CreatedAt) {
			rooms[i].LatestMessage = cached
		}
	}
	s.failing = false
	s.mu.Unlock()

	list := s.index.merger.Merge(s.ctx, s.userID, friendIDs, rooms)
	observability.ObserveRecompute("ok", time.Since(start))
	s.publish(list)
}

func (s *session) fetch() ([]string, []models.RoomSnapshot, error) {
	var friendIDs []string
	var rooms []models.RoomSnapshot
	err := withRetry(s.ctx, fetchAttempts, func() error {
		var err error
		if friendIDs, err = s.index.friends.GetFriendIDs(s.ctx, s.userID); err != nil {
			return fmt.Errorf("fetch friend ids: %w", err)
		}
		if rooms, err = s.index.rooms.GetRoomsForUser(s.ctx, s.userID); err != nil {
			return fmt.Errorf("fetch rooms: %w", err)
		}
		return nil
	})
	return friendIDs, rooms, err
}

func (s *session) onRoomMessage(roomID string, msg *models.Message) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if cached, ok := s.latest[roomID]; ok && cached.ID == msg.ID {
		s.mu.Unlock()
		return
	}
	s.latest[roomID] = msg
	s.mu.Unlock()
	s.schedule()
}

// onSubscriptionError surfaces a room whose live subscription keeps failing.
// The rest of the list stays live; only this room's updates are degraded.
func (s *session) onSubscriptionError(roomID string, err error) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}
	s.onError(fmt.Errorf("live updates unavailable for room %s: %w", roomID, err))
}

func (s *session) publish(list []models.ConversationSummary) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.published = true
	s.mu.Unlock()

	s.onUpdate(list)
}

// fail surfaces a fetch failure once per failure streak. A session that has
// never published falls back to an empty list so the consumer still renders;
// one that has keeps its stale-but-valid state.
func (s *session) fail(err error) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	if s.stopped || s.failing {
		s.mu.Unlock()
		return
	}
	s.failing = true
	published := s.published
	s.published = true
	s.mu.Unlock()

	if !published {
		s.onUpdate([]models.ConversationSummary{})
	}
	s.onError(err)
}

func (s *session) stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.friendSub.Unsubscribe()
	s.roomSub.Unsubscribe()
	s.tracker.Close()

	// wait for a callback already in flight to drain
	s.publishMu.Lock()
	s.publishMu.Unlock()

	observability.DecActiveSessions()
}

// withRetry runs fn up to attempts times with doubling backoff, respecting
// context cancellation between attempts.
func withRetry(ctx context.Context, attempts int, fn func() error) error {
	backoff := 200 * time.Millisecond
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
