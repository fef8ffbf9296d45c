package index

import (
	"context"
	"sync"

	"conversation-index/internal/models"
	"conversation-index/internal/repositories"
)

// Channel-capturing fakes; testify mocks are awkward for subscriptions whose
// callbacks fire at arbitrary times.

type fakeProfileLookup struct {
	mu       sync.Mutex
	profiles map[string]models.Profile
	err      error
	calls    [][]string
}

func newFakeProfileLookup(profiles ...models.Profile) *fakeProfileLookup {
	byID := make(map[string]models.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.UserID] = p
	}
	return &fakeProfileLookup{profiles: byID}
}

func (f *fakeProfileLookup) GetProfile(_ context.Context, userID string) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Profile{}, f.err
	}
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return models.Profile{}, repositories.ErrProfileNotFound
}

func (f *fakeProfileLookup) BulkProfiles(_ context.Context, ids []string) (map[string]models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}
	result := make(map[string]models.Profile, len(ids))
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

type fakeFriendStore struct {
	mu           sync.Mutex
	friends      []string
	err          error
	onChange     func()
	subscribed   int
	unsubscribed int
}

func (f *fakeFriendStore) setFriends(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.friends = ids
}

func (f *fakeFriendStore) fireChange() {
	f.mu.Lock()
	fn := f.onChange
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *fakeFriendStore) GetFriendIDs(context.Context, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]string(nil), f.friends...), nil
}

func (f *fakeFriendStore) AreFriends(context.Context, string, string) (bool, error) {
	return false, nil
}

func (f *fakeFriendStore) AddFriend(context.Context, string, string) error    { return nil }
func (f *fakeFriendStore) RemoveFriend(context.Context, string, string) error { return nil }

func (f *fakeFriendStore) SubscribeFriends(_ string, onChange func()) (repositories.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = onChange
	f.subscribed++
	return repositories.SubscriptionFunc(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubscribed++
		f.onChange = nil
	}), nil
}

type fakeRoomStore struct {
	mu            sync.Mutex
	rooms         []models.RoomSnapshot
	err           error
	subscribeErr  error
	roomChange    func()
	msgSubs       map[string]func(*models.Message)
	latest        map[string]*models.Message
	roomSubbed    int
	roomUnsubbed  int
	msgSubbed     int
	msgUnsubbed   int
	msgSubFailFor map[string]error
}

func newFakeRoomStore(rooms ...models.RoomSnapshot) *fakeRoomStore {
	return &fakeRoomStore{rooms: rooms, msgSubs: make(map[string]func(*models.Message))}
}

func (f *fakeRoomStore) setRooms(rooms ...models.RoomSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = rooms
}

func (f *fakeRoomStore) fireRoomChange() {
	f.mu.Lock()
	fn := f.roomChange
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *fakeRoomStore) fireMessage(roomID string, msg *models.Message) {
	f.mu.Lock()
	fn := f.msgSubs[roomID]
	f.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

func (f *fakeRoomStore) GetRoomsForUser(context.Context, string) ([]models.RoomSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.RoomSnapshot(nil), f.rooms...), nil
}

func (f *fakeRoomStore) GetRoom(context.Context, string) (models.Room, error) {
	return models.Room{}, repositories.ErrRoomNotFound
}

func (f *fakeRoomStore) EnsureRoom(context.Context, string, string) (models.Room, error) {
	return models.Room{}, nil
}

func (f *fakeRoomStore) ListMessages(context.Context, string) ([]models.Message, error) {
	return nil, nil
}

func (f *fakeRoomStore) AppendMessage(context.Context, string, string, string, string) (models.Message, error) {
	return models.Message{}, nil
}

func (f *fakeRoomStore) LatestMessage(_ context.Context, roomID string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := f.latest[roomID]; ok {
		return msg, nil
	}
	for i := range f.rooms {
		if f.rooms[i].Room.ID == roomID {
			return f.rooms[i].LatestMessage, nil
		}
	}
	return nil, nil
}

// setLatest overrides the head LatestMessage reports for a room, independent
// of the list snapshot.
func (f *fakeRoomStore) setLatest(roomID string, msg *models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest == nil {
		f.latest = make(map[string]*models.Message)
	}
	f.latest[roomID] = msg
}

func (f *fakeRoomStore) SubscribeRooms(_ string, onChange func()) (repositories.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.roomChange = onChange
	f.roomSubbed++
	return repositories.SubscriptionFunc(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.roomUnsubbed++
		f.roomChange = nil
	}), nil
}

func (f *fakeRoomStore) SubscribeLatestMessage(roomID string, onMessage func(*models.Message)) (repositories.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.msgSubFailFor[roomID]; ok {
		return nil, err
	}
	f.msgSubs[roomID] = onMessage
	f.msgSubbed++
	return repositories.SubscriptionFunc(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.msgUnsubbed++
		delete(f.msgSubs, roomID)
	}), nil
}

var (
	_ repositories.FriendEdgeStore   = (*fakeFriendStore)(nil)
	_ repositories.RoomStore         = (*fakeRoomStore)(nil)
	_ repositories.UserProfileLookup = (*fakeProfileLookup)(nil)
)
