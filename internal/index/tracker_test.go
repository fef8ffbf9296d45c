package index

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conversation-index/internal/models"
)

type messageRecorder struct {
	mu   sync.Mutex
	msgs []*models.Message
}

func (r *messageRecorder) record(_ string, msg *models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *messageRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestTrackerSyncSubscribesAndUnsubscribes(t *testing.T) {
	store := newFakeRoomStore()
	rec := &messageRecorder{}
	tracker := NewLiveMessageTracker(store, rec.record, nil)

	tracker.Sync([]string{"r1", "r2"})
	assert.Equal(t, 2, tracker.Tracked())
	assert.Equal(t, 2, store.msgSubbed)

	// r2 drops out, r3 appears
	tracker.Sync([]string{"r1", "r3"})
	assert.Equal(t, 2, tracker.Tracked())
	assert.Equal(t, 3, store.msgSubbed)
	assert.Equal(t, 1, store.msgUnsubbed)

	// unchanged set is a no-op
	tracker.Sync([]string{"r1", "r3"})
	assert.Equal(t, 3, store.msgSubbed)
	assert.Equal(t, 1, store.msgUnsubbed)
}

func TestTrackerDeliversMessages(t *testing.T) {
	store := newFakeRoomStore()
	rec := &messageRecorder{}
	tracker := NewLiveMessageTracker(store, rec.record, nil)

	tracker.Sync([]string{"r1"})
	store.fireMessage("r1", message("r1", "B", "hi", t1))

	require.Equal(t, 1, rec.count())
}

func TestTrackerCloseBalancesSubscriptions(t *testing.T) {
	store := newFakeRoomStore()
	tracker := NewLiveMessageTracker(store, (&messageRecorder{}).record, nil)

	tracker.Sync([]string{"r1", "r2", "r3"})
	tracker.Close()

	assert.Equal(t, store.msgSubbed, store.msgUnsubbed)
	assert.Equal(t, 0, tracker.Tracked())

	// idempotent
	tracker.Close()
	assert.Equal(t, store.msgSubbed, store.msgUnsubbed)
}

func TestTrackerDropsMessagesAfterClose(t *testing.T) {
	store := newFakeRoomStore()
	rec := &messageRecorder{}
	tracker := NewLiveMessageTracker(store, rec.record, nil)

	tracker.Sync([]string{"r1"})
	// keep the callback around as a late-arriving event source
	store.mu.Lock()
	late := store.msgSubs["r1"]
	store.mu.Unlock()

	tracker.Close()
	late(message("r1", "B", "late", t1))

	assert.Equal(t, 0, rec.count())
}

func TestTrackerSyncAfterCloseIsNoop(t *testing.T) {
	store := newFakeRoomStore()
	tracker := NewLiveMessageTracker(store, (&messageRecorder{}).record, nil)

	tracker.Close()
	tracker.Sync([]string{"r1"})

	assert.Equal(t, 0, store.msgSubbed)
	assert.Equal(t, 0, tracker.Tracked())
}

func TestTrackerSubscribeFailureLeavesOthersAlive(t *testing.T) {
	store := newFakeRoomStore()
	store.msgSubFailFor = map[string]error{"bad": assert.AnError}
	rec := &messageRecorder{}
	tracker := NewLiveMessageTracker(store, rec.record, nil)

	tracker.Sync([]string{"bad", "good"})

	assert.Equal(t, 1, tracker.Tracked())
	store.fireMessage("good", message("good", "B", "hi", t1))
	assert.Equal(t, 1, rec.count())
}

func TestTrackerRepeatedSubscribeFailureSurfacesError(t *testing.T) {
	store := newFakeRoomStore()
	store.msgSubFailFor = map[string]error{"bad": assert.AnError}
	rec := &messageRecorder{}
	var errs []error
	tracker := NewLiveMessageTracker(store, rec.record, func(_ string, err error) {
		errs = append(errs, err)
	})

	tracker.Sync([]string{"bad", "good"})
	tracker.Sync([]string{"bad", "good"})
	assert.Empty(t, errs)

	tracker.Sync([]string{"bad", "good"})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], assert.AnError)

	// same streak stays silent
	tracker.Sync([]string{"bad", "good"})
	require.Len(t, errs, 1)

	// "good" is unaffected throughout
	assert.Equal(t, 1, tracker.Tracked())
	store.fireMessage("good", message("good", "B", "hi", t1))
	assert.Equal(t, 1, rec.count())

	// recovery resets the streak; a fresh run of failures reports again
	delete(store.msgSubFailFor, "bad")
	tracker.Sync([]string{"bad", "good"})
	assert.Equal(t, 2, tracker.Tracked())

	tracker.Sync([]string{"good"})
	store.msgSubFailFor["bad"] = assert.AnError
	tracker.Sync([]string{"bad", "good"})
	tracker.Sync([]string{"bad", "good"})
	tracker.Sync([]string{"bad", "good"})
	require.Len(t, errs, 2)
}

func TestTrackerDeliversExistingHeadOnSubscribe(t *testing.T) {
	store := newFakeRoomStore(models.RoomSnapshot{
		Room:          room("r1", "B", "U", t0),
		LatestMessage: message("r1", "B", "hi", t1),
	})
	rec := &messageRecorder{}
	tracker := NewLiveMessageTracker(store, rec.record, nil)

	tracker.Sync([]string{"r1"})

	require.Equal(t, 1, rec.count())

	// already-tracked rooms do not redeliver
	tracker.Sync([]string{"r1"})
	assert.Equal(t, 1, rec.count())
}
