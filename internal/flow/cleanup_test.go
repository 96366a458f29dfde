package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyMessenger struct {
	mu      sync.Mutex
	deleted []MessageRef
	// message IDs whose deletion should fail
	failing map[int]error
}

func (m *flakyMessenger) SendText(context.Context, int64, string, SendOptions) (MessageRef, error) {
	return MessageRef{}, nil
}

func (m *flakyMessenger) EditText(context.Context, MessageRef, string) error { return nil }

func (m *flakyMessenger) DeleteMessage(_ context.Context, ref MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failing[ref.MessageID]; ok {
		return err
	}
	m.deleted = append(m.deleted, ref)
	return nil
}

func (m *flakyMessenger) deletedIDs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, len(m.deleted))
	for i, d := range m.deleted {
		ids[i] = d.MessageID
	}
	return ids
}

func TestFlushDeletesInInsertionOrder(t *testing.T) {
	m := &flakyMessenger{}
	tr := NewTracker(m, NewTimerRegistry())

	tr.Track(1, MessageRef{ChatID: 1, MessageID: 10})
	tr.Track(1, MessageRef{ChatID: 1, MessageID: 11})
	tr.Track(1, MessageRef{ChatID: 1, MessageID: 12})

	attempted := tr.Flush(context.Background(), 1)
	assert.Equal(t, 3, attempted)
	assert.Equal(t, []int{10, 11, 12}, m.deletedIDs())
}

func TestFlushIsIdempotent(t *testing.T) {
	m := &flakyMessenger{}
	tr := NewTracker(m, NewTimerRegistry())

	tr.Track(1, MessageRef{ChatID: 1, MessageID: 10})
	require.Equal(t, 1, tr.Flush(context.Background(), 1))
	assert.Equal(t, 0, tr.Flush(context.Background(), 1), "second flush performs zero deletions")
}

func TestFlushContinuesPastFailures(t *testing.T) {
	m := &flakyMessenger{failing: map[int]error{11: errors.New("message to delete not found")}}
	tr := NewTracker(m, NewTimerRegistry())

	tr.Track(1, MessageRef{ChatID: 1, MessageID: 10})
	tr.Track(1, MessageRef{ChatID: 1, MessageID: 11})
	tr.Track(1, MessageRef{ChatID: 1, MessageID: 12})

	attempted := tr.Flush(context.Background(), 1)
	assert.Equal(t, 3, attempted)
	assert.Equal(t, []int{10, 12}, m.deletedIDs(), "failure must not abort remaining deletions")
}

func TestFlushIsPerUser(t *testing.T) {
	m := &flakyMessenger{}
	tr := NewTracker(m, NewTimerRegistry())

	tr.Track(1, MessageRef{ChatID: 1, MessageID: 10})
	tr.Track(2, MessageRef{ChatID: 2, MessageID: 20})

	tr.Flush(context.Background(), 1)
	assert.Equal(t, []int{10}, m.deletedIDs())
	assert.Equal(t, 1, tr.Pending(2))
}

func TestScheduleDeletionIndependentOfFlow(t *testing.T) {
	m := &flakyMessenger{}
	tr := NewTracker(m, NewTimerRegistry())

	tr.ScheduleDeletion(MessageRef{ChatID: 1, MessageID: 30}, time.Millisecond)

	require.Eventually(t, func() bool {
		ids := m.deletedIDs()
		return len(ids) == 1 && ids[0] == 30
	}, time.Second, time.Millisecond)
}

func TestTrackIgnoresZeroRef(t *testing.T) {
	tr := NewTracker(&flakyMessenger{}, NewTimerRegistry())
	tr.Track(1, MessageRef{})
	assert.Equal(t, 0, tr.Pending(1))
}
