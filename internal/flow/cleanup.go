package flow

import (
	"context"
	"sync"
	"time"

	"github.com/pettai/petbot/core/logger"
	"log/slog"
)

// Tracker keeps per-user lists of ephemeral message references and deletes
// them best-effort when a flow ends. Individual deletion failures never abort
// the remaining deletions.
type Tracker struct {
	messenger Messenger
	timers    *TimerRegistry

	mu      sync.Mutex
	pending map[int64][]MessageRef
}

// NewTracker wires a tracker to the messenger used for deletions.
func NewTracker(m Messenger, timers *TimerRegistry) *Tracker {
	return &Tracker{
		messenger: m,
		timers:    timers,
		pending:   make(map[int64][]MessageRef),
	}
}

// Track appends ref to the user's pending-delete list.
func (t *Tracker) Track(userID int64, ref MessageRef) {
	if ref.IsZero() {
		return
	}
	t.mu.Lock()
	t.pending[userID] = append(t.pending[userID], ref)
	t.mu.Unlock()
}

// Flush deletes every tracked reference for the user in insertion order,
// swallowing per-item failures, then clears the list. A second back-to-back
// call performs zero deletions. Returns the number of deletion attempts.
func (t *Tracker) Flush(ctx context.Context, userID int64) int {
	t.mu.Lock()
	refs := t.pending[userID]
	delete(t.pending, userID)
	t.mu.Unlock()

	for _, ref := range refs {
		if err := t.messenger.DeleteMessage(ctx, ref); err != nil {
			logger.Debug(ctx, "flow", "cleanup.delete.fail",
				slog.Int64("chat_id", ref.ChatID),
				slog.Int("message_id", ref.MessageID),
				slog.String("err", err.Error()),
			)
		}
	}
	return len(refs)
}

// Pending returns the number of tracked references for the user.
func (t *Tracker) Pending(userID int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending[userID])
}

// ScheduleDeletion deletes a single message after delay, fire-and-forget.
// It runs whether or not the owning flow still exists and ignores failure.
func (t *Tracker) ScheduleDeletion(ref MessageRef, delay time.Duration) {
	if ref.IsZero() {
		return
	}
	t.timers.After(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := t.messenger.DeleteMessage(ctx, ref); err != nil {
			logger.Debug(ctx, "flow", "cleanup.scheduled.fail",
				slog.Int64("chat_id", ref.ChatID),
				slog.Int("message_id", ref.MessageID),
				slog.String("err", err.Error()),
			)
		}
	})
}
