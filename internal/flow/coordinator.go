package flow

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pettai/petbot/core/logger"
	"github.com/pettai/petbot/core/telegram/format"
	"log/slog"
)

// CallbackGetSession is the callback key that starts a session flow.
const CallbackGetSession = "get_session"

// Config carries the flow timing and retry knobs.
type Config struct {
	// Timeout bounds user inactivity within a flow step.
	Timeout time.Duration
	// SecretDeleteAfter is how long the session credential stays visible.
	SecretDeleteAfter time.Duration
	// NoticeDeleteAfter is how long welcome/error/timeout notices stay visible.
	NoticeDeleteAfter time.Duration
	// MaxValidationRetries bounds re-prompts before the flow terminates.
	MaxValidationRetries int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Minute
	}
	if c.SecretDeleteAfter <= 0 {
		c.SecretDeleteAfter = 2 * time.Minute
	}
	if c.NoticeDeleteAfter <= 0 {
		c.NoticeDeleteAfter = 2 * time.Minute
	}
	if c.MaxValidationRetries <= 0 {
		c.MaxValidationRetries = 3
	}
	return c
}

// Coordinator drives the per-user session flow. It is the sole writer of flow
// state; handling is serialized per user while events for different users run
// concurrently.
type Coordinator struct {
	cfg       Config
	messenger Messenger
	provider  SessionProvider
	sink      SessionSink

	timers  *TimerRegistry
	tracker *Tracker

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
	flows map[int64]*userFlow
	gen   atomic.Uint64
}

// NewCoordinator wires a coordinator to its ports. sink may be nil; session
// persistence is then skipped.
func NewCoordinator(cfg Config, m Messenger, p SessionProvider, sink SessionSink) *Coordinator {
	timers := NewTimerRegistry()
	return &Coordinator{
		cfg:       cfg.withDefaults(),
		messenger: m,
		provider:  p,
		sink:      sink,
		timers:    timers,
		tracker:   NewTracker(m, timers),
		locks:     make(map[int64]*sync.Mutex),
		flows:     make(map[int64]*userFlow),
	}
}

// Close cancels every outstanding flow timer.
func (c *Coordinator) Close() {
	c.timers.Stop()
}

// ScheduleDeletion exposes fire-and-forget message deletion to the host, used
// for welcome messages that outlive any flow.
func (c *Coordinator) ScheduleDeletion(ref MessageRef, delay time.Duration) {
	c.tracker.ScheduleDeletion(ref, delay)
}

// NoticeTTL returns the configured lifetime of transient notices.
func (c *Coordinator) NoticeTTL() time.Duration {
	return c.cfg.NoticeDeleteAfter
}

// InProgress reports whether the user has an active flow awaiting input.
func (c *Coordinator) InProgress(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flows[userID]
	return ok && f.step != stepIdle
}

func (c *Coordinator) userLock(userID int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[userID] = l
	}
	return l
}

func (c *Coordinator) flowOf(userID int64) *userFlow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flows[userID]
}

func (c *Coordinator) setFlow(f *userFlow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flows[f.userID] = f
}

func (c *Coordinator) removeFlow(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.flows, userID)
}

func timeoutKey(userID int64) string {
	return "flow:" + strconv.FormatInt(userID, 10)
}

// OnCommandStart tears down any active flow for the user. The host sends its
// own welcome message afterwards; a fresh flow starts via OnCallback.
func (c *Coordinator) OnCommandStart(ctx context.Context, userID int64) {
	l := c.userLock(userID)
	l.Lock()
	defer l.Unlock()
	c.teardownLocked(ctx, userID)
}

// OnCallback dispatches a button press. The origin ref is the message that
// carried the button; it becomes ephemeral once a flow starts.
func (c *Coordinator) OnCallback(ctx context.Context, userID int64, key string, origin MessageRef) error {
	if key != CallbackGetSession {
		return nil
	}
	return c.Begin(ctx, userID, origin)
}

// Begin tears down any existing flow for the user and starts a fresh one in
// AWAITING_PHONE: the origin message is tracked for cleanup, the phone prompt
// is sent, and the inactivity timeout is armed.
func (c *Coordinator) Begin(ctx context.Context, userID int64, origin MessageRef) error {
	l := c.userLock(userID)
	l.Lock()
	defer l.Unlock()

	c.teardownLocked(ctx, userID)

	f := &userFlow{
		userID: userID,
		step:   stepAwaitingPhone,
		gen:    c.gen.Add(1),
	}
	c.setFlow(f)
	c.tracker.Track(userID, origin)

	ref, err := c.messenger.SendText(ctx, userID, msgPhonePrompt, SendOptions{})
	if err != nil {
		c.teardownLocked(ctx, userID)
		return err
	}
	f.prompt = ref
	f.hasPrompt = true
	c.tracker.Track(userID, ref)

	c.armTimeout(f)

	logger.Info(ctx, "flow", "flow.start",
		slog.Int64("user_id", userID),
		slog.String("step", f.step.String()),
	)
	return nil
}

// OnText dispatches inbound text to the user's current step. Text for a user
// with no active flow is ignored without side effects.
func (c *Coordinator) OnText(ctx context.Context, userID int64, text string, inbound MessageRef) error {
	l := c.userLock(userID)
	l.Lock()
	defer l.Unlock()

	f := c.flowOf(userID)
	if f == nil || f.step == stepIdle {
		return nil
	}

	// The inbound message carries a phone number or login code; delete it
	// right away instead of holding it until teardown.
	if !inbound.IsZero() {
		if err := c.messenger.DeleteMessage(ctx, inbound); err != nil {
			logger.Debug(ctx, "flow", "inbound.delete.fail",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
	}

	text = strings.TrimSpace(text)
	switch f.step {
	case stepAwaitingPhone:
		return c.handlePhoneLocked(ctx, f, text)
	case stepAwaitingCode:
		return c.handleCodeLocked(ctx, f, text)
	}
	return nil
}

func (c *Coordinator) handlePhoneLocked(ctx context.Context, f *userFlow, text string) error {
	if err := validatePhone(text); err != nil {
		return c.rejectLocked(ctx, f, msgInvalidPhone, err)
	}

	f.phone = text
	f.step = stepAwaitingCode
	f.retries = 0
	c.armTimeout(f)

	ref, err := c.messenger.SendText(ctx, f.userID, msgSendingCode, SendOptions{})
	if err != nil {
		c.teardownLocked(ctx, f.userID)
		return err
	}
	f.prompt = ref
	f.hasPrompt = true
	c.tracker.Track(f.userID, ref)

	if err := c.provider.SendCode(ctx, f.phone); err != nil {
		perr := &ProviderError{Op: "send_code", Err: err}
		return c.failLocked(ctx, f, err.Error(), perr)
	}

	if err := c.messenger.EditText(ctx, f.prompt, msgCodeSent); err != nil {
		logger.Debug(ctx, "flow", "prompt.edit.fail",
			slog.Int64("user_id", f.userID),
			slog.String("err", err.Error()),
		)
	}

	logger.Info(ctx, "flow", "flow.step",
		slog.Int64("user_id", f.userID),
		slog.String("step", f.step.String()),
	)
	return nil
}

func (c *Coordinator) handleCodeLocked(ctx context.Context, f *userFlow, text string) error {
	if err := validateCode(text); err != nil {
		return c.rejectLocked(ctx, f, msgInvalidCode, err)
	}

	ref, err := c.messenger.SendText(ctx, f.userID, msgCreating, SendOptions{})
	if err != nil {
		c.teardownLocked(ctx, f.userID)
		return err
	}
	f.prompt = ref
	f.hasPrompt = true
	c.tracker.Track(f.userID, ref)

	session, err := c.provider.CreateSession(ctx, f.phone, text)
	if err != nil {
		perr := &ProviderError{Op: "create_session", Err: err}
		return c.failLocked(ctx, f, err.Error(), perr)
	}

	secret := msgSuccess + "\n\n" + format.CodeBlock(session) + "\n\n" + msgKeepSafe
	successRef, err := c.messenger.SendText(ctx, f.userID, secret, SendOptions{Secret: true})
	if err != nil {
		c.teardownLocked(ctx, f.userID)
		return err
	}
	c.tracker.ScheduleDeletion(successRef, c.cfg.SecretDeleteAfter)

	if c.sink != nil {
		if err := c.sink.SaveSession(ctx, f.userID, session); err != nil {
			logger.Warn(ctx, "flow", "session.save.fail",
				slog.Int64("user_id", f.userID),
				slog.String("err", err.Error()),
			)
		}
	}

	c.teardownLocked(ctx, f.userID)

	logger.Info(ctx, "flow", "flow.success",
		slog.Int64("user_id", f.userID),
	)
	return nil
}

// rejectLocked applies the validation-failure policy: re-prompt in place with
// a bounded retry budget, then terminate the flow.
func (c *Coordinator) rejectLocked(ctx context.Context, f *userFlow, notice string, verr error) error {
	f.retries++

	logger.Info(ctx, "flow", "flow.validation.fail",
		slog.Int64("user_id", f.userID),
		slog.String("step", f.step.String()),
		slog.Int("retries", f.retries),
	)

	if f.retries >= c.cfg.MaxValidationRetries {
		return c.failLocked(ctx, f, notice, verr)
	}

	ref, err := c.messenger.SendText(ctx, f.userID, notice, SendOptions{})
	if err == nil {
		c.tracker.Track(f.userID, ref)
	}
	return verr
}

// failLocked sends one terminating error notice, schedules its deletion, and
// tears the flow down.
func (c *Coordinator) failLocked(ctx context.Context, f *userFlow, userMsg string, cause error) error {
	notice := "❌ Error: " + userMsg + "\n\nPlease try again with /start"
	if ref, err := c.messenger.SendText(ctx, f.userID, notice, SendOptions{}); err == nil {
		c.tracker.ScheduleDeletion(ref, c.cfg.NoticeDeleteAfter)
	}

	c.teardownLocked(ctx, f.userID)

	logger.Warn(ctx, "flow", "flow.fail",
		slog.Int64("user_id", f.userID),
		slog.String("err", logger.SanitizeLimit(cause.Error(), 256)),
	)
	return cause
}

func (c *Coordinator) armTimeout(f *userFlow) {
	gen := f.gen
	userID := f.userID
	c.timers.Schedule(timeoutKey(userID), c.cfg.Timeout, func() {
		c.expire(userID, gen)
	})
}

// expire is the timeout path. It races user-driven transitions: whichever
// acquires the user lock first wins, and a stale generation makes the loser a
// no-op.
func (c *Coordinator) expire(userID int64, gen uint64) {
	l := c.userLock(userID)
	l.Lock()
	defer l.Unlock()

	f := c.flowOf(userID)
	if f == nil || f.gen != gen {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if ref, err := c.messenger.SendText(ctx, userID, msgTimedOut, SendOptions{}); err == nil {
		c.tracker.ScheduleDeletion(ref, c.cfg.NoticeDeleteAfter)
	}

	c.teardownLocked(ctx, userID)

	logger.Info(ctx, "flow", "flow.timeout",
		slog.Int64("user_id", userID),
	)
}

// teardownLocked cancels the user's timer, removes the flow state, and flushes
// every tracked ephemeral message. Safe to call with no active flow.
func (c *Coordinator) teardownLocked(ctx context.Context, userID int64) {
	c.timers.Cancel(timeoutKey(userID))
	c.removeFlow(userID)
	c.tracker.Flush(ctx, userID)
}
