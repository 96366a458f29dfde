package flow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMsg struct {
	ref  MessageRef
	text string
	opts SendOptions
}

type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentMsg
	edits   map[MessageRef]string
	deleted []MessageRef
	sendErr error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{edits: make(map[MessageRef]string)}
}

func (m *fakeMessenger) SendText(_ context.Context, chatID int64, text string, opts SendOptions) (MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return MessageRef{}, m.sendErr
	}
	m.nextID++
	ref := MessageRef{ChatID: chatID, MessageID: m.nextID}
	m.sent = append(m.sent, sentMsg{ref: ref, text: text, opts: opts})
	return ref, nil
}

func (m *fakeMessenger) EditText(_ context.Context, ref MessageRef, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits[ref] = text
	return nil
}

func (m *fakeMessenger) DeleteMessage(_ context.Context, ref MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, ref)
	return nil
}

func (m *fakeMessenger) sentTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, s := range m.sent {
		out[i] = s.text
	}
	return out
}

func (m *fakeMessenger) deletedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deleted)
}

func (m *fakeMessenger) lastSent() sentMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type fakeProvider struct {
	mu            sync.Mutex
	sendCodeCalls []string
	createCalls   [][2]string
	sendCodeErr   error
	createErr     error
	session       string
}

func (p *fakeProvider) SendCode(_ context.Context, phone string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendCodeCalls = append(p.sendCodeCalls, phone)
	return p.sendCodeErr
}

func (p *fakeProvider) CreateSession(_ context.Context, phone, code string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls = append(p.createCalls, [2]string{phone, code})
	if p.createErr != nil {
		return "", p.createErr
	}
	return p.session, nil
}

func newTestCoordinator(cfg Config) (*Coordinator, *fakeMessenger, *fakeProvider) {
	m := newFakeMessenger()
	p := &fakeProvider{session: "ABC"}
	return NewCoordinator(cfg, m, p, nil), m, p
}

const testUser int64 = 777

func originRef() MessageRef {
	return MessageRef{ChatID: testUser, MessageID: 100}
}

func TestBeginStartsAwaitingPhone(t *testing.T) {
	c, m, _ := newTestCoordinator(Config{})
	defer c.Close()

	require.NoError(t, c.Begin(context.Background(), testUser, originRef()))

	assert.True(t, c.InProgress(testUser))
	assert.Equal(t, 1, c.timers.Active())
	require.Len(t, m.sent, 1)
	assert.Equal(t, msgPhonePrompt, m.sent[0].text)
	// origin + prompt are both slated for cleanup
	assert.Equal(t, 2, c.tracker.Pending(testUser))
}

func TestValidPhoneAdvancesToAwaitingCode(t *testing.T) {
	c, m, p := newTestCoordinator(Config{})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Begin(ctx, testUser, originRef()))
	require.NoError(t, c.OnText(ctx, testUser, "+12345678", MessageRef{ChatID: testUser, MessageID: 200}))

	require.Equal(t, []string{"+12345678"}, p.sendCodeCalls)
	f := c.flowOf(testUser)
	require.NotNil(t, f)
	assert.Equal(t, stepAwaitingCode, f.step)
	assert.Equal(t, "+12345678", f.phone)
	// placeholder edited in place to the code prompt
	assert.Equal(t, msgCodeSent, m.edits[f.prompt])
	// the inbound phone message was deleted immediately
	assert.Contains(t, m.deleted, MessageRef{ChatID: testUser, MessageID: 200})
}

func TestInvalidPhoneRepromptsWithoutProviderCall(t *testing.T) {
	c, m, p := newTestCoordinator(Config{})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Begin(ctx, testUser, originRef()))
	err := c.OnText(ctx, testUser, "12345678", MessageRef{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, p.sendCodeCalls)
	assert.True(t, c.InProgress(testUser), "flow survives a failed attempt")
	assert.Equal(t, 1, c.flowOf(testUser).retries)
	assert.Contains(t, m.sentTexts(), msgInvalidPhone)
}

func TestValidationRetriesExhaustedTerminates(t *testing.T) {
	c, m, _ := newTestCoordinator(Config{MaxValidationRetries: 2})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Begin(ctx, testUser, originRef()))
	_ = c.OnText(ctx, testUser, "nope", MessageRef{})
	err := c.OnText(ctx, testUser, "still nope", MessageRef{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.False(t, c.InProgress(testUser))
	assert.Equal(t, 0, c.timers.Active(), "no leaked timers")
	assert.Equal(t, 0, c.tracker.Pending(testUser))

	last := m.lastSent()
	assert.Contains(t, last.text, "Please try again with /start")
}

func TestCreateSessionSuccessDeliversSecret(t *testing.T) {
	c, m, p := newTestCoordinator(Config{})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Begin(ctx, testUser, originRef()))
	require.NoError(t, c.OnText(ctx, testUser, "+12345678", MessageRef{}))
	require.NoError(t, c.OnText(ctx, testUser, "54321", MessageRef{}))

	require.Equal(t, [][2]string{{"+12345678", "54321"}}, p.createCalls)

	last := m.lastSent()
	assert.Contains(t, last.text, "ABC")
	assert.True(t, last.opts.Secret, "credential must be rendered as literal text")

	assert.False(t, c.InProgress(testUser))
	assert.Equal(t, 0, c.timers.Active())
	assert.Equal(t, 0, c.tracker.Pending(testUser), "ephemeral messages flushed")
	assert.GreaterOrEqual(t, m.deletedCount(), 3, "origin, prompt and placeholders deleted")
}

func TestSecretWithBackticksStaysFenced(t *testing.T) {
	c, m, p := newTestCoordinator(Config{})
	defer c.Close()
	ctx := context.Background()
	p.session = "ab`cd```ef"

	require.NoError(t, c.Begin(ctx, testUser, originRef()))
	require.NoError(t, c.OnText(ctx, testUser, "+12345678", MessageRef{}))
	require.NoError(t, c.OnText(ctx, testUser, "54321", MessageRef{}))

	last := m.lastSent()
	require.True(t, last.opts.Secret)
	assert.Equal(t, 2, strings.Count(last.text, "```"),
		"session text must not break out of the fence")
	assert.Contains(t, last.text, "abcdef")
}

func TestProviderFailureTerminatesFlow(t *testing.T) {
	c, m, p := newTestCoordinator(Config{})
	defer c.Close()
	ctx := context.Background()
	p.sendCodeErr = errors.New("Failed to send verification code")

	require.NoError(t, c.Begin(ctx, testUser, originRef()))
	err := c.OnText(ctx, testUser, "+12345678", MessageRef{})

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "send_code", perr.Op)
	assert.False(t, c.InProgress(testUser))
	assert.Equal(t, 0, c.timers.Active())

	last := m.lastSent()
	assert.Contains(t, last.text, "Failed to send verification code")
	assert.Contains(t, last.text, "/start")
}

func TestTimeoutFiresOnceAndFreshFlowWorks(t *testing.T) {
	c, m, p := newTestCoordinator(Config{Timeout: 20 * time.Millisecond})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Begin(ctx, testUser, originRef()))

	require.Eventually(t, func() bool {
		return !c.InProgress(testUser)
	}, time.Second, 5*time.Millisecond)

	timeouts := 0
	for _, text := range m.sentTexts() {
		if strings.Contains(text, "timed out") {
			timeouts++
		}
	}
	assert.Equal(t, 1, timeouts)
	assert.Equal(t, 0, c.tracker.Pending(testUser))

	// ignored while idle
	require.NoError(t, c.OnText(ctx, testUser, "+12345678", MessageRef{}))
	assert.Empty(t, p.sendCodeCalls)

	// a fresh flow accepts the same phone normally
	require.NoError(t, c.Begin(ctx, testUser, originRef()))
	require.NoError(t, c.OnText(ctx, testUser, "+12345678", MessageRef{}))
	assert.Equal(t, []string{"+12345678"}, p.sendCodeCalls)
}

func TestRestartKeepsSingleActiveFlow(t *testing.T) {
	c, m, _ := newTestCoordinator(Config{})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Begin(ctx, testUser, originRef()))
	firstPrompt := m.lastSent().ref

	require.NoError(t, c.Begin(ctx, testUser, originRef()))

	assert.True(t, c.InProgress(testUser))
	assert.Equal(t, 1, c.timers.Active(), "exactly one timer after restart")
	assert.Contains(t, m.deleted, firstPrompt, "first flow's messages flushed")
	assert.Equal(t, 2, c.tracker.Pending(testUser))
}

func TestOnCommandStartTearsDown(t *testing.T) {
	c, _, _ := newTestCoordinator(Config{})
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Begin(ctx, testUser, originRef()))
	c.OnCommandStart(ctx, testUser)

	assert.False(t, c.InProgress(testUser))
	assert.Equal(t, 0, c.timers.Active())
	assert.Equal(t, 0, c.tracker.Pending(testUser))
}

func TestOnCallbackIgnoresUnknownKeys(t *testing.T) {
	c, m, _ := newTestCoordinator(Config{})
	defer c.Close()

	require.NoError(t, c.OnCallback(context.Background(), testUser, "pet_refresh", originRef()))
	assert.False(t, c.InProgress(testUser))
	assert.Empty(t, m.sent)
}

func TestIdleTextIgnored(t *testing.T) {
	c, m, _ := newTestCoordinator(Config{})
	defer c.Close()

	require.NoError(t, c.OnText(context.Background(), testUser, "+12345678", MessageRef{ChatID: testUser, MessageID: 1}))
	assert.Empty(t, m.sent)
	assert.Zero(t, m.deletedCount())
}
