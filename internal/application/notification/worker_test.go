package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domorder "github.com/skyvolt/storefront/internal/domain/order"
	domotp "github.com/skyvolt/storefront/internal/domain/otp"
	domoutbox "github.com/skyvolt/storefront/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inlineSubscriber struct {
	handlers map[string][]domoutbox.Handler
}

func newInlineSubscriber() *inlineSubscriber {
	return &inlineSubscriber{handlers: make(map[string][]domoutbox.Handler)}
}

func (s *inlineSubscriber) Subscribe(eventName string, h domoutbox.Handler) {
	s.handlers[eventName] = append(s.handlers[eventName], h)
}

func (s *inlineSubscriber) deliver(t *testing.T, e domoutbox.Event) {
	t.Helper()
	hs := s.handlers[e.EventName()]
	require.NotEmpty(t, hs)
	for _, h := range hs {
		require.NoError(t, h(context.Background(), e))
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, m Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, m)
	return nil
}

type recordingLog struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (l *recordingLog) Record(_ context.Context, e LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func TestWorkerDispatchesOtpIssued(t *testing.T) {
	t.Parallel()

	sub := newInlineSubscriber()
	notifier := &recordingNotifier{}
	logStore := &recordingLog{}
	NewWorker(sub, notifier, logStore, nil).Start()

	sub.deliver(t, domotp.IssuedEvent{
		Email:     "asha@example.com",
		Code:      "123456",
		Purpose:   domotp.PurposeLogin,
		ExpiresAt: time.Date(2026, 3, 14, 12, 10, 0, 0, time.UTC),
	})

	require.Len(t, notifier.sent, 1)
	m := notifier.sent[0]
	assert.Equal(t, "asha@example.com", m.To)
	assert.Equal(t, KindOtp, m.Kind)
	assert.Equal(t, "123456", m.Variables["code"])

	require.Len(t, logStore.entries, 1)
	assert.Equal(t, "sent", logStore.entries[0].Status)
}

func TestWorkerDispatchesOrderPlaced(t *testing.T) {
	t.Parallel()

	sub := newInlineSubscriber()
	notifier := &recordingNotifier{}
	logStore := &recordingLog{}
	NewWorker(sub, notifier, logStore, nil).Start()

	sub.deliver(t, domorder.PlacedEvent{
		OrderID:     "ord-1",
		OrderNumber: "SKY-TEST00000001",
		UserID:      "user-1",
		Email:       "asha@example.com",
		Total:       1180,
		ItemCount:   1,
	})

	require.Len(t, notifier.sent, 1)
	m := notifier.sent[0]
	assert.Equal(t, KindOrderConfirmation, m.Kind)
	assert.Contains(t, m.Subject, "SKY-TEST00000001")
	assert.Equal(t, "1180.00", m.Variables["total"])
}

func TestWorkerRecordsFailureAndSwallowsError(t *testing.T) {
	t.Parallel()

	sub := newInlineSubscriber()
	notifier := &recordingNotifier{err: errors.New("broker unreachable")}
	logStore := &recordingLog{}
	NewWorker(sub, notifier, logStore, nil).Start()

	// deliver asserts the handler returns nil even when sending fails.
	sub.deliver(t, domotp.IssuedEvent{Email: "asha@example.com", Code: "123456", Purpose: domotp.PurposeLogin})

	require.Len(t, logStore.entries, 1)
	assert.Equal(t, "failed", logStore.entries[0].Status)
	assert.Contains(t, logStore.entries[0].Error, "broker unreachable")
}
