package otp

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	domain "github.com/skyvolt/storefront/internal/domain/otp"
	domoutbox "github.com/skyvolt/storefront/internal/domain/outbox"
	"github.com/skyvolt/storefront/internal/infrastructure/id"
	"github.com/skyvolt/storefront/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: make(map[string]int)}
}

func (l *fakeLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	l.counts[key]++
	return l.counts[key] <= limit, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *capturingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturingPublisher) issued() []domain.IssuedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.IssuedEvent
	for _, e := range p.events {
		if evt, ok := e.(domain.IssuedEvent); ok {
			out = append(out, evt)
		}
	}
	return out
}

type fixture struct {
	store     *memory.OtpStore
	limiter   *fakeLimiter
	publisher *capturingPublisher
	svc       *Service
	clock     time.Time
}

func newFixture() *fixture {
	f := &fixture{
		store:     memory.NewOtpStore(),
		limiter:   newFakeLimiter(),
		publisher: &capturingPublisher{},
		clock:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.limiter, id.NewUUIDGenerator(), f.publisher, nil)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) lastCode(t *testing.T) string {
	t.Helper()
	issued := f.publisher.issued()
	require.NotEmpty(t, issued)
	return issued[len(issued)-1].Code
}

func issueInput() IssueInput {
	return IssueInput{Email: "asha@example.com", Purpose: "login"}
}

func TestIssue(t *testing.T) {
	t.Parallel()

	f := newFixture()

	result, err := f.svc.Issue(context.Background(), issueInput())
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, f.clock.Add(domain.TTL), result.ExpiresAt)

	code := f.lastCode(t)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)
}

func TestIssueThrottledAfterLimit(t *testing.T) {
	t.Parallel()

	f := newFixture()

	for i := 0; i < domain.IssueLimit; i++ {
		result, err := f.svc.Issue(context.Background(), issueInput())
		require.NoError(t, err)
		require.True(t, result.Accepted)
	}

	result, err := f.svc.Issue(context.Background(), issueInput())
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Len(t, f.publisher.issued(), domain.IssueLimit)
}

func TestIssueLimitIsPerPurpose(t *testing.T) {
	t.Parallel()

	f := newFixture()

	for i := 0; i < domain.IssueLimit; i++ {
		_, err := f.svc.Issue(context.Background(), issueInput())
		require.NoError(t, err)
	}

	result, err := f.svc.Issue(context.Background(), IssueInput{Email: "asha@example.com", Purpose: "registration"})
	require.NoError(t, err)
	assert.True(t, result.Accepted)
}

func TestIssueInvalidatesPreviousCode(t *testing.T) {
	t.Parallel()

	f := newFixture()

	_, err := f.svc.Issue(context.Background(), issueInput())
	require.NoError(t, err)
	first := f.lastCode(t)

	_, err = f.svc.Issue(context.Background(), issueInput())
	require.NoError(t, err)
	second := f.lastCode(t)

	outcome, err := f.svc.Verify(context.Background(), VerifyInput{Email: "asha@example.com", Code: first, Purpose: "login"})
	require.NoError(t, err)
	assert.Equal(t, domain.VerifyInvalid, outcome)

	outcome, err = f.svc.Verify(context.Background(), VerifyInput{Email: "asha@example.com", Code: second, Purpose: "login"})
	require.NoError(t, err)
	assert.Equal(t, domain.VerifySuccess, outcome)
}

func TestIssueRejectsUnknownPurpose(t *testing.T) {
	t.Parallel()

	f := newFixture()

	_, err := f.svc.Issue(context.Background(), IssueInput{Email: "asha@example.com", Purpose: "takeover"})
	assert.ErrorIs(t, err, domain.ErrInvalidPurpose)
}

func TestIssueLimiterFailure(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.limiter.err = errors.New("redis down")

	_, err := f.svc.Issue(context.Background(), issueInput())
	assert.Error(t, err)
}

func TestVerifyIsSingleUse(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.svc.Issue(context.Background(), issueInput())
	require.NoError(t, err)
	code := f.lastCode(t)

	in := VerifyInput{Email: "asha@example.com", Code: code, Purpose: "login"}
	outcome, err := f.svc.Verify(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, domain.VerifySuccess, outcome)

	outcome, err = f.svc.Verify(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, domain.VerifyInvalid, outcome)
}

func TestVerifyWrongCode(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.svc.Issue(context.Background(), issueInput())
	require.NoError(t, err)

	outcome, err := f.svc.Verify(context.Background(), VerifyInput{Email: "asha@example.com", Code: "000000", Purpose: "login"})
	require.NoError(t, err)
	assert.Equal(t, domain.VerifyInvalid, outcome)
}

func TestVerifyExpiredCode(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.svc.Issue(context.Background(), issueInput())
	require.NoError(t, err)
	code := f.lastCode(t)

	f.clock = f.clock.Add(domain.TTL + time.Second)

	outcome, err := f.svc.Verify(context.Background(), VerifyInput{Email: "asha@example.com", Code: code, Purpose: "login"})
	require.NoError(t, err)
	assert.Equal(t, domain.VerifyExpired, outcome)
}

func TestVerifyAttemptCap(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.svc.Issue(context.Background(), issueInput())
	require.NoError(t, err)
	code := f.lastCode(t)

	// Expired verifications keep the record live, so every retry counts.
	f.clock = f.clock.Add(domain.TTL + time.Second)

	in := VerifyInput{Email: "asha@example.com", Code: code, Purpose: "login"}
	for i := 0; i < domain.MaxAttempts; i++ {
		outcome, err := f.svc.Verify(context.Background(), in)
		require.NoError(t, err)
		require.Equal(t, domain.VerifyExpired, outcome)
	}

	outcome, err := f.svc.Verify(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, domain.VerifyTooManyAttempts, outcome)
}

func TestVerifyValidation(t *testing.T) {
	t.Parallel()

	f := newFixture()

	_, err := f.svc.Verify(context.Background(), VerifyInput{Email: "", Code: "123456", Purpose: "login"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Verify(context.Background(), VerifyInput{Email: "asha@example.com", Code: "123456", Purpose: "hijack"})
	assert.ErrorIs(t, err, domain.ErrInvalidPurpose)
}
