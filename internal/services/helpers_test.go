package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/charlesng35/authflow/internal/auth"
	"github.com/charlesng35/authflow/internal/database/testutil"
	"github.com/charlesng35/authflow/internal/store"
)

type sentNotification struct {
	Kind  string
	Email string
	Value string
}

// recordingNotifier captures notifications and can be told to fail per kind.
type recordingNotifier struct {
	mu       sync.Mutex
	sent     []sentNotification
	failures map[string]error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{failures: map[string]error{}}
}

func (n *recordingNotifier) fail(kind string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures[kind] = err
}

func (n *recordingNotifier) record(kind, email, value string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.failures[kind]; err != nil {
		return err
	}
	n.sent = append(n.sent, sentNotification{Kind: kind, Email: email, Value: value})
	return nil
}

func (n *recordingNotifier) last(kind string) (sentNotification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].Kind == kind {
			return n.sent[i], true
		}
	}
	return sentNotification{}, false
}

func (n *recordingNotifier) SendVerification(_ context.Context, email, code string) error {
	return n.record(NotificationVerification, email, code)
}

func (n *recordingNotifier) SendWelcome(_ context.Context, email, name string) error {
	return n.record(NotificationWelcome, email, name)
}

func (n *recordingNotifier) SendResetRequest(_ context.Context, email, resetURL string) error {
	return n.record(NotificationResetRequest, email, resetURL)
}

func (n *recordingNotifier) SendResetSuccess(_ context.Context, email string) error {
	return n.record(NotificationResetSuccess, email, "")
}

// fixedSecrets replays queued secrets before falling back to random ones.
type fixedSecrets struct {
	mu     sync.Mutex
	codes  []string
	tokens []string
	next   *auth.SecretGenerator
}

func (f *fixedSecrets) VerificationCode() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.codes) > 0 {
		code := f.codes[0]
		f.codes = f.codes[1:]
		return code, nil
	}
	return f.next.VerificationCode()
}

func (f *fixedSecrets) ResetToken() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tokens) > 0 {
		token := f.tokens[0]
		f.tokens = f.tokens[1:]
		return token, nil
	}
	return f.next.ResetToken()
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type authFixture struct {
	svc      *AuthService
	store    *store.GormStore
	notifier *recordingNotifier
	codec    *auth.JWTService
	clock    *testClock
}

func newAuthFixture(t *testing.T, opts ...AuthOption) *authFixture {
	t.Helper()

	clock := &testClock{now: time.Now().UTC()}
	credentials := store.NewGormStore(testutil.MustOpenTestDB(t, testutil.WithAutoMigrate()))
	codec, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Clock: clock.Now})
	require.NoError(t, err)
	notifier := newRecordingNotifier()

	base := []AuthOption{
		WithAuthClock(clock.Now),
		WithPasswordCost(bcrypt.MinCost),
		WithClientURL("http://localhost:5173/"),
	}
	svc, err := NewAuthService(credentials, codec, notifier, append(base, opts...)...)
	require.NoError(t, err)

	return &authFixture{svc: svc, store: credentials, notifier: notifier, codec: codec, clock: clock}
}

func (f *authFixture) register(t *testing.T, email, password, name string) *SessionResult {
	t.Helper()
	result, err := f.svc.Register(context.Background(), RegisterInput{Email: email, Password: password, Name: name})
	require.NoError(t, err)
	return result
}

func (f *authFixture) verificationCode(t *testing.T, email string) string {
	t.Helper()
	sent, ok := f.notifier.last(NotificationVerification)
	require.True(t, ok, "expected a verification notification")
	require.Equal(t, store.NormalizeEmail(email), sent.Email)
	return sent.Value
}
