package service

import (
	"context"
	"sync"
	"testing"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingNotifier keeps every message it is handed.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (n *recordingNotifier) Enqueue(msg domain.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) kinds() []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]domain.NotificationKind, 0, len(n.msgs))
	for _, m := range n.msgs {
		kinds = append(kinds, m.Notification.Kind())
	}
	return kinds
}

func (n *recordingNotifier) last(t *testing.T) domain.Message {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.msgs, "no notifications queued")
	return n.msgs[len(n.msgs)-1]
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestHasher() *cryptox.Argon2Hasher {
	return &cryptox.Argon2Hasher{
		Params: cryptox.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		Pepper: "test-pepper",
	}
}

func newTestMinter(t *testing.T) *SessionMinter {
	t.Helper()

	keys, err := jwtx.NewKeyRing(jwtx.KeyRingOptions{Issuer: "accounts-test"})
	require.NoError(t, err)
	return &SessionMinter{Keys: keys}
}

func newTestAccounts(t *testing.T) (*AccountService, *recordingNotifier) {
	t.Helper()

	notifier := &recordingNotifier{}
	svc := NewAccountService(newTestStore(t), AccountConfig{
		VerificationURL: "https://app.example.com/verify-email",
	}, newTestHasher(), newTestMinter(t), notifier)
	return svc, notifier
}

// registerVerified registers email with password and redeems the emailed
// verification token.
func registerVerified(t *testing.T, svc *AccountService, email, password string) domain.User {
	t.Helper()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: email, Password: password, FirstName: "A", LastName: "B"})
	require.NoError(t, err)

	user, err := svc.Store.Users().GetUserByEmail(ctx, email)
	require.NoError(t, err)
	token, err := svc.Tokens.Latest(ctx, svc.Store, user.ID, domain.SecretEmailVerification)
	require.NoError(t, err)

	_, err = svc.ConfirmEmail(ctx, token.Value)
	require.NoError(t, err)

	user, err = svc.Store.Users().GetUserByEmail(ctx, email)
	require.NoError(t, err)
	return user
}
