package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newTestAccounts(t)

	res, err := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "pw12345", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	require.Equal(t, "a@x.com", res.Email)
	require.Equal(t, MsgRegistered, res.Message)

	user, err := svc.Store.Users().GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, user.Role)
	require.Equal(t, domain.TierFree, user.SubscriptionTier)
	require.False(t, user.EmailVerified)
	require.True(t, user.Enabled)
	require.False(t, user.AccountLocked)
	require.False(t, user.MFAEnabled)
	require.NotEqual(t, "pw12345", user.PasswordHash)

	token, err := svc.Tokens.Latest(ctx, svc.Store, user.ID, domain.SecretEmailVerification)
	require.NoError(t, err)

	msg := notifier.last(t)
	require.Equal(t, "a@x.com", msg.To)
	mail, ok := msg.Notification.(domain.VerificationEmail)
	require.True(t, ok)
	require.Equal(t, "A", mail.Name)
	require.Equal(t, DefaultTokenValidity, mail.ValidFor)

	link, err := url.Parse(mail.Link)
	require.NoError(t, err)
	require.Equal(t, "/verify-email", link.Path)
	require.Equal(t, token.Value, link.Query().Get("token"))

	t.Run("duplicate email leaves the first account alone", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "other-pass", FirstName: "C", LastName: "D"})
		require.ErrorIs(t, err, ErrEmailAlreadyExists)

		again, err := svc.Store.Users().GetUserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.Equal(t, user, again)
		require.Len(t, notifier.kinds(), 1)
	})
}

func TestConfirmEmail(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newTestAccounts(t)

	_, err := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "pw12345", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	user, err := svc.Store.Users().GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	token, err := svc.Tokens.Latest(ctx, svc.Store, user.ID, domain.SecretEmailVerification)
	require.NoError(t, err)

	msg, err := svc.ConfirmEmail(ctx, token.Value)
	require.NoError(t, err)
	require.Equal(t, MsgEmailVerified, msg)

	user, err = svc.Store.Users().GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, user.EmailVerified)
	require.Equal(t, domain.NotifyWelcome, notifier.last(t).Notification.Kind())

	t.Run("second use is rejected", func(t *testing.T) {
		_, err := svc.ConfirmEmail(ctx, token.Value)
		require.ErrorIs(t, err, ErrInvalidToken)
		require.ErrorIs(t, err, ErrTokenAlreadyUsed)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := svc.ConfirmEmail(ctx, "not-a-token")
		require.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("expired token", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{Email: "late@x.com", Password: "pw12345", FirstName: "L", LastName: "T"})
		require.NoError(t, err)
		late, err := svc.Store.Users().GetUserByEmail(ctx, "late@x.com")
		require.NoError(t, err)
		token, err := svc.Tokens.Latest(ctx, svc.Store, late.ID, domain.SecretEmailVerification)
		require.NoError(t, err)

		svc.Tokens.secrets.Now = func() time.Time { return time.Now().Add(DefaultTokenValidity + time.Minute) }
		defer func() { svc.Tokens.secrets.Now = nil }()

		_, err = svc.ConfirmEmail(ctx, token.Value)
		require.ErrorIs(t, err, ErrTokenExpired)

		late, err = svc.Store.Users().GetUserByEmail(ctx, "late@x.com")
		require.NoError(t, err)
		require.False(t, late.EmailVerified)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAccounts(t)

	_, err := svc.Register(ctx, RegisterInput{Email: "new@x.com", Password: "pw12345", FirstName: "N", LastName: "U"})
	require.NoError(t, err)
	registerVerified(t, svc, "a@x.com", "pw12345")

	t.Run("unverified regardless of password", func(t *testing.T) {
		for _, pw := range []string{"pw12345", "wrong"} {
			_, err := svc.Login(ctx, "new@x.com", pw)
			require.ErrorIs(t, err, ErrEmailNotVerified)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, "ghost@x.com", "pw12345")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "a@x.com", "pw123456")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("success", func(t *testing.T) {
		res, err := svc.Login(ctx, "a@x.com", "pw12345")
		require.NoError(t, err)
		require.Equal(t, domain.LoginAuthenticated, res.Outcome)
		require.Equal(t, "Bearer", res.Session.TokenType)
		require.True(t, res.Session.User.EmailVerified)
		require.Equal(t, "a@x.com", res.Session.User.Email)

		claims, err := svc.Sessions.Verifier().Verify(res.Session.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "a@x.com", claims.Subject)
		require.True(t, claims.ExpiresAt.Time.Equal(res.Session.ExpiresAt))
	})
}

func TestMFALogin(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newTestAccounts(t)
	user := registerVerified(t, svc, "a@x.com", "pw12345")

	user.MFAEnabled = true
	require.NoError(t, svc.Store.Users().UpdateUser(ctx, user))

	res, err := svc.Login(ctx, "a@x.com", "pw12345")
	require.NoError(t, err)
	require.Equal(t, domain.LoginMFARequired, res.Outcome)
	require.Equal(t, MsgMFACodeSent, res.Message)
	require.Empty(t, res.Session.AccessToken)

	stored, err := svc.Codes.secrets.Latest(ctx, svc.Store, user.ID, domain.SecretMFACode)
	require.NoError(t, err)
	require.Regexp(t, sixDigits, stored.Value)

	mail, ok := notifier.last(t).Notification.(domain.MFACodeEmail)
	require.True(t, ok)
	require.Equal(t, stored.Value, mail.Code)

	t.Run("wrong code does not burn the real one", func(t *testing.T) {
		wrong := "000000"
		if stored.Value == wrong {
			wrong = "999999"
		}
		_, err := svc.VerifyMFA(ctx, "a@x.com", wrong)
		require.ErrorIs(t, err, ErrInvalidCredentials)

		current, err := svc.Codes.secrets.Latest(ctx, svc.Store, user.ID, domain.SecretMFACode)
		require.NoError(t, err)
		require.False(t, current.IsConsumed())
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.VerifyMFA(ctx, "ghost@x.com", stored.Value)
		require.ErrorIs(t, err, ErrInvalidMFACode)
	})

	t.Run("correct code once", func(t *testing.T) {
		session, err := svc.VerifyMFA(ctx, "a@x.com", stored.Value)
		require.NoError(t, err)
		require.NotEmpty(t, session.AccessToken)
		require.Equal(t, "a@x.com", session.User.Email)

		_, err = svc.VerifyMFA(ctx, "a@x.com", stored.Value)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("mfa accounts never get a session from login", func(t *testing.T) {
		for range 3 {
			res, err := svc.Login(ctx, "a@x.com", "pw12345")
			require.NoError(t, err)
			require.Equal(t, domain.LoginMFARequired, res.Outcome)
			require.Empty(t, res.Session.AccessToken)
		}
	})
}

func TestForgotPassword(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newTestAccounts(t)
	registerVerified(t, svc, "real@x.com", "pw12345")
	before := len(notifier.kinds())

	ghost, err := svc.ForgotPassword(ctx, "ghost@x.com")
	require.NoError(t, err)
	require.Len(t, notifier.kinds(), before)

	known, err := svc.ForgotPassword(ctx, "real@x.com")
	require.NoError(t, err)
	require.Equal(t, ghost, known)
	require.Equal(t, MsgResetLinkSent, known)

	mail, ok := notifier.last(t).Notification.(domain.PasswordResetEmail)
	require.True(t, ok)
	require.Equal(t, DefaultResetLinkValidity, mail.ValidFor)

	link, err := url.Parse(mail.Link)
	require.NoError(t, err)
	require.Equal(t, "/reset-password", link.Path)
	require.NotEmpty(t, link.Query().Get("token"))
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newTestAccounts(t)
	user := registerVerified(t, svc, "a@x.com", "pw12345")

	_, err := svc.ForgotPassword(ctx, "a@x.com")
	require.NoError(t, err)
	reset, err := svc.Tokens.Latest(ctx, svc.Store, user.ID, domain.SecretPasswordReset)
	require.NoError(t, err)

	t.Run("verification token is the wrong type", func(t *testing.T) {
		verify, err := svc.Tokens.Issue(ctx, svc.Store, user, domain.SecretEmailVerification)
		require.NoError(t, err)

		_, err = svc.Tokens.Validate(ctx, svc.Store, verify)
		require.NoError(t, err)

		_, err = svc.ResetPassword(ctx, verify, "new-password")
		require.ErrorIs(t, err, ErrTokenWrongType)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	msg, err := svc.ResetPassword(ctx, reset.Value, "new-password")
	require.NoError(t, err)
	require.Equal(t, MsgPasswordChanged, msg)
	require.Equal(t, domain.NotifyPasswordChanged, notifier.last(t).Notification.Kind())

	_, err = svc.Login(ctx, "a@x.com", "pw12345")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	res, err := svc.Login(ctx, "a@x.com", "new-password")
	require.NoError(t, err)
	require.Equal(t, domain.LoginAuthenticated, res.Outcome)

	after, err := svc.Store.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, after.EmailVerified)

	_, err = svc.ResetPassword(ctx, reset.Value, "another-password")
	require.ErrorIs(t, err, ErrTokenAlreadyUsed)
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAccounts(t)
	user := registerVerified(t, svc, "a@x.com", "pw12345")

	got, err := svc.CurrentUser(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	role, err := svc.Role(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "USER", role)

	require.NoError(t, svc.Store.Users().DeleteUser(ctx, user.ID))
	_, err = svc.CurrentUser(ctx, "a@x.com")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegisterConfirmLogin(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newTestAccounts(t)

	_, err := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "pw12345", FirstName: "A", LastName: "B"})
	require.NoError(t, err)

	user, err := svc.Store.Users().GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	t1, err := svc.Tokens.Latest(ctx, svc.Store, user.ID, domain.SecretEmailVerification)
	require.NoError(t, err)

	_, err = svc.ConfirmEmail(ctx, t1.Value)
	require.NoError(t, err)

	res, err := svc.Login(ctx, "a@x.com", "pw12345")
	require.NoError(t, err)
	require.Equal(t, domain.LoginAuthenticated, res.Outcome)
	require.NotEmpty(t, res.Session.AccessToken)
	require.True(t, res.Session.User.EmailVerified)

	require.Equal(t, []domain.NotificationKind{domain.NotifyEmailVerification, domain.NotifyWelcome}, notifier.kinds())
}

// failingStore fails every transaction after fn has run, to check that
// nothing queued inside it is delivered.
type failingStore struct {
	store.Store
}

var errCommit = errors.New("commit failed")

func (s failingStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		return errCommit
	})
	return err
}

func TestNotificationsWaitForCommit(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newTestAccounts(t)
	svc.Store = failingStore{Store: svc.Store}

	_, err := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "pw12345", FirstName: "A", LastName: "B"})
	require.ErrorIs(t, err, errCommit)
	require.Empty(t, notifier.kinds())

	exists, err := svc.Store.Users().ExistsByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestResetURLDefaultsFromVerificationURL(t *testing.T) {
	cfg := AccountConfig{VerificationURL: "https://app.example.com/auth/verify-email"}
	require.Equal(t, "https://app.example.com/auth/reset-password", cfg.resetURL())

	cfg.ResetURL = "https://app.example.com/custom"
	require.Equal(t, "https://app.example.com/custom", cfg.resetURL())

	link, err := withToken("https://app.example.com/verify-email?lang=en", "abc")
	require.NoError(t, err)
	require.Equal(t, "https://app.example.com/verify-email?lang=en&token=abc", link)
}
