//go:build e2e

package accounts_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHealthAndKeys verifies the system endpoints against Postgres.
func TestHealthAndKeys(t *testing.T) {
	e := setupAccounts(t)
	ctx := t.Context()

	live, err := e.client.GetLiveness(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", live.Status)

	ready, err := e.client.GetReadiness(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	assert.Equal(t, "ok", ready.Checks.Database)

	jwks, err := e.client.GetJWKS(ctx)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	assert.Equal(t, "ES256", jwks.Keys[0].Alg)
}

// TestRegistrationAndLogin walks one account from registration to an
// authenticated request.
func TestRegistrationAndLogin(t *testing.T) {
	e := setupAccounts(t)
	ctx := t.Context()
	const email = "ada@example.com"

	_, err := e.client.Register(ctx, accountsdk.RegisterRequest{
		Email: email, Password: testPassword, FirstName: "Ada", LastName: "Lovelace",
	})
	require.NoError(t, err)

	_, err = e.client.Register(ctx, accountsdk.RegisterRequest{
		Email: email, Password: testPassword, FirstName: "Ada", LastName: "Lovelace",
	})
	require.ErrorIs(t, err, accountsdk.ErrEmailTaken)

	_, err = e.client.Authenticate(ctx, email, testPassword)
	require.ErrorIs(t, err, accountsdk.ErrEmailNotVerified)

	token := e.mail.next(t, email, verifyLink)
	_, err = e.client.VerifyEmail(ctx, token)
	require.NoError(t, err)

	_, err = e.client.VerifyEmail(ctx, token)
	require.ErrorIs(t, err, accountsdk.ErrInvalidToken, "a verification token is single use")

	session, err := e.client.Authenticate(ctx, email, testPassword)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), session.ExpiresAt(), time.Minute)

	me, err := session.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", me.FirstName)
	assert.Equal(t, "FREE", me.SubscriptionTier)
	assert.True(t, me.EmailVerified)
	assert.False(t, me.MFAEnabled)

	verifier, err := e.client.SessionVerifier(ctx, testIssuer)
	require.NoError(t, err)
	claims, err := verifier.Verify(session.AccessToken())
	require.NoError(t, err)
	assert.Equal(t, email, claims.Subject)

	_, err = e.client.Authenticate(ctx, email, "wrong-password")
	require.ErrorIs(t, err, accountsdk.ErrUnauthorized)
	_, err = e.client.Authenticate(ctx, "nobody@example.com", testPassword)
	require.ErrorIs(t, err, accountsdk.ErrUnauthorized)
}

// TestMFALogin enables MFA through the admin API and logs in with the
// emailed code.
func TestMFALogin(t *testing.T) {
	e := setupAccounts(t)
	ctx := t.Context()
	admin := e.admin(t, "admin@example.com")

	const email = "grace@example.com"
	e.registerVerified(t, email, "Grace", "Hopper")

	users, err := admin.ListUsers(ctx)
	require.NoError(t, err)
	var id int64
	for _, u := range users {
		if u.Email == email {
			id = u.ID
		}
	}
	require.NotZero(t, id)

	enabled := true
	updated, err := admin.UpdateUser(ctx, id, accountsdk.UpdateUserRequest{MFAEnabled: &enabled})
	require.NoError(t, err)
	assert.True(t, updated.MFAEnabled)

	_, err = e.client.Authenticate(ctx, email, testPassword)
	var mfa *accountsdk.MFARequiredError
	require.ErrorAs(t, err, &mfa)
	code := e.mail.next(t, email, mfaCode)
	assert.Len(t, code, 6)

	_, err = e.client.CompleteMFA(ctx, mfa, "0000000")
	require.ErrorIs(t, err, accountsdk.ErrUnauthorized)

	session, err := e.client.CompleteMFA(ctx, mfa, code)
	require.NoError(t, err)

	_, err = e.client.CompleteMFA(ctx, mfa, code)
	require.ErrorIs(t, err, accountsdk.ErrUnauthorized, "an MFA code is single use")

	me, err := session.Me(ctx)
	require.NoError(t, err)
	assert.True(t, me.MFAEnabled)
}

// TestPasswordReset resets a password through the emailed link.
func TestPasswordReset(t *testing.T) {
	e := setupAccounts(t)
	ctx := t.Context()
	const email = "ada@example.com"
	e.registerVerified(t, email, "Ada", "Lovelace")

	unknown, err := e.client.ForgotPassword(ctx, "nobody@example.com")
	require.NoError(t, err)
	known, err := e.client.ForgotPassword(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, unknown.Message, known.Message, "the response must not reveal whether an account exists")

	token := e.mail.next(t, email, resetLink)

	_, err = e.client.ResetPassword(ctx, accountsdk.ResetPasswordRequest{Token: token, NewPassword: ""})
	require.ErrorIs(t, err, accountsdk.ErrValidation)

	_, err = e.client.ResetPassword(ctx, accountsdk.ResetPasswordRequest{Token: token, NewPassword: "battery-staple"})
	require.NoError(t, err)

	_, err = e.client.ResetPassword(ctx, accountsdk.ResetPasswordRequest{Token: token, NewPassword: "another-one"})
	require.ErrorIs(t, err, accountsdk.ErrInvalidToken)

	_, err = e.client.Authenticate(ctx, email, testPassword)
	require.ErrorIs(t, err, accountsdk.ErrUnauthorized)
	_, err = e.client.Authenticate(ctx, email, "battery-staple")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return e.mail.count(email, "password_changed") == 1
	}, 10*time.Second, 50*time.Millisecond)
}

// TestUserAdministration covers the admin CRUD surface.
func TestUserAdministration(t *testing.T) {
	e := setupAccounts(t)
	ctx := t.Context()
	admin := e.admin(t, "admin@example.com")

	created, err := admin.CreateUser(ctx, accountsdk.CreateUserRequest{
		Email: "new@example.com", Password: testPassword, FirstName: "New", LastName: "User",
	})
	require.NoError(t, err)
	assert.Equal(t, "USER", created.Role)

	_, err = admin.CreateUser(ctx, accountsdk.CreateUserRequest{
		Email: "new@example.com", Password: testPassword, FirstName: "New", LastName: "User",
	})
	require.ErrorIs(t, err, accountsdk.ErrEmailTaken)

	_, err = admin.CreateUser(ctx, accountsdk.CreateUserRequest{Email: "bad", Password: "x"})
	require.ErrorIs(t, err, accountsdk.ErrValidation)

	name := "Renamed"
	updated, err := admin.UpdateUser(ctx, created.ID, accountsdk.UpdateUserRequest{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FirstName)

	got, err := admin.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.FirstName)

	require.NoError(t, admin.DeleteUser(ctx, created.ID))
	_, err = admin.GetUser(ctx, created.ID)
	require.ErrorIs(t, err, accountsdk.ErrNotFound)
	require.ErrorIs(t, admin.DeleteUser(ctx, created.ID), accountsdk.ErrNotFound)

	e.registerVerified(t, "plain@example.com", "Plain", "User")
	plain, err := e.client.Authenticate(ctx, "plain@example.com", testPassword)
	require.NoError(t, err)
	_, err = plain.ListUsers(ctx)
	require.ErrorIs(t, err, accountsdk.ErrForbidden)
}
