/*
Package accountsdk is a client for the accounts service HTTP API.

# Client vs Session

Client covers the unauthenticated endpoints: registration, email
verification, login, MFA, password reset, health and JWKS. Session wraps a
session token and covers the authenticated ones.

	client := accountsdk.NewClient("https://accounts.example.com")

	_, err := client.Register(ctx, accountsdk.RegisterRequest{
		Email:     "ada@example.com",
		Password:  "correct horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})

	// After the user clicks the emailed link:
	_, err = client.VerifyEmail(ctx, token)

	session, err := client.Authenticate(ctx, "ada@example.com", "correct horse")
	var mfa *accountsdk.MFARequiredError
	if errors.As(err, &mfa) {
		session, err = client.CompleteMFA(ctx, mfa, codeFromEmail)
	}

	me, err := session.Me(ctx)

# Errors

Non-2xx responses are returned as *APIError. Match them with errors.Is:

	if errors.Is(err, accountsdk.ErrEmailNotVerified) {
		// ask the user to click the verification link first
	}

ErrValidation responses carry per-field messages in APIError.FieldErrors.
Request types have a Validate method applying the same rules client-side.

# Verifying sessions elsewhere

Services that accept accounts sessions can verify them locally:

	verifier, err := client.SessionVerifier(ctx, "accounts")
	claims, err := verifier.Verify(token) // claims.Subject is the email
*/
package accountsdk
