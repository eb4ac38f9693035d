package domain

import "time"

// Session is a freshly minted bearer credential for an authenticated user.
type Session struct {
	AccessToken string
	TokenType   string // always "Bearer"
	ExpiresAt   time.Time
	User        User
}

// LoginOutcome discriminates the two shapes a login can finish in.
type LoginOutcome int

const (
	// LoginAuthenticated carries a session token.
	LoginAuthenticated LoginOutcome = iota + 1
	// LoginMFARequired means a code was sent and VerifyMFA must follow.
	LoginMFARequired
)

// LoginResult is the result of a password login. Exactly one of Session
// (LoginAuthenticated) or Message (LoginMFARequired) is meaningful.
type LoginResult struct {
	Outcome LoginOutcome
	Session Session
	Message string
}
