package domain

import "time"

type NotificationKind string

const (
	NotifyEmailVerification NotificationKind = "EMAIL_VERIFICATION"
	NotifyPasswordReset     NotificationKind = "PASSWORD_RESET"
	NotifyWelcome           NotificationKind = "WELCOME"
	NotifyPasswordChanged   NotificationKind = "PASSWORD_CHANGED"
	NotifyMFACode           NotificationKind = "MFA_CODE"
)

// Notification is a message for a user. The set of implementations is closed:
// only the types in this file satisfy it, and each carries exactly the
// parameters its template needs.
type Notification interface {
	Kind() NotificationKind
	notification()
}

// Message pairs a notification with the address it is delivered to.
type Message struct {
	To           string
	Notification Notification
}

type VerificationEmail struct {
	Name     string
	Link     string
	ValidFor time.Duration
}

func NewVerificationEmail(name, link string, validFor time.Duration) VerificationEmail {
	return VerificationEmail{Name: name, Link: link, ValidFor: validFor}
}

func (VerificationEmail) Kind() NotificationKind { return NotifyEmailVerification }
func (VerificationEmail) notification()          {}

type PasswordResetEmail struct {
	Name     string
	Link     string
	ValidFor time.Duration
}

func NewPasswordResetEmail(name, link string, validFor time.Duration) PasswordResetEmail {
	return PasswordResetEmail{Name: name, Link: link, ValidFor: validFor}
}

func (PasswordResetEmail) Kind() NotificationKind { return NotifyPasswordReset }
func (PasswordResetEmail) notification()          {}

type WelcomeEmail struct {
	Name string
}

func NewWelcomeEmail(name string) WelcomeEmail {
	return WelcomeEmail{Name: name}
}

func (WelcomeEmail) Kind() NotificationKind { return NotifyWelcome }
func (WelcomeEmail) notification()          {}

type PasswordChangedEmail struct {
	Name      string
	ChangedAt time.Time
}

func NewPasswordChangedEmail(name string, changedAt time.Time) PasswordChangedEmail {
	return PasswordChangedEmail{Name: name, ChangedAt: changedAt}
}

func (PasswordChangedEmail) Kind() NotificationKind { return NotifyPasswordChanged }
func (PasswordChangedEmail) notification()          {}

type MFACodeEmail struct {
	Name     string
	Code     string
	ValidFor time.Duration
}

func NewMFACodeEmail(name, code string, validFor time.Duration) MFACodeEmail {
	return MFACodeEmail{Name: name, Code: code, ValidFor: validFor}
}

func (MFACodeEmail) Kind() NotificationKind { return NotifyMFACode }
func (MFACodeEmail) notification()          {}
