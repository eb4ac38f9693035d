package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/metrics"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"github.com/pquerna/otp"
)

// Acknowledgements returned to callers.
const (
	MsgRegistered      = "Registration successful. Please check your email to verify your account."
	MsgEmailVerified   = "Email verified successfully! You can now log in."
	MsgMFACodeSent     = "MFA code sent to your email"
	MsgResetLinkSent   = "If an account exists for that email, a password reset link has been sent."
	MsgPasswordChanged = "Password has been reset successfully. You can now log in with your new password."
)

// DefaultResetLinkValidity is the validity quoted in password reset emails.
const DefaultResetLinkValidity = time.Hour

// AccountConfig is everything the account flows need that is not a
// collaborator. It is read once at startup.
type AccountConfig struct {
	// VerificationURL is the page that receives ?token= from the
	// verification email.
	VerificationURL string

	// ResetURL is the page that receives ?token= from the reset email.
	// Defaults to VerificationURL with "verify-email" replaced by
	// "reset-password".
	ResetURL string

	TokenValidity     time.Duration
	ResetLinkValidity time.Duration
	CodeTTL           time.Duration
	CodeDigits        otp.Digits
}

func (c AccountConfig) resetURL() string {
	if c.ResetURL != "" {
		return c.ResetURL
	}
	return strings.Replace(c.VerificationURL, "verify-email", "reset-password", 1)
}

func (c AccountConfig) resetLinkValidity() time.Duration {
	if c.ResetLinkValidity <= 0 {
		return DefaultResetLinkValidity
	}
	return c.ResetLinkValidity
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type RegisterResult struct {
	Email   string
	Message string
}

// AccountService moves accounts through registration, email verification,
// login with an optional emailed second factor, and password reset. Every
// operation is one transaction; notifications are handed to Notifier only
// after it commits.
type AccountService struct {
	Store       store.Store
	Tokens      *TokenIssuer
	Codes       *CodeIssuer
	Sessions    *SessionMinter
	Credentials *CredentialVerifier
	Notifier    Notifier
	Config      AccountConfig
}

func NewAccountService(st store.Store, cfg AccountConfig, hasher PasswordHasher, sessions *SessionMinter, notifier Notifier) *AccountService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AccountService{
		Store:       st,
		Tokens:      NewTokenIssuer(cfg.TokenValidity),
		Codes:       NewCodeIssuer(cfg.CodeTTL, cfg.CodeDigits),
		Sessions:    sessions,
		Credentials: &CredentialVerifier{Hasher: hasher},
		Notifier:    notifier,
		Config:      cfg,
	}
}

// Register creates an unverified account and emails a verification link.
// No session is issued.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (result RegisterResult, err error) {
	log := slogx.FromContext(ctx)
	defer func() { recordOutcome("register", err) }()

	err = s.withTx(ctx, func(tx store.Tx, out *outbox) error {
		user, err := createUser(ctx, tx, s.Credentials, domain.User{
			Email:            in.Email,
			FirstName:        in.FirstName,
			LastName:         in.LastName,
			Role:             domain.RoleUser,
			SubscriptionTier: domain.TierFree,
			Enabled:          true,
		}, in.Password)
		if err != nil {
			return err
		}
		return s.sendVerification(ctx, tx, out, user)
	})
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			log.Warn("registration rejected, email already registered", "email", in.Email)
		}
		return RegisterResult{}, err
	}

	log.Info("user registered", "email", in.Email)
	return RegisterResult{Email: in.Email, Message: MsgRegistered}, nil
}

// ConfirmEmail redeems a verification token and marks the owner's email as
// verified. The token type is not checked.
func (s *AccountService) ConfirmEmail(ctx context.Context, token string) (msg string, err error) {
	defer func() { recordOutcome("confirm_email", err) }()

	var user domain.User
	err = s.withTx(ctx, func(tx store.Tx, out *outbox) error {
		secret, err := s.Tokens.Validate(ctx, tx, token)
		if err != nil {
			return err
		}

		user, err = tx.Users().GetUserByID(ctx, secret.UserID)
		if err != nil {
			return fault("lookup token owner", err)
		}
		if err := tx.Users().MarkEmailVerified(ctx, user.ID); err != nil {
			return fault("mark email verified", err)
		}
		if err := s.Tokens.Consume(ctx, tx, secret); err != nil {
			return err
		}

		out.Enqueue(domain.Message{
			To:           user.Email,
			Notification: domain.NewWelcomeEmail(greeting(user)),
		})
		return nil
	})
	if err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Info("email verified", "email", user.Email)
	return MsgEmailVerified, nil
}

// Login checks a password. Unknown emails are ErrInvalidCredentials, while
// unverified accounts get ErrEmailNotVerified before the password is looked
// at. Accounts with MFA get a code by email instead of a session.
func (s *AccountService) Login(ctx context.Context, email, password string) (result domain.LoginResult, err error) {
	log := slogx.FromContext(ctx)
	defer func() {
		if err == nil && result.Outcome == domain.LoginMFARequired {
			metrics.RecordAuthEvent("login", metrics.OutcomeMFARequired)
			return
		}
		recordOutcome("login", err)
	}()

	err = s.withTx(ctx, func(tx store.Tx, out *outbox) error {
		user, err := tx.Users().GetUserByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		if err != nil {
			return fault("lookup user", err)
		}

		if !user.EmailVerified {
			return ErrEmailNotVerified
		}
		if err := s.Credentials.Check(user, password); err != nil {
			return err
		}

		if user.MFAEnabled {
			if _, err := s.Codes.IssueCode(ctx, tx, out, user); err != nil {
				return err
			}
			result = domain.LoginResult{Outcome: domain.LoginMFARequired, Message: MsgMFACodeSent}
			return nil
		}

		session, err := s.newSession(user)
		if err != nil {
			return err
		}
		result = domain.LoginResult{Outcome: domain.LoginAuthenticated, Session: session}
		return nil
	})
	if err != nil {
		log.Warn("login failed", "email", email, "err", err)
		return domain.LoginResult{}, err
	}

	log.Info("login succeeded", "email", email, "mfa_required", result.Outcome == domain.LoginMFARequired)
	return result, nil
}

// VerifyMFA completes an MFA login. Unknown emails and wrong, expired or
// reused codes are all ErrInvalidMFACode.
func (s *AccountService) VerifyMFA(ctx context.Context, email, code string) (session domain.Session, err error) {
	defer func() { recordOutcome("verify_mfa", err) }()

	err = s.withTx(ctx, func(tx store.Tx, _ *outbox) error {
		user, err := tx.Users().GetUserByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidMFACode
		}
		if err != nil {
			return fault("lookup user", err)
		}

		ok, err := s.Codes.VerifyCode(ctx, tx, user, code)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidMFACode
		}

		session, err = s.newSession(user)
		return err
	})
	if err != nil {
		slogx.FromContext(ctx).Warn("mfa verification failed", "email", email, "err", err)
		return domain.Session{}, err
	}
	return session, nil
}

// ForgotPassword emails a reset link when the account exists. The
// acknowledgement is the same either way.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) (msg string, err error) {
	log := slogx.FromContext(ctx)
	defer func() { recordOutcome("forgot_password", err) }()

	err = s.withTx(ctx, func(tx store.Tx, out *outbox) error {
		user, err := tx.Users().GetUserByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("password reset requested for unknown email", "email", email)
			return nil
		}
		if err != nil {
			return fault("lookup user", err)
		}

		token, err := s.Tokens.Issue(ctx, tx, user, domain.SecretPasswordReset)
		if err != nil {
			return err
		}
		link, err := withToken(s.Config.resetURL(), token)
		if err != nil {
			return err
		}

		out.Enqueue(domain.Message{
			To:           user.Email,
			Notification: domain.NewPasswordResetEmail(greeting(user), link, s.Config.resetLinkValidity()),
		})
		log.Info("password reset link issued", "email", email)
		return nil
	})
	if err != nil {
		return "", err
	}
	return MsgResetLinkSent, nil
}

// ResetPassword redeems a PASSWORD_RESET token and replaces the owner's
// password. It does not log the user in.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) (msg string, err error) {
	defer func() { recordOutcome("reset_password", err) }()

	var user domain.User
	err = s.withTx(ctx, func(tx store.Tx, out *outbox) error {
		secret, err := s.Tokens.Validate(ctx, tx, token)
		if err != nil {
			return err
		}
		if secret.Kind != domain.SecretPasswordReset {
			return ErrTokenWrongType
		}

		user, err = tx.Users().GetUserByID(ctx, secret.UserID)
		if err != nil {
			return fault("lookup token owner", err)
		}

		hash, err := s.Credentials.HashPassword(newPassword)
		if err != nil {
			return err
		}
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return fault("update password", err)
		}
		if err := s.Tokens.Consume(ctx, tx, secret); err != nil {
			return err
		}

		out.Enqueue(domain.Message{
			To:           user.Email,
			Notification: domain.NewPasswordChangedEmail(greeting(user), time.Now().UTC()),
		})
		return nil
	})
	if err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Info("password reset", "email", user.Email)
	return MsgPasswordChanged, nil
}

// CurrentUser returns the account behind an already verified session.
func (s *AccountService) CurrentUser(ctx context.Context, email string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		slogx.FromContext(ctx).Error("session subject has no account", "email", email)
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fault("lookup user", err)
	}
	return user, nil
}

// Role returns the role of the account registered under email, for
// httpx.RequireRole.
func (s *AccountService) Role(ctx context.Context, email string) (string, error) {
	user, err := s.CurrentUser(ctx, email)
	if err != nil {
		return "", err
	}
	return string(user.Role), nil
}

func (s *AccountService) sendVerification(ctx context.Context, tx store.Tx, out *outbox, user domain.User) error {
	token, err := s.Tokens.Issue(ctx, tx, user, domain.SecretEmailVerification)
	if err != nil {
		return err
	}
	link, err := withToken(s.Config.VerificationURL, token)
	if err != nil {
		return err
	}

	out.Enqueue(domain.Message{
		To:           user.Email,
		Notification: domain.NewVerificationEmail(greeting(user), link, s.Tokens.Validity()),
	})
	return nil
}

func (s *AccountService) newSession(user domain.User) (domain.Session, error) {
	token, expiresAt, err := s.Sessions.Mint(user.Email)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

func (s *AccountService) withTx(ctx context.Context, fn func(tx store.Tx, out *outbox) error) error {
	out := &outbox{}
	if err := s.Store.WithTx(ctx, func(tx store.Tx) error { return fn(tx, out) }); err != nil {
		return err
	}
	out.flush(s.Notifier)
	return nil
}

// createUser hashes password and inserts u, mapping a taken email to
// ErrEmailAlreadyExists whether the pre-check or the unique index catches it.
func createUser(ctx context.Context, tx store.Tx, creds *CredentialVerifier, u domain.User, password string) (domain.User, error) {
	exists, err := tx.Users().ExistsByEmail(ctx, u.Email)
	if err != nil {
		return domain.User{}, fault("check email", err)
	}
	if exists {
		return domain.User{}, ErrEmailAlreadyExists
	}

	u.PasswordHash, err = creds.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	created, err := tx.Users().CreateUser(ctx, u)
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.User{}, ErrEmailAlreadyExists
	}
	if err != nil {
		return domain.User{}, fault("create user", err)
	}
	return created, nil
}

// withToken appends ?token= to base, keeping any query base already has.
func withToken(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fault("build link", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// greeting is the name emails address the user by.
func greeting(u domain.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.DisplayName()
}

func recordOutcome(operation string, err error) {
	switch {
	case err == nil:
		metrics.RecordAuthEvent(operation, metrics.OutcomeSuccess)
	case isRejection(err):
		metrics.RecordAuthEvent(operation, metrics.OutcomeRejected)
	default:
		metrics.RecordAuthEvent(operation, metrics.OutcomeError)
	}
}

// isRejection reports whether err is an expected outcome rather than a fault.
func isRejection(err error) bool {
	for _, target := range []error{
		ErrEmailAlreadyExists,
		ErrEmailNotVerified,
		ErrInvalidCredentials,
		ErrInvalidToken,
		ErrUserNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
