package accountsdk

import (
	"time"

	"github.com/aussiebroadwan/accounts/pkg/jwtx"
)

// ============================================================================
// Auth Types
// ============================================================================

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email     string `json:"email" example:"john.doe@example.com"`
	Password  string `json:"password" example:"SecurePass123!"`
	FirstName string `json:"firstName" example:"John"`
	LastName  string `json:"lastName" example:"Doe"`
}

// RegisterResponse acknowledges a registration. No session is issued until
// the email is verified and the user logs in.
type RegisterResponse struct {
	Email   string `json:"email" example:"john.doe@example.com"`
	Message string `json:"message" example:"Registration successful. Please check your email to verify your account."`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" example:"john.doe@example.com"`
	Password string `json:"password" example:"SecurePass123!"`
}

// VerifyMFARequest is the body of POST /api/auth/verify-mfa.
type VerifyMFARequest struct {
	Email string `json:"email" example:"john.doe@example.com"`
	Code  string `json:"code" example:"123456"`
}

// ForgotPasswordRequest holds the email query parameter of
// POST /api/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string
}

// ResetPasswordRequest holds the query parameters of
// POST /api/auth/reset-password.
type ResetPasswordRequest struct {
	Token       string
	NewPassword string
}

// AuthResponse carries a session token.
type AuthResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType" example:"Bearer"`
	ExpiresIn   int64        `json:"expiresIn" example:"86400"` // seconds
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        UserResponse `json:"user"`
}

// MFAPendingResponse is the login response for accounts with MFA enabled.
type MFAPendingResponse struct {
	MFARequired bool   `json:"mfaRequired" example:"true"`
	Message     string `json:"message" example:"MFA code sent to your email"`
}

// LoginResponse decodes either login shape. MFARequired tells them apart;
// when it is set only Message is meaningful.
type LoginResponse struct {
	AccessToken string        `json:"accessToken,omitempty"`
	TokenType   string        `json:"tokenType,omitempty"`
	ExpiresIn   int64         `json:"expiresIn,omitempty"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	User        *UserResponse `json:"user,omitempty"`
	MFARequired bool          `json:"mfaRequired,omitempty"`
	Message     string        `json:"message,omitempty"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message" example:"Email verified successfully! You can now log in."`
}

// ============================================================================
// User Types
// ============================================================================

// UserResponse is the public view of an account. The password hash never
// leaves the service.
type UserResponse struct {
	ID               int64     `json:"id" example:"1"`
	Email            string    `json:"email" example:"john.doe@example.com"`
	FirstName        string    `json:"firstName" example:"John"`
	LastName         string    `json:"lastName" example:"Doe"`
	Role             string    `json:"role" example:"USER"`
	SubscriptionTier string    `json:"subscriptionTier" example:"FREE"`
	EmailVerified    bool      `json:"emailVerified"`
	MFAEnabled       bool      `json:"mfaEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Email     string `json:"email" example:"john.doe@example.com"`
	Password  string `json:"password" example:"SecurePass123!"`
	FirstName string `json:"firstName" example:"John"`
	LastName  string `json:"lastName" example:"Doe"`
}

// UpdateUserRequest is the body of PUT /api/users/{id}. Omitted fields are
// left unchanged.
type UpdateUserRequest struct {
	Email      *string `json:"email,omitempty" example:"newemail@example.com"`
	Password   *string `json:"password,omitempty"`
	FirstName  *string `json:"firstName,omitempty" example:"Jane"`
	LastName   *string `json:"lastName,omitempty" example:"Smith"`
	MFAEnabled *bool   `json:"mfaEnabled,omitempty"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz (readyz adds Checks).
type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Uptime  string        `json:"uptime,omitempty" example:"1h23m45s"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks is the status of each dependency checked by /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse is the key set published at /.well-known/jwks.json.
type JWKSResponse jwtx.JWKS
