package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "FREE"
	TierPro     SubscriptionTier = "PRO"
	TierPremium SubscriptionTier = "PREMIUM"
)

type User struct {
	ID               int64  // Assigned by the store on insert
	Email            string // Unique, matched case-sensitively
	PasswordHash     string // argon2 encoded
	FirstName        string
	LastName         string
	Role             Role
	SubscriptionTier SubscriptionTier
	EmailVerified    bool // Flipped once by the verification token path
	AccountLocked    bool
	Enabled          bool
	MFAEnabled       bool // Login requires an emailed one-time code
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DisplayName is the name used to greet the user in notifications.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}
