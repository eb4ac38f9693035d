package http

import (
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
)

func toUserResponse(u domain.User) accountsdk.UserResponse {
	return accountsdk.UserResponse{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Role:             string(u.Role),
		SubscriptionTier: string(u.SubscriptionTier),
		EmailVerified:    u.EmailVerified,
		MFAEnabled:       u.MFAEnabled,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// toAuthResponse reports expiry both ways: expiresIn in whole seconds from
// now and the absolute expiresAt.
func toAuthResponse(s domain.Session, now time.Time) accountsdk.AuthResponse {
	return accountsdk.AuthResponse{
		AccessToken: s.AccessToken,
		TokenType:   s.TokenType,
		ExpiresIn:   int64(s.ExpiresAt.Sub(now).Seconds()),
		ExpiresAt:   s.ExpiresAt,
		User:        toUserResponse(s.User),
	}
}
