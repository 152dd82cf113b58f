package model

import "time"

// TokenRole is the preset role a registration token grants.
type TokenRole string

const (
	TokenRoleReviewer    TokenRole = "reviewer"
	TokenRoleContributor TokenRole = "contributor"
	TokenRoleUploader    TokenRole = "uploader"
)

// Valid reports whether r is a known token role.
func (r TokenRole) Valid() bool {
	switch r {
	case TokenRoleReviewer, TokenRoleContributor, TokenRoleUploader:
		return true
	}
	return false
}

// RegistrationToken is a single-use, time-boxed secret granting
// self-registration with a preset role. Consumed exactly once.
type RegistrationToken struct {
	ID        int        `json:"id"`
	Token     string     `json:"token"`
	Role      TokenRole  `json:"role"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedBy    *int       `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedBy *int       `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Usable reports whether the token can still be consumed at now.
func (t *RegistrationToken) Usable(now time.Time) bool {
	return t.UsedBy == nil && now.Before(t.ExpiresAt)
}

// CreateTokenRequest is the admin payload for minting a registration token.
type CreateTokenRequest struct {
	Role string `json:"role" binding:"required,oneof=reviewer contributor uploader"`
}
