package domain

import "time"

// Invitation is a single-use grant allowing one e-mail address to register
// as an administrator before ExpiresAt.
type Invitation struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	RedeemedAt *time.Time `json:"redeemedAt,omitempty"`
	RedeemedBy *string    `json:"redeemedBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Usable reports whether the invitation can still be redeemed at now.
func (i Invitation) Usable(now time.Time) bool {
	return i.RedeemedAt == nil && now.Before(i.ExpiresAt)
}
