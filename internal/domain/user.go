package domain

import "time"

// User is a storefront account. Admin status lives on the account itself.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	IsStaff      bool      `json:"isStaff"`
	IsSuperuser  bool      `json:"isSuperuser"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsAdministrator reports whether the user may perform admin-gated actions.
func (u *User) IsAdministrator() bool {
	if u == nil {
		return false
	}
	return u.IsAdmin || u.IsSuperuser
}
