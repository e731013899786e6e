package model

import (
	"time"
)

type User struct {
	ID               string     `db:"id"`
	Email            string     `db:"email"`
	PasswordHash     string     `db:"password_hash"`
	EmailConfirmedAt *time.Time `db:"email_confirmed_at"`
	CreatedAt        time.Time  `db:"created_at"`
}

func (u *User) IsConfirmed() bool {
	return u.EmailConfirmedAt != nil
}

// Identity is the read-only projection of a user that views hold.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email}
}
