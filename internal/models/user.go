package models

import "time"

// AccessAuth is the purpose tag carried by every session token.
const AccessAuth = "auth"

type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	DisplayName  string
	Tokens       Sessions
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserChange describes one write to a user record. Nil fields are left as
// they are.
type UserChange struct {
	PasswordHash  []byte
	DisplayName   *string
	ClearSessions bool
}

func (c UserChange) IsZero() bool {
	return c.PasswordHash == nil && c.DisplayName == nil && !c.ClearSessions
}

// Apply mutates u in memory the way a store applies the change on disk.
func (u *User) Apply(change UserChange) {
	if change.PasswordHash != nil {
		u.PasswordHash = append([]byte(nil), change.PasswordHash...)
	}
	if change.DisplayName != nil {
		u.DisplayName = *change.DisplayName
	}
	if change.ClearSessions {
		u.Tokens.Clear()
	}
}

// Clone returns a copy that shares no slices with u.
func (u User) Clone() User {
	out := u
	out.PasswordHash = append([]byte(nil), u.PasswordHash...)
	out.Tokens = u.Tokens.Clone()
	return out
}
