// Package models defines the data the client exchanges with the course
// marketplace API and keeps in its in-memory stores.
package models

// User is the authenticated identity returned by GET /users/me.
type User struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	IsAdmin   bool    `json:"is_admin"`
}

// SameIdentity reports whether a and b denote the same account. Two nil users
// are the same (both anonymous).
func SameIdentity(a, b *User) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

// Credentials are exchanged for a session cookie at POST /auth/login.
type Credentials struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// Registration is the body of POST /auth/register.
type Registration struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// ProfileUpdate is a partial patch for PATCH /users/{id}. Nil fields are
// left untouched by the server.
type ProfileUpdate struct {
	Username  *string `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Password  *string `json:"password,omitempty" validate:"omitempty,min=6"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// IsEmpty is true when the patch would change nothing.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Username == nil && p.Email == nil && p.Password == nil && p.AvatarURL == nil
}
