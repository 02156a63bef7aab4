package domain

import (
	"strings"
	"time"
)

// Role is the authorization level of a registry user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// SystemActor is recorded as CreatedBy when no signed-in user issued the create.
const SystemActor = "system"

// UserField names a queryable field of the user registry.
type UserField string

const FieldEmail UserField = "email"

// NormalizeRole coerces any value other than "admin" to RoleUser.
func NormalizeRole(s string) Role {
	if Role(strings.ToLower(strings.TrimSpace(s))) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// ParseRole is the strict counterpart of NormalizeRole.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleUser:
		return r, nil
	default:
		return "", ErrValidation
	}
}

// NormalizeEmail is applied on every write and every lookup so that equality
// checks against the registry do not depend on casing.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User is a registry record. Empty DisplayName / PhotoURL mean "not set".
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
}

// IsAdmin reports whether the record carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Clone returns a copy that callers may mutate freely.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// NewUserInput is the partial record accepted by the create operation.
type NewUserInput struct {
	Email       string `validate:"required,email"`
	DisplayName string
	PhotoURL    string
	Role        string
}

// NewUser builds the record written on creation. Only these fields are ever
// set by a create.
func NewUser(in NewUserInput, createdBy string, now time.Time) *User {
	if createdBy == "" {
		createdBy = SystemActor
	}
	return &User{
		Email:       NormalizeEmail(in.Email),
		DisplayName: strings.TrimSpace(in.DisplayName),
		PhotoURL:    strings.TrimSpace(in.PhotoURL),
		Role:        NormalizeRole(in.Role),
		CreatedAt:   now.UTC(),
		CreatedBy:   createdBy,
	}
}

// UserUpdate is the allow-listed set of fields a store update may touch.
// Nil fields are left as stored.
type UserUpdate struct {
	DisplayName *string
	PhotoURL    *string
	Role        *Role
}

// Empty reports whether the update would write nothing.
func (u UserUpdate) Empty() bool {
	return u.DisplayName == nil && u.PhotoURL == nil && u.Role == nil
}

// ProfileUpdate is the only update the session reconciler may issue. Empty
// values are skipped: a provider that omits a field never clears it.
func ProfileUpdate(displayName, photoURL string) UserUpdate {
	var u UserUpdate
	if displayName != "" {
		u.DisplayName = &displayName
	}
	if photoURL != "" {
		u.PhotoURL = &photoURL
	}
	return u
}

// RoleUpdate is the admin-issued role change.
func RoleUpdate(role Role) UserUpdate {
	return UserUpdate{Role: &role}
}

// Apply returns a copy of user with the update's fields overlaid.
func (u UserUpdate) Apply(user *User) *User {
	out := user.Clone()
	if out == nil {
		return nil
	}
	if u.DisplayName != nil {
		out.DisplayName = *u.DisplayName
	}
	if u.PhotoURL != nil {
		out.PhotoURL = *u.PhotoURL
	}
	if u.Role != nil {
		out.Role = *u.Role
	}
	return out
}
