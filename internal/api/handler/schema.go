package handler

import (
	"time"

	"github.com/99minutos/admin-console/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type loginRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	DisplayName string `json:"display_name" validate:"omitempty,max=200"`
	PhotoURL    string `json:"photo_url"    validate:"omitempty,url"`
}

type createUserRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	DisplayName string `json:"display_name" validate:"omitempty,max=200"`
	PhotoURL    string `json:"photo_url"    validate:"omitempty,url"`
	Role        string `json:"role"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin user"`
}

// --- Response types ---

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
}

type sessionResponse struct {
	State   string        `json:"state"`
	Loading bool          `json:"loading"`
	IsAdmin bool          `json:"is_admin"`
	User    *userResponse `json:"user"`
}

type listUsersResponse struct {
	Users      []userResponse `json:"users"`
	Generation uint64         `json:"generation"`
}

type googleStartResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

func toUserResponse(u *domain.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
		CreatedBy:   u.CreatedBy,
	}
}

func toSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		State:   string(s.State()),
		Loading: s.Loading,
		IsAdmin: s.IsAdmin,
		User:    toUserResponse(s.User),
	}
}
