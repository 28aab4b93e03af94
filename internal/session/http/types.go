package http

import "time"

// SessionIDHeader carries the session ID; it is issued on the first
// call and must be echoed back by the client.
const SessionIDHeader = "X-Session-Id"

type registerRequest struct {
	Email       string    `json:"email" binding:"required,email"`
	Password    string    `json:"password" binding:"required,min=6"`
	Username    string    `json:"username"`
	DateOfBirth time.Time `json:"date_of_birth"`
	UserNotes   string    `json:"user_notes"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type googleLoginRequest struct {
	IDToken     string `json:"id_token" binding:"required"`
	AccessToken string `json:"access_token"`
}

type updateProfileRequest struct {
	Username    string    `json:"username"`
	DateOfBirth time.Time `json:"date_of_birth"`
	UserNotes   string    `json:"user_notes"`
}

// Handler exposes the session workflows over HTTP.
type Handler struct {
	registry *Registry
}

func New(registry *Registry) *Handler {
	return &Handler{registry: registry}
}
