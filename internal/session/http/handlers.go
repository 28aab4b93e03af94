package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/graphv-app/graphv-backend/internal/session/domain"
	"github.com/graphv-app/graphv-backend/internal/session/service"
)

// withSession resolves the session entry for the request, runs fn with
// the entry lock held, persists the resulting snapshot, and echoes the
// session ID. The lock serializes workflows per session: the core does
// not synchronize concurrent invocations itself.
func (h *Handler) withSession(c *gin.Context, fn func(e *entry) (int, any)) {
	sid := strings.TrimSpace(c.GetHeader(SessionIDHeader))
	sid, e := h.registry.acquire(c.Request.Context(), sid)
	c.Header(SessionIDHeader, sid)

	e.mu.Lock()
	status, body := fn(e)
	h.registry.persist(c.Request.Context(), sid, e)
	e.mu.Unlock()

	c.JSON(status, body)
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body", "details": err.Error()})
		return
	}

	h.withSession(c, func(e *entry) (int, any) {
		err := e.ctl.Register(c.Request.Context(), service.RegisterInput{
			Email:       req.Email,
			Password:    req.Password,
			Username:    req.Username,
			DateOfBirth: req.DateOfBirth,
			UserNotes:   req.UserNotes,
		})
		if err != nil {
			return http.StatusUnprocessableEntity, e.ctl.Snapshot()
		}
		return http.StatusCreated, e.ctl.Snapshot()
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body", "details": err.Error()})
		return
	}

	h.withSession(c, func(e *entry) (int, any) {
		if err := e.ctl.Login(c.Request.Context(), req.Email, req.Password); err != nil {
			return http.StatusUnauthorized, e.ctl.Snapshot()
		}
		return http.StatusOK, e.ctl.Snapshot()
	})
}

func (h *Handler) loginGoogle(c *gin.Context) {
	var req googleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body", "details": err.Error()})
		return
	}

	h.withSession(c, func(e *entry) (int, any) {
		e.creds.Set(domain.FederatedCredential{
			ProviderID:  "google.com",
			IDToken:     req.IDToken,
			AccessToken: req.AccessToken,
		})
		ok, err := e.ctl.LoginFederated(c.Request.Context())
		if err != nil {
			return http.StatusUnauthorized, gin.H{
				"signed_in": ok,
				"session":   e.ctl.Snapshot(),
			}
		}
		return http.StatusOK, gin.H{
			"signed_in": ok,
			"session":   e.ctl.Snapshot(),
		}
	})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body", "details": err.Error()})
		return
	}

	h.withSession(c, func(e *entry) (int, any) {
		err := e.ctl.UpdateProfile(c.Request.Context(), domain.ProfilePatch{
			Username:    req.Username,
			DateOfBirth: req.DateOfBirth,
			UserNotes:   req.UserNotes,
		})
		switch {
		case errors.Is(err, domain.ErrProfileNotFound):
			return http.StatusNotFound, e.ctl.Snapshot()
		case err != nil:
			return http.StatusBadGateway, e.ctl.Snapshot()
		}
		return http.StatusOK, e.ctl.Snapshot()
	})
}

func (h *Handler) signOut(c *gin.Context) {
	h.withSession(c, func(e *entry) (int, any) {
		if err := e.ctl.SignOut(c.Request.Context()); err != nil {
			return http.StatusBadGateway, e.ctl.Snapshot()
		}
		return http.StatusOK, e.ctl.Snapshot()
	})
}

func (h *Handler) snapshot(c *gin.Context) {
	h.withSession(c, func(e *entry) (int, any) {
		return http.StatusOK, e.ctl.Snapshot()
	})
}
