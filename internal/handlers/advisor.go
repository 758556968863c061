package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Osman8a/TDAH-REST-API/internal/middleware"
	"github.com/Osman8a/TDAH-REST-API/internal/models"
	"github.com/Osman8a/TDAH-REST-API/internal/service"
)

type createAdvisorRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// updateRequest leaves a field nil when the body omits it.
type updateRequest struct {
	Password    *string `json:"password"`
	DisplayName *string `json:"displayName"`
}

// userResponse never carries the password digest or the session list.
type userResponse struct {
	ID          string `json:"_id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

func (h HandlerSet) CreateAdvisor(c *gin.Context) {
	var req createAdvisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	result, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	sendAuthResponse(c, result)
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	sendAuthResponse(c, result)
}

func sendAuthResponse(c *gin.Context, result service.AuthResult) {
	c.Header(middleware.AuthHeader, result.Token)
	c.JSON(http.StatusOK, toUserResponse(result.User))
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.writeError(c, service.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h HandlerSet) All(c *gin.Context) {
	users, err := h.accounts.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, toUserResponse(user))
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) Logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.writeError(c, service.ErrUnauthenticated)
		return
	}

	if err := h.accounts.Logout(c.Request.Context(), user, middleware.SessionToken(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h HandlerSet) LogoutAll(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.writeError(c, service.ErrUnauthenticated)
		return
	}

	if err := h.accounts.LogoutAll(c.Request.Context(), user); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h HandlerSet) UpdateMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.writeError(c, service.ErrUnauthenticated)
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	updated, err := h.accounts.Update(c.Request.Context(), user, service.UpdateInput{
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(updated))
}

func (h HandlerSet) DeleteMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.writeError(c, service.ErrUnauthenticated)
		return
	}

	if err := h.accounts.Delete(c.Request.Context(), user); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeError maps service errors to a status and a stable error code.
// Anything unexpected is logged and reported as a bare 500.
func (h HandlerSet) writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation_failed",
			"field":  verr.Field,
			"reason": verr.Reason,
		})
	case errors.Is(err, service.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "email_taken"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	default:
		h.log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
