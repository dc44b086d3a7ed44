package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"skillquest/api/internal/middleware"
	"skillquest/api/internal/models"
	"skillquest/api/internal/service"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

func (h HandlerSet) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	result, err := h.authService.Signup(c.Request.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Meta:     clientMeta(c),
	})
	if err != nil {
		if errors.Is(err, service.ErrDuplicateUser) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
			return
		}
		h.log.Error().Err(err).Msg("signup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Signup failed"})
		return
	}

	// The signup response deliberately omits the id; the profile is
	// completed by the login that follows.
	c.JSON(http.StatusCreated, authResponse{
		User: userResponse{
			Name:  result.User.Name,
			Email: result.User.Email,
		},
		Token: result.Token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Meta:     clientMeta(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		case errors.Is(err, service.ErrTooManyAttempts):
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many attempts"})
		default:
			h.log.Error().Err(err).Msg("login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Login failed"})
		}
		return
	}

	c.JSON(http.StatusOK, authResponse{
		User: userResponse{
			ID:    result.User.ID,
			Name:  result.User.Name,
			Email: result.User.Email,
		},
		Token: result.Token,
	})
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h HandlerSet) UpdatePassword(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	err := h.authService.UpdatePassword(c.Request.Context(), service.UpdatePasswordInput{
		UserID:          user.ID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		Meta:            clientMeta(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Current password is incorrect"})
		default:
			h.log.Error().Err(err).Msg("update password failed")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userResponse{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		},
	})
}

func currentUser(c *gin.Context) (models.User, bool) {
	userVal, exists := c.Get(middleware.CurrentUserKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Authorization token required"})
		return models.User{}, false
	}
	user, ok := userVal.(models.User)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Authorization token required"})
		return models.User{}, false
	}
	return user, true
}

func clientMeta(c *gin.Context) service.ClientMeta {
	return service.ClientMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}
