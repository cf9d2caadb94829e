package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arunvm123/gigbooking/model"
	"github.com/arunvm123/gigbooking/repository"
)

type AuthHandler struct {
	repo       repository.UserRepository
	jwtService *JWTService
	tokenTTL   int
	logger     *zap.Logger
}

func NewAuthHandler(repo repository.UserRepository, jwtService *JWTService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		repo:       repo,
		jwtService: jwtService,
		tokenTTL:   int(jwtService.ttl.Seconds()),
		logger:     logger,
	}
}

// Register creates a user or artist account. Admin accounts are never
// created through this endpoint.
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.repo.Create(c.Request.Context(), req.ToCreateUserRequest())
	if err != nil {
		if model.StatusCode(err) == http.StatusInternalServerError {
			h.logger.Error("failed to create user", zap.Error(err))
		}
		respondError(c, err)
		return
	}

	respond(c, model.NewResponse(http.StatusCreated, "User registered successfully", user.ToUserResponse()))
}

// Login exchanges credentials for an access token
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	invalid := fmt.Errorf("%w: invalid email or password", model.ErrUnauthenticated)

	user, err := h.repo.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respondError(c, invalid)
			return
		}
		h.logger.Error("failed to look up user", zap.Error(err))
		respondError(c, err)
		return
	}

	if !h.repo.ValidatePassword(user, req.Password) {
		respondError(c, invalid)
		return
	}

	token, err := h.jwtService.GenerateToken(user)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		respondError(c, err)
		return
	}

	respond(c, model.NewResponse(http.StatusOK, "Login successful", model.LoginResponse{
		AccessToken: token,
		ExpiresIn:   h.tokenTTL,
		User:        *user.ToUserResponse(),
	}))
}

// Profile returns the calling user's account.
func (h *AuthHandler) Profile(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	user, err := h.repo.FindByID(c.Request.Context(), principal.UserID)
	if err != nil {
		if model.StatusCode(err) == http.StatusInternalServerError {
			h.logger.Error("failed to load profile", zap.String("user_id", principal.UserID), zap.Error(err))
		}
		respondError(c, err)
		return
	}

	respond(c, model.NewResponse(http.StatusOK, "User profile retrieved successfully", user.ToUserResponse()))
}
