package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kuztatygit/lemfi-qa-homework/internal/query"
	"github.com/kuztatygit/lemfi-qa-homework/shared/cqrs"
	"github.com/kuztatygit/lemfi-qa-homework/shared/middleware"
	"github.com/kuztatygit/lemfi-qa-homework/shared/models"
	"go.uber.org/zap"
)

// AuthHandler handles the public sign-up and sign-in routes.
type AuthHandler struct {
	commands AccountCommander
	queries  AuthQuerier
	logger   *zap.Logger
	tokenTTL time.Duration
}

type AuthResponse struct {
	Token string `json:"token"`
}

func NewAuthHandler(commands AccountCommander, queries AuthQuerier, logger *zap.Logger, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{commands: commands, queries: queries, logger: logger, tokenTTL: tokenTTL}
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.RegistrationRequest
	if err := middleware.DecodeBody(c, &req); err != nil {
		respondWithBodyError(c, err)
		return
	}

	registered, err := h.commands.Register(c.Request.Context(), cqrs.RegisterCommand{Request: req})
	if err != nil {
		respondWithAppError(c, h.logger, err, true)
		return
	}

	middleware.SetAuthToken(c, registered.Token, h.tokenTTL)
	c.JSON(http.StatusOK, models.UserResponse{
		User:    registered.User,
		Message: models.Message{Status: statusSuccess, Text: "User registered"},
	})
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := middleware.DecodeBody(c, &req); err != nil {
		respondWithBodyError(c, err)
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid "+validationErrors[0].Field)
		return
	}

	token, err := h.queries.SignIn(c.Request.Context(), cqrs.SignInCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, query.ErrInvalidCredentials) {
			middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		respondWithAppError(c, h.logger, err, false)
		return
	}

	middleware.SetAuthToken(c, token, h.tokenTTL)
	c.JSON(http.StatusOK, AuthResponse{Token: token})
}
