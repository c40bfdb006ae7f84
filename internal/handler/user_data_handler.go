package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kuztatygit/lemfi-qa-homework/shared/cqrs"
	"github.com/kuztatygit/lemfi-qa-homework/shared/middleware"
	"github.com/kuztatygit/lemfi-qa-homework/shared/models"
	"go.uber.org/zap"
)

// UserDataHandler handles the caller's profile and balance.
type UserDataHandler struct {
	commands AccountCommander
	queries  AccountQuerier
	logger   *zap.Logger
}

func NewUserDataHandler(commands AccountCommander, queries AccountQuerier, logger *zap.Logger) *UserDataHandler {
	return &UserDataHandler{commands: commands, queries: queries, logger: logger}
}

func (h *UserDataHandler) UpdatePersonalData(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.PersonalDataRequest
	if err := middleware.DecodeBody(c, &req); err != nil {
		respondWithBodyError(c, err)
		return
	}

	view, err := h.commands.UpdatePersonalData(c.Request.Context(), cqrs.UpdatePersonalDataCommand{
		UserID:  userID,
		Request: req,
	})
	if err != nil {
		respondWithAppError(c, h.logger, err, true)
		return
	}

	c.JSON(http.StatusCreated, models.UserResponse{
		User:    view,
		Message: models.Message{Status: statusSuccess, Text: "Personal info updated"},
	})
}

// GetBalance answers with the balance as plain text, e.g. "8.50".
func (h *UserDataHandler) GetBalance(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	balance, err := h.queries.GetBalance(c.Request.Context(), cqrs.GetBalanceQuery{UserID: userID})
	if err != nil {
		respondWithAppError(c, h.logger, err, false)
		return
	}
	c.String(http.StatusOK, "%s", balance)
}
