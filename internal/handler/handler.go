package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kuztatygit/lemfi-qa-homework/shared/apperrors"
	"github.com/kuztatygit/lemfi-qa-homework/shared/cqrs"
	"github.com/kuztatygit/lemfi-qa-homework/shared/middleware"
	"github.com/kuztatygit/lemfi-qa-homework/shared/models"
	"go.uber.org/zap"
)

// AccountCommander defines the write-side operations used by the handlers.
type AccountCommander interface {
	Register(context.Context, cqrs.RegisterCommand) (*models.RegisteredUser, error)
	AddFunds(context.Context, cqrs.AddFundsCommand) (*models.LedgerEntry, error)
	UpdatePersonalData(context.Context, cqrs.UpdatePersonalDataCommand) (*models.UserView, error)
}

// AccountQuerier defines the read-side operations used by the handlers.
type AccountQuerier interface {
	GetBalance(context.Context, cqrs.GetBalanceQuery) (string, error)
	ListPayments(context.Context, cqrs.ListPaymentsQuery) ([]models.PaymentView, error)
}

// AuthQuerier defines the sign-in operation used by AuthHandler.
type AuthQuerier interface {
	SignIn(context.Context, cqrs.SignInCommand) (string, error)
}

const (
	statusSuccess = "SUCCESS"
	statusFail    = "FAIL"
)

// failBody is the envelope the profile routes use for unexpected failures.
func failBody() models.Message {
	return models.Message{Status: statusFail, Text: apperrors.Unexpected.Message}
}

// respondWithBodyError answers a body that could not be decoded.
func respondWithBodyError(c *gin.Context, err error) {
	var typeErr *middleware.FieldTypeError
	switch {
	case errors.As(err, &typeErr):
		middleware.RespondWithError(c, http.StatusBadRequest, typeErr.Error())
	case errors.Is(err, middleware.ErrBodyRequired):
		middleware.RespondWithError(c, http.StatusBadRequest, middleware.ErrBodyRequired.Error())
	default:
		middleware.RespondWithError(c, http.StatusBadRequest, middleware.ErrMalformed.Error())
	}
}

// respondWithAppError classifies err and writes the matching response.
// Unexpected failures are logged with their cause and answered either with
// {message} or, when failEnvelope is set, with {status:"FAIL",text}.
func respondWithAppError(c *gin.Context, logger *zap.Logger, err error, failEnvelope bool) {
	appErr := apperrors.Classify(err)
	if appErr.Code == apperrors.Unexpected {
		logger.Error("request failed",
			zap.String("trace_id", middleware.GetTraceID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		if failEnvelope {
			c.JSON(appErr.Code.Status, failBody())
			return
		}
	}
	middleware.RespondWithError(c, appErr.Code.Status, appErr.Message)
}

// currentUserID reads the authenticated identity or answers 401.
func currentUserID(c *gin.Context) (int64, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, apperrors.Unauthenticated.Message)
		return 0, false
	}
	return userID, true
}
