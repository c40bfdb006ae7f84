package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kuztatygit/lemfi-qa-homework/shared/cqrs"
	"github.com/kuztatygit/lemfi-qa-homework/shared/middleware"
	"github.com/kuztatygit/lemfi-qa-homework/shared/models"
	"go.uber.org/zap"
)

// PaymentHandler handles funding and payment listing for the caller.
type PaymentHandler struct {
	commands AccountCommander
	queries  AccountQuerier
	logger   *zap.Logger
}

func NewPaymentHandler(commands AccountCommander, queries AccountQuerier, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{commands: commands, queries: queries, logger: logger}
}

// AddFunds imports one funding payment. The default answer is plain text;
// a caller asking for JSON gets the stored snapshot with its id.
func (h *PaymentHandler) AddFunds(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.FundingRequest
	if err := middleware.DecodeBody(c, &req); err != nil {
		respondWithBodyError(c, err)
		return
	}

	entry, err := h.commands.AddFunds(c.Request.Context(), cqrs.AddFundsCommand{UserID: userID, Request: req})
	if err != nil {
		respondWithAppError(c, h.logger, err, false)
		return
	}

	if c.NegotiateFormat(gin.MIMEPlain, gin.MIMEJSON) == gin.MIMEJSON {
		body, err := snapshotBody(entry)
		if err != nil {
			respondWithAppError(c, h.logger, err, false)
			return
		}
		c.JSON(http.StatusOK, body)
		return
	}
	c.String(http.StatusOK, "Payment imported, id: %d", entry.ID)
}

func (h *PaymentHandler) ListPayments(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	payments, err := h.queries.ListPayments(c.Request.Context(), cqrs.ListPaymentsQuery{UserID: userID})
	if err != nil {
		respondWithAppError(c, h.logger, err, false)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// snapshotBody decodes the stored raw snapshot and adds the entry id and type.
// Numbers are kept as written.
func snapshotBody(entry *models.LedgerEntry) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(entry.RawResponse)))
	dec.UseNumber()
	body := make(map[string]any)
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot of payment %d: %w", entry.ID, err)
	}
	body["id"] = entry.ID
	body["type"] = entry.Type
	return body, nil
}
