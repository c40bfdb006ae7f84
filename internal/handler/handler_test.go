package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kuztatygit/lemfi-qa-homework/internal/validation"
	"github.com/kuztatygit/lemfi-qa-homework/shared/apperrors"
	"github.com/kuztatygit/lemfi-qa-homework/shared/cqrs"
	"github.com/kuztatygit/lemfi-qa-homework/shared/middleware"
	"github.com/kuztatygit/lemfi-qa-homework/shared/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- mock implementations ----

type mockAccountCommander struct {
	registerFn     func(cqrs.RegisterCommand) (*models.RegisteredUser, error)
	addFundsFn     func(cqrs.AddFundsCommand) (*models.LedgerEntry, error)
	personalDataFn func(cqrs.UpdatePersonalDataCommand) (*models.UserView, error)
}

func (m *mockAccountCommander) Register(_ context.Context, cmd cqrs.RegisterCommand) (*models.RegisteredUser, error) {
	if m.registerFn != nil {
		return m.registerFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountCommander) AddFunds(_ context.Context, cmd cqrs.AddFundsCommand) (*models.LedgerEntry, error) {
	if m.addFundsFn != nil {
		return m.addFundsFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountCommander) UpdatePersonalData(_ context.Context, cmd cqrs.UpdatePersonalDataCommand) (*models.UserView, error) {
	if m.personalDataFn != nil {
		return m.personalDataFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

type mockAccountQuerier struct {
	balanceFn  func(cqrs.GetBalanceQuery) (string, error)
	paymentsFn func(cqrs.ListPaymentsQuery) ([]models.PaymentView, error)
}

func (m *mockAccountQuerier) GetBalance(_ context.Context, q cqrs.GetBalanceQuery) (string, error) {
	if m.balanceFn != nil {
		return m.balanceFn(q)
	}
	return "", fmt.Errorf("not configured")
}
func (m *mockAccountQuerier) ListPayments(_ context.Context, q cqrs.ListPaymentsQuery) ([]models.PaymentView, error) {
	if m.paymentsFn != nil {
		return m.paymentsFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

type mockAuthQuerier struct {
	signInFn func(cqrs.SignInCommand) (string, error)
}

func (m *mockAuthQuerier) SignIn(_ context.Context, cmd cqrs.SignInCommand) (string, error) {
	if m.signInFn != nil {
		return m.signInFn(cmd)
	}
	return "", fmt.Errorf("not configured")
}

// gatedCommander runs the real validation gate on every command, so a test
// sees the rejection its decoded body produces.
func gatedCommander(t *testing.T) *mockAccountCommander {
	t.Helper()
	clock := func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	gate, err := validation.NewGate([]string{"EUR", "USD", "GBP"}, clock)
	require.NoError(t, err)

	return &mockAccountCommander{
		addFundsFn: func(cmd cqrs.AddFundsCommand) (*models.LedgerEntry, error) {
			if rejection := gate.ValidateFunding(cmd.Request); rejection != nil {
				return nil, apperrors.Rejected(rejection.Reason)
			}
			return &models.LedgerEntry{ID: 42, OwnerID: cmd.UserID, Type: cmd.Request.TransactionType}, nil
		},
		personalDataFn: func(cmd cqrs.UpdatePersonalDataCommand) (*models.UserView, error) {
			if rejection := gate.ValidatePersonalData(cmd.Request); rejection != nil {
				return nil, apperrors.Rejected(rejection.Reason)
			}
			return &models.UserView{ID: cmd.UserID, Email: "anna@example.com"}, nil
		},
	}
}

// ---- helpers ----

func fakeAuthUser(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID > 0 {
			middleware.SetUserID(c, userID)
		}
		c.Next()
	}
}

func newTestRouter(cmds AccountCommander, qrys AccountQuerier, auth AuthQuerier, authUserID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.TraceID())

	logger := zap.NewNop()
	authHandler := NewAuthHandler(cmds, auth, logger, time.Hour)
	paymentHandler := NewPaymentHandler(cmds, qrys, logger)
	userDataHandler := NewUserDataHandler(cmds, qrys, logger)

	public := r.Group("/public")
	public.POST("/sign-up", authHandler.SignUp)
	public.POST("/sign-in", authHandler.SignIn)

	api := r.Group("/api", fakeAuthUser(authUserID))
	api.POST("/add-funds", paymentHandler.AddFunds)
	api.GET("/payments", paymentHandler.ListPayments)
	api.POST("/personal-data", userDataHandler.UpdatePersonalData)
	api.GET("/balance", userDataHandler.GetBalance)
	return r
}

// doRequest sends body as JSON. A string body is sent verbatim; a nil body
// sends no payload at all.
func doRequest(router *gin.Engine, method, url string, body any, headers ...string) *httptest.ResponseRecorder {
	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		payload, _ = json.Marshal(b)
	}
	req, _ := http.NewRequest(method, url, bytes.NewReader(payload))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}
