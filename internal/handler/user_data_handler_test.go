package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/kuztatygit/lemfi-qa-homework/shared/apperrors"
	"github.com/kuztatygit/lemfi-qa-homework/shared/cqrs"
	"github.com/kuztatygit/lemfi-qa-homework/shared/models"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }
func int64Ptr(v int64) *int64 { return &v }

func TestUpdatePersonalData(t *testing.T) {
	updated := &models.UserView{
		ID:         7,
		Email:      "anna@example.com",
		FirstName:  strPtr("Anna"),
		Surname:    strPtr("Smith"),
		PersonalID: int64Ptr(123456789),
	}

	tests := []struct {
		name           string
		body           any
		personalDataFn func(cqrs.UpdatePersonalDataCommand) (*models.UserView, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success - personal info updated",
			body: `{"firstName":"Anna","surname":"Smith","personalId":123456789}`,
			personalDataFn: func(cmd cqrs.UpdatePersonalDataCommand) (*models.UserView, error) {
				if cmd.UserID != 7 || cmd.Request.PersonalID.String() != "123456789" {
					return nil, errors.New("unexpected command")
				}
				return updated, nil
			},
			expectedStatus: http.StatusCreated,
			expectedBody: `{"user":{"id":7,"email":"anna@example.com","firstName":"Anna","surname":"Smith","personalId":123456789},
				"message":{"status":"SUCCESS","text":"Personal info updated"}}`,
		},
		{
			name: "bad request - validation rejected",
			body: `{"firstName":"test1","surname":"Smith","personalId":123456789}`,
			personalDataFn: func(cmd cqrs.UpdatePersonalDataCommand) (*models.UserView, error) {
				return nil, apperrors.Rejected("Invalid firstName")
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"message":"Invalid firstName"}`,
		},
		{
			name:           "bad request - firstName of wrong type",
			body:           `{"firstName":5,"surname":"Smith","personalId":123456789}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"message":"Invalid firstName"}`,
		},
		{
			name:           "bad request - body missing",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"message":"Body is required"}`,
		},
		{
			name: "bad request - unexpected failure",
			body: `{"firstName":"Anna","surname":"Smith","personalId":123456789}`,
			personalDataFn: func(cmd cqrs.UpdatePersonalDataCommand) (*models.UserView, error) {
				return nil, errors.New("serialization failure")
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"FAIL","text":"Something went wrong"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockAccountCommander{personalDataFn: tt.personalDataFn}
			router := newTestRouter(cmds, &mockAccountQuerier{}, &mockAuthQuerier{}, 7)
			w := doRequest(router, http.MethodPost, "/api/personal-data", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestUpdatePersonalDataLooseFieldsReachValidation(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "personalId letters",
			body:           `{"firstName":"Anna","surname":"Smith","personalId":"abcdefghi"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"message":"Invalid personalId"}`,
		},
		{
			name:           "personalId array",
			body:           `{"firstName":"Anna","surname":"Smith","personalId":[1]}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"message":"Invalid personalId"}`,
		},
		{
			name:           "first failing field wins",
			body:           `{"firstName":"","surname":"Smith","personalId":"abc"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"message":"Invalid firstName"}`,
		},
		{
			name:           "numeric string accepted",
			body:           `{"firstName":"Anna","surname":"Smith","personalId":"123456789"}`,
			expectedStatus: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(gatedCommander(t), &mockAccountQuerier{}, &mockAuthQuerier{}, 7)
			w := doRequest(router, http.MethodPost, "/api/personal-data", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestGetBalance(t *testing.T) {
	tests := []struct {
		name           string
		authUserID     int64
		balanceFn      func(cqrs.GetBalanceQuery) (string, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "success - balance as text",
			authUserID:     7,
			balanceFn:      func(q cqrs.GetBalanceQuery) (string, error) { return "8.50", nil },
			expectedStatus: http.StatusOK,
			expectedBody:   "8.50",
		},
		{
			name:           "unauthorised - no identity bound",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"message":"Authentication required"}`,
		},
		{
			name:           "bad request - store failure",
			authUserID:     7,
			balanceFn:      func(q cqrs.GetBalanceQuery) (string, error) { return "", errors.New("timeout") },
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"message":"Something went wrong"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockAccountCommander{}, &mockAccountQuerier{balanceFn: tt.balanceFn}, &mockAuthQuerier{}, tt.authUserID)
			w := doRequest(router, http.MethodGet, "/api/balance", nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			assert.Equal(t, tt.expectedBody, w.Body.String())
		})
	}
}
