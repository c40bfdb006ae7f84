package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Request bodies as decoded from JSON. Fields are kept loose (strings and
// Scalar) so that the validation gate, not the decoder, decides what is
// acceptable and which message to return.

// Scalar holds a JSON value as it was written in the body: 12.50 stays a
// number, "abc" stays a string. Any value decodes, so a malformed id or
// amount is reported by validation under its own field name. A missing or
// null value is empty.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	*s = Scalar(data)
	return nil
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	if json.Valid([]byte(s)) {
		return []byte(s), nil
	}
	return json.Marshal(string(s))
}

// String returns the text of the value, without quotes for a JSON string.
func (s Scalar) String() string {
	if strings.HasPrefix(string(s), `"`) {
		var v string
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return string(s)
}

type RegistrationRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AmountRequest struct {
	Currency string `json:"currency"`
	Amount   Scalar `json:"amount"`
}

type FundingRequest struct {
	AccountNumber           string          `json:"accountNumber"`
	AccountHolderFullName   string          `json:"accountHolderFullName"`
	AccountHolderPersonalID string          `json:"accountHolderPersonalId"`
	TransactionType         TransactionType `json:"transactionType"`
	InvestorID              Scalar          `json:"investorId"`
	Amount                  *AmountRequest  `json:"amount"`
	BookingDate             string          `json:"bookingDate"`
}

type PersonalDataRequest struct {
	FirstName  string `json:"firstName"`
	Surname    string `json:"surname"`
	PersonalID Scalar `json:"personalId"`
}
