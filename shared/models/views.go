package models

import (
	"encoding/json"
	"time"
)

// UserView is the public projection of an identity.
// It never exposes the credential; unset profile fields serialise as null.
type UserView struct {
	ID         int64   `json:"id"`
	Email      string  `json:"email"`
	FirstName  *string `json:"firstName"`
	Surname    *string `json:"surname"`
	PersonalID *int64  `json:"personalId"`
}

// BalanceView is the cached balance read model of one identity.
// Generation is the write counter the view was read at; a view whose
// generation is behind the current counter is stale.
type BalanceView struct {
	UserID     int64     `json:"userId"`
	Balance    string    `json:"balance"`
	Generation int64     `json:"generation"`
	UpdatedAt  time.Time `json:"updatedTimestamp"`
}

// PaymentView is the public projection of a ledger entry.
type PaymentView struct {
	ID          int64           `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      json.Number     `json:"amount"`
	RawResponse string          `json:"rawResponse"`
}

// Message is the status envelope attached to user responses.
type Message struct {
	Status string `json:"status"`
	Text   string `json:"text"`
}

// UserResponse pairs a user projection with a status message.
type UserResponse struct {
	User    *UserView `json:"user"`
	Message Message   `json:"message"`
}

// IdentityToView projects the write model to its public shape.
func IdentityToView(i *Identity) *UserView {
	return &UserView{
		ID:         i.ID,
		Email:      i.Email,
		FirstName:  i.FirstName,
		Surname:    i.Surname,
		PersonalID: i.PersonalID,
	}
}

// EntryToView projects a ledger entry to its public shape.
func EntryToView(e *LedgerEntry) PaymentView {
	return PaymentView{
		ID:          e.ID,
		Type:        e.Type,
		Amount:      json.Number(e.Amount.StringFixed(2)),
		RawResponse: e.RawResponse,
	}
}

// IdentityToBalanceView projects the balance of an identity.
func IdentityToBalanceView(i *Identity) *BalanceView {
	return &BalanceView{
		UserID:    i.ID,
		Balance:   i.Balance.StringFixed(2),
		UpdatedAt: i.UpdatedAt,
	}
}

// RegisteredUser is the result of sign-up: the projection plus the token
// that binds later requests to the new identity.
type RegisteredUser struct {
	User  *UserView
	Token string
}
