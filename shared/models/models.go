package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionTypeFunding TransactionType = "FUNDING"
)

// IsKnown reports whether t is a transaction type the ledger accepts.
func (t TransactionType) IsKnown() bool {
	switch t {
	case TransactionTypeFunding:
		return true
	}
	return false
}

// Identity is the write model of a registered person.
// FirstName, Surname and PersonalID stay nil until the first profile update.
type Identity struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    *string
	Surname      *string
	PersonalID   *int64
	Balance      decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LedgerEntry is an immutable record of one funding transaction.
type LedgerEntry struct {
	ID          int64
	OwnerID     int64
	Type        TransactionType
	Amount      decimal.Decimal
	Currency    string
	RawResponse string
	CreatedAt   time.Time
}
