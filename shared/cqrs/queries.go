package cqrs

// GetBalanceQuery fetches the running balance of the calling identity.
type GetBalanceQuery struct {
	UserID int64
}

// ListPaymentsQuery fetches the ledger entries of the calling identity in
// the order they were appended.
type ListPaymentsQuery struct {
	UserID int64
}
