package repository

import (
	"context"

	"github.com/kuztatygit/lemfi-qa-homework/shared/models"
)

// IdentityStore is the durable registry of identities, unique by email.
type IdentityStore interface {
	// Create assigns identity.ID and persists it. It fails with
	// apperrors.ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, identity *models.Identity) error
	GetByID(ctx context.Context, id int64) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	// Save replaces the mutable fields of an existing identity.
	Save(ctx context.Context, identity *models.Identity) error
}

// LedgerStore is the append-mostly store of ledger entries.
type LedgerStore interface {
	// Append assigns entry.ID, persists the entry and returns the id.
	Append(ctx context.Context, entry *models.LedgerEntry) (int64, error)
	// ListByOwner returns the entries of one identity in append order.
	ListByOwner(ctx context.Context, ownerID int64) ([]models.LedgerEntry, error)
	// DeleteByID removes one entry. Used by out-of-band cleanup only.
	DeleteByID(ctx context.Context, id int64) error
}

// Tx is the set of writes allowed while an identity is locked. They are
// applied together when the locked function returns nil, and discarded
// otherwise.
type Tx interface {
	AppendEntry(ctx context.Context, entry *models.LedgerEntry) (int64, error)
	SaveIdentity(ctx context.Context, identity *models.Identity) error
}

// Store combines both stores with a per-identity transaction boundary.
type Store interface {
	IdentityStore
	LedgerStore
	// WithIdentityLock loads the identity with exclusive access and runs fn.
	// Concurrent calls for the same id are serialised; different ids do not
	// block each other.
	WithIdentityLock(ctx context.Context, id int64, fn func(tx Tx, identity *models.Identity) error) error
	Close() error
}
