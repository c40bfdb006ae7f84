package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kuztatygit/lemfi-qa-homework/shared/apperrors"
	"github.com/kuztatygit/lemfi-qa-homework/shared/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdentity(email string) *models.Identity {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Identity{
		Email:        email,
		PasswordHash: "hash",
		Balance:      decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func newEntry(ownerID int64, amount string) *models.LedgerEntry {
	return &models.LedgerEntry{
		OwnerID:     ownerID,
		Type:        models.TransactionTypeFunding,
		Amount:      decimal.RequireFromString(amount),
		Currency:    "EUR",
		RawResponse: `{}`,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func fundLocked(ctx context.Context, store Store, id int64, amount string) error {
	return store.WithIdentityLock(ctx, id, func(tx Tx, locked *models.Identity) error {
		entry := newEntry(locked.ID, amount)
		if _, err := tx.AppendEntry(ctx, entry); err != nil {
			return err
		}
		locked.Balance = locked.Balance.Add(entry.Amount)
		return tx.SaveIdentity(ctx, locked)
	})
}

// runStoreContract checks the behaviour every Store implementation shares.
// newStore must return an empty store whose id sequences start at 1.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("create", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		first := newIdentity("anna@example.com")
		require.NoError(t, store.Create(ctx, first))
		second := newIdentity("ben@example.com")
		require.NoError(t, store.Create(ctx, second))

		assert.Equal(t, int64(1), first.ID)
		assert.Equal(t, int64(2), second.ID)

		err := store.Create(ctx, newIdentity("anna@example.com"))
		assert.ErrorIs(t, err, apperrors.ErrDuplicateEmail)

		got, err := store.GetByEmail(ctx, "anna@example.com")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.Nil(t, got.FirstName)
		assert.Nil(t, got.PersonalID)
		assert.True(t, got.Balance.IsZero())
	})

	t.Run("not found", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		_, err := store.GetByID(ctx, 42)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		_, err = store.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		err = store.Save(ctx, &models.Identity{ID: 42, Balance: decimal.Zero})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("save keeps credential", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		identity := newIdentity("anna@example.com")
		require.NoError(t, store.Create(ctx, identity))

		name := "Anna"
		identity.FirstName = &name
		identity.Email = "changed@example.com"
		identity.PasswordHash = "other"
		require.NoError(t, store.Save(ctx, identity))

		got, err := store.GetByID(ctx, identity.ID)
		require.NoError(t, err)
		assert.Equal(t, "anna@example.com", got.Email)
		assert.Equal(t, "hash", got.PasswordHash)
		require.NotNil(t, got.FirstName)
		assert.Equal(t, "Anna", *got.FirstName)
	})

	t.Run("ledger", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		anna := newIdentity("anna@example.com")
		ben := newIdentity("ben@example.com")
		require.NoError(t, store.Create(ctx, anna))
		require.NoError(t, store.Create(ctx, ben))

		empty, err := store.ListByOwner(ctx, anna.ID)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		id1, err := store.Append(ctx, newEntry(anna.ID, "5.00"))
		require.NoError(t, err)
		_, err = store.Append(ctx, newEntry(ben.ID, "1.00"))
		require.NoError(t, err)
		id3, err := store.Append(ctx, newEntry(anna.ID, "3.50"))
		require.NoError(t, err)

		_, err = store.Append(ctx, newEntry(99, "1.00"))
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		entries, err := store.ListByOwner(ctx, anna.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, id1, entries[0].ID)
		assert.Equal(t, id3, entries[1].ID)
		assert.Equal(t, "5.00", entries[0].Amount.StringFixed(2))

		require.NoError(t, store.DeleteByID(ctx, id1))
		assert.ErrorIs(t, store.DeleteByID(ctx, id1), apperrors.ErrNotFound)

		entries, err = store.ListByOwner(ctx, anna.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, id3, entries[0].ID)
	})

	t.Run("identity lock commits entry and identity together", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		identity := newIdentity("anna@example.com")
		require.NoError(t, store.Create(ctx, identity))

		require.NoError(t, fundLocked(ctx, store, identity.ID, "5.00"))

		got, err := store.GetByID(ctx, identity.ID)
		require.NoError(t, err)
		assert.Equal(t, "5.00", got.Balance.StringFixed(2))
		entries, err := store.ListByOwner(ctx, identity.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("identity lock discards writes when fn fails", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		identity := newIdentity("anna@example.com")
		require.NoError(t, store.Create(ctx, identity))

		boom := errors.New("boom")
		err := store.WithIdentityLock(ctx, identity.ID, func(tx Tx, locked *models.Identity) error {
			if _, err := tx.AppendEntry(ctx, newEntry(locked.ID, "5.00")); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		entries, err := store.ListByOwner(ctx, identity.ID)
		require.NoError(t, err)
		assert.Empty(t, entries)
		got, err := store.GetByID(ctx, identity.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.IsZero())
	})

	t.Run("identity lock on unknown identity", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		called := false
		err := store.WithIdentityLock(ctx, 7, func(Tx, *models.Identity) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.False(t, called)
	})

	t.Run("identity lock serialises concurrent updates", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		identity := newIdentity("anna@example.com")
		require.NoError(t, store.Create(ctx, identity))

		const workers = 50
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, fundLocked(ctx, store, identity.ID, "0.10"))
			}()
		}
		wg.Wait()

		got, err := store.GetByID(ctx, identity.ID)
		require.NoError(t, err)
		assert.Equal(t, "5.00", got.Balance.StringFixed(2))
		entries, err := store.ListByOwner(ctx, identity.ID)
		require.NoError(t, err)
		assert.Len(t, entries, workers)
	})

	t.Run("direct save waits for the identity lock", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		identity := newIdentity("anna@example.com")
		require.NoError(t, store.Create(ctx, identity))

		saved := make(chan error, 1)
		err := store.WithIdentityLock(ctx, identity.ID, func(tx Tx, locked *models.Identity) error {
			go func() {
				direct := newIdentity("anna@example.com")
				direct.ID = identity.ID
				name := "Direct"
				direct.FirstName = &name
				saved <- store.Save(ctx, direct)
			}()
			select {
			case <-saved:
				t.Fatal("Save completed while the identity was locked")
			case <-time.After(50 * time.Millisecond):
			}
			locked.Balance = decimal.RequireFromString("1.00")
			return tx.SaveIdentity(ctx, locked)
		})
		require.NoError(t, err)
		require.NoError(t, <-saved)

		got, err := store.GetByID(ctx, identity.ID)
		require.NoError(t, err)
		require.NotNil(t, got.FirstName)
		assert.Equal(t, "Direct", *got.FirstName)
		assert.True(t, got.Balance.IsZero())
	})
}
