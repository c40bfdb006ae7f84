package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/kuztatygit/lemfi-qa-homework/shared/models"
	sharedredis "github.com/kuztatygit/lemfi-qa-homework/shared/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	balanceViewKeyPrefix = "balance:view:"
	balanceGenKeyPrefix  = "balance:gen:"
	profileViewKeyPrefix = "user:view:"

	// balanceViewTTL bounds how long a view can outlive a missed generation bump.
	balanceViewTTL = time.Minute
)

// AccountReadRepository serves balance and payment reads. Balances are read
// through a Redis view keyed by a per-identity generation counter: every
// committed write bumps the counter, so a cached view is only returned while
// no write has happened since it was stored. Without Redis every read goes
// to the store.
type AccountReadRepository struct {
	store    Store
	redis    goredis.Cmdable
	balances *sharedredis.ViewCache[models.BalanceView]
	profiles *sharedredis.ViewCache[models.UserView]
	logger   *zap.Logger
}

// NewAccountReadRepository builds the read side. redisClient may be nil.
func NewAccountReadRepository(store Store, redisClient goredis.Cmdable, logger *zap.Logger) *AccountReadRepository {
	r := &AccountReadRepository{store: store, redis: redisClient, logger: logger}
	if redisClient != nil {
		r.balances = sharedredis.NewViewCache[models.BalanceView](redisClient, balanceViewTTL, logger)
		r.profiles = sharedredis.NewViewCache[models.UserView](redisClient, 0, logger)
	}
	return r
}

// GetBalance returns the balance view of an identity, trying Redis first.
func (r *AccountReadRepository) GetBalance(ctx context.Context, userID int64) (*models.BalanceView, error) {
	gen, cacheable := r.generation(ctx, userID)
	key := balanceViewKeyPrefix + strconv.FormatInt(userID, 10)

	if cacheable {
		if view, ok := r.balances.Get(ctx, key); ok && view.Generation == gen {
			return view, nil
		}
	}

	identity, err := r.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := models.IdentityToBalanceView(identity)
	view.Generation = gen

	// Warm the cache
	if cacheable {
		r.balances.Set(ctx, key, view)
	}
	return view, nil
}

// ListPayments returns the ledger entries of an identity in append order.
func (r *AccountReadRepository) ListPayments(ctx context.Context, userID int64) ([]models.PaymentView, error) {
	entries, err := r.store.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]models.PaymentView, 0, len(entries))
	for i := range entries {
		views = append(views, models.EntryToView(&entries[i]))
	}
	return views, nil
}

// InvalidateBalance marks every cached balance view of the identity stale.
// Called by the command service after each committed write.
func (r *AccountReadRepository) InvalidateBalance(ctx context.Context, userID int64) {
	if r.redis == nil {
		return
	}
	id := strconv.FormatInt(userID, 10)
	if err := r.redis.Incr(ctx, balanceGenKeyPrefix+id).Err(); err != nil {
		r.logger.Warn("balance generation bump failed", zap.Int64("user_id", userID), zap.Error(err))
		// Without a bump the view may still match the old generation.
		r.balances.Delete(ctx, balanceViewKeyPrefix+id)
	}
}

// CacheProfile stores the public projection of an identity for consumers of
// the user events stream.
func (r *AccountReadRepository) CacheProfile(ctx context.Context, view *models.UserView) {
	if r.profiles == nil {
		return
	}
	r.profiles.Set(ctx, profileViewKeyPrefix+strconv.FormatInt(view.ID, 10), view)
}

// generation reads the write counter of an identity. The second result is
// false when the cache must be bypassed.
func (r *AccountReadRepository) generation(ctx context.Context, userID int64) (int64, bool) {
	if r.redis == nil {
		return 0, false
	}
	gen, err := r.redis.Get(ctx, balanceGenKeyPrefix+strconv.FormatInt(userID, 10)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, true
	}
	if err != nil {
		r.logger.Warn("balance generation read failed", zap.Int64("user_id", userID), zap.Error(err))
		return 0, false
	}
	return gen, true
}
