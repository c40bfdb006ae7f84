package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kuztatygit/lemfi-qa-homework/internal/repository"
	"github.com/kuztatygit/lemfi-qa-homework/internal/validation"
	"github.com/kuztatygit/lemfi-qa-homework/shared/apperrors"
	"github.com/kuztatygit/lemfi-qa-homework/shared/cqrs"
	"github.com/kuztatygit/lemfi-qa-homework/shared/events"
	"github.com/kuztatygit/lemfi-qa-homework/shared/middleware"
	"github.com/kuztatygit/lemfi-qa-homework/shared/models"
	"github.com/kuztatygit/lemfi-qa-homework/shared/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AccountCommandService writes identity and ledger state and keeps the read
// model in sync.
type AccountCommandService struct {
	store     repository.Store
	readRepo  *repository.AccountReadRepository
	gate      *validation.Gate
	publisher events.Publisher
	logger    *zap.Logger
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewAccountCommandService(
	store repository.Store,
	readRepo *repository.AccountReadRepository,
	gate *validation.Gate,
	publisher events.Publisher,
	logger *zap.Logger,
	tokenTTL time.Duration,
) *AccountCommandService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &AccountCommandService{
		store:     store,
		readRepo:  readRepo,
		gate:      gate,
		publisher: publisher,
		logger:    logger,
		tokenTTL:  tokenTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an identity with a zero balance and issues the token that
// binds later requests to it.
func (s *AccountCommandService) Register(ctx context.Context, cmd cqrs.RegisterCommand) (*models.RegisteredUser, error) {
	if rejection := s.gate.ValidateRegistration(cmd.Request); rejection != nil {
		return nil, apperrors.Rejected(rejection.Reason)
	}

	hash, err := utils.HashPassword(cmd.Request.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	now := s.now()
	identity := &models.Identity{
		Email:        cmd.Request.Email,
		PasswordHash: hash,
		Balance:      decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, identity); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEmail) {
			return nil, apperrors.New(apperrors.DuplicateEmail, "", err)
		}
		return nil, err
	}

	token, err := middleware.IssueToken(identity.ID, identity.Email, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	view := models.IdentityToView(identity)
	s.readRepo.CacheProfile(ctx, view)
	s.publish(ctx, events.UserEventsStream, events.UserRegistered, events.UserRegisteredEvent{
		UserID: identity.ID,
		Email:  identity.Email,
	})
	return &models.RegisteredUser{User: view, Token: token}, nil
}

// AddFunds validates a funding request and records it for the calling
// identity. The entry append and the balance increase commit together.
func (s *AccountCommandService) AddFunds(ctx context.Context, cmd cqrs.AddFundsCommand) (*models.LedgerEntry, error) {
	if cmd.UserID <= 0 {
		return nil, apperrors.ErrNoIdentity
	}
	if rejection := s.gate.ValidateFunding(cmd.Request); rejection != nil {
		return nil, apperrors.Rejected(rejection.Reason)
	}
	amount, err := validation.FundingAmount(cmd.Request)
	if err != nil {
		return nil, apperrors.Rejected("Invalid amount")
	}
	raw, err := json.Marshal(cmd.Request)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot request: %w", err)
	}

	entry := &models.LedgerEntry{
		OwnerID:     cmd.UserID,
		Type:        cmd.Request.TransactionType,
		Amount:      amount,
		Currency:    cmd.Request.Amount.Currency,
		RawResponse: string(raw),
		CreatedAt:   s.now(),
	}

	var newBalance decimal.Decimal
	err = s.store.WithIdentityLock(ctx, cmd.UserID, func(tx repository.Tx, identity *models.Identity) error {
		if _, err := tx.AppendEntry(ctx, entry); err != nil {
			return err
		}
		identity.Balance = identity.Balance.Add(amount)
		identity.UpdatedAt = entry.CreatedAt
		newBalance = identity.Balance
		return tx.SaveIdentity(ctx, identity)
	})
	if err != nil {
		return nil, identityError(err)
	}

	s.readRepo.InvalidateBalance(ctx, cmd.UserID)
	s.publish(ctx, events.PaymentEventsStream, events.PaymentFunded, events.PaymentFundedEvent{
		PaymentID:  entry.ID,
		UserID:     cmd.UserID,
		Amount:     amount.StringFixed(2),
		Currency:   entry.Currency,
		NewBalance: newBalance.StringFixed(2),
	})
	s.logger.Info("payment imported",
		zap.Int64("payment_id", entry.ID),
		zap.Int64("user_id", cmd.UserID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("currency", entry.Currency),
	)
	return entry, nil
}

// UpdatePersonalData overwrites the profile of the calling identity. The
// balance is reset to zero in the same unit of work.
func (s *AccountCommandService) UpdatePersonalData(ctx context.Context, cmd cqrs.UpdatePersonalDataCommand) (*models.UserView, error) {
	if cmd.UserID <= 0 {
		return nil, apperrors.ErrNoIdentity
	}
	if rejection := s.gate.ValidatePersonalData(cmd.Request); rejection != nil {
		return nil, apperrors.Rejected(rejection.Reason)
	}
	personalID, err := validation.PersonalID(cmd.Request)
	if err != nil {
		return nil, apperrors.Rejected("Invalid personalId")
	}

	var updated models.Identity
	err = s.store.WithIdentityLock(ctx, cmd.UserID, func(tx repository.Tx, identity *models.Identity) error {
		firstName, surname := cmd.Request.FirstName, cmd.Request.Surname
		identity.FirstName = &firstName
		identity.Surname = &surname
		identity.PersonalID = &personalID
		identity.Balance = decimal.Zero
		identity.UpdatedAt = s.now()
		updated = *identity
		return tx.SaveIdentity(ctx, identity)
	})
	if err != nil {
		return nil, identityError(err)
	}

	view := models.IdentityToView(&updated)
	s.readRepo.InvalidateBalance(ctx, cmd.UserID)
	s.readRepo.CacheProfile(ctx, view)
	s.publish(ctx, events.UserEventsStream, events.PersonalDataUpdated, events.PersonalDataUpdatedEvent{
		UserID:     updated.ID,
		FirstName:  cmd.Request.FirstName,
		Surname:    cmd.Request.Surname,
		PersonalID: personalID,
		Balance:    updated.Balance.StringFixed(2),
	})
	return view, nil
}

// publish emits an event after commit. A failed publish is logged and never
// fails the request.
func (s *AccountCommandService) publish(ctx context.Context, stream, eventType string, data any) {
	if err := s.publisher.Publish(ctx, stream, eventType, data); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("stream", stream),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}

// identityError maps a missing identity behind a valid token to an
// authentication failure.
func identityError(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.New(apperrors.Unauthenticated, "", fmt.Errorf("%w: %w", apperrors.ErrNoIdentity, err))
	}
	return err
}
