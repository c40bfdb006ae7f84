package query

import (
	"context"

	"github.com/kuztatygit/lemfi-qa-homework/internal/repository"
	"github.com/kuztatygit/lemfi-qa-homework/shared/apperrors"
	"github.com/kuztatygit/lemfi-qa-homework/shared/cqrs"
	"github.com/kuztatygit/lemfi-qa-homework/shared/models"
)

// AccountReader is the read model the query service depends on.
type AccountReader interface {
	GetBalance(ctx context.Context, userID int64) (*models.BalanceView, error)
	ListPayments(ctx context.Context, userID int64) ([]models.PaymentView, error)
}

type AccountQueryService struct {
	readRepo AccountReader
}

func NewAccountQueryService(readRepo AccountReader) *AccountQueryService {
	return &AccountQueryService{readRepo: readRepo}
}

// GetBalance returns the running balance of the caller with exactly two
// fractional digits, e.g. "8.50".
func (s *AccountQueryService) GetBalance(ctx context.Context, q cqrs.GetBalanceQuery) (string, error) {
	if q.UserID <= 0 {
		return "", apperrors.ErrNoIdentity
	}
	view, err := s.readRepo.GetBalance(ctx, q.UserID)
	if err != nil {
		return "", identityError(err)
	}
	return view.Balance, nil
}

func (s *AccountQueryService) ListPayments(ctx context.Context, q cqrs.ListPaymentsQuery) ([]models.PaymentView, error) {
	if q.UserID <= 0 {
		return nil, apperrors.ErrNoIdentity
	}
	return s.readRepo.ListPayments(ctx, q.UserID)
}

var _ AccountReader = (*repository.AccountReadRepository)(nil)
