package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kuztatygit/lemfi-qa-homework/internal/repository"
	"github.com/kuztatygit/lemfi-qa-homework/shared/apperrors"
	"github.com/kuztatygit/lemfi-qa-homework/shared/cqrs"
	"github.com/kuztatygit/lemfi-qa-homework/shared/middleware"
	"github.com/kuztatygit/lemfi-qa-homework/shared/utils"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthQueryService handles sign-in. It issues a token but does not mutate
// application state, so there is no command counterpart.
type AuthQueryService struct {
	identities repository.IdentityStore
	tokenTTL   time.Duration
}

func NewAuthQueryService(identities repository.IdentityStore, tokenTTL time.Duration) *AuthQueryService {
	return &AuthQueryService{identities: identities, tokenTTL: tokenTTL}
}

func (s *AuthQueryService) SignIn(ctx context.Context, cmd cqrs.SignInCommand) (string, error) {
	identity, err := s.identities.GetByEmail(ctx, cmd.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !utils.CheckPassword(cmd.Password, identity.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	token, err := middleware.IssueToken(identity.ID, identity.Email, s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

// identityError maps a token naming a missing identity to an
// authentication failure.
func identityError(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.New(apperrors.Unauthenticated, "", fmt.Errorf("%w: %w", apperrors.ErrNoIdentity, err))
	}
	return err
}
