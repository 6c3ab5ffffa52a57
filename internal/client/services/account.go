package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/coursestore/internal/client/guard"
	"github.com/dmitrijs2005/coursestore/internal/client/models"
	"github.com/dmitrijs2005/coursestore/internal/logging"
)

// AccountService creates accounts and edits the current user's profile.
type AccountService interface {
	Register(ctx context.Context, reg models.Registration) (*models.User, error)
	UpdateProfile(ctx context.Context, patch models.ProfileUpdate) (*models.User, error)
}

// AccountClient is the part of the API client AccountService uses.
type AccountClient interface {
	Register(ctx context.Context, reg models.Registration) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, patch models.ProfileUpdate) (*models.User, error)
}

// Identity is the session as seen by AccountService.
type Identity interface {
	User() *models.User
	Refresh(ctx context.Context) error
}

type accountService struct {
	client  AccountClient
	session Identity
	log     logging.Logger
}

func NewAccountService(client AccountClient, session Identity, log logging.Logger) AccountService {
	if log == nil {
		log = logging.Discard()
	}
	return &accountService{client: client, session: session, log: log}
}

// Register validates reg and creates the account. It does not log in.
func (s *accountService) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	if err := models.Validate(reg); err != nil {
		return nil, err
	}
	u, err := s.client.Register(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	s.log.Info(ctx, "account registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// UpdateProfile patches the current user and then refreshes the session so
// it carries the new fields. A refresh failure is returned together with
// the updated user.
func (s *accountService) UpdateProfile(ctx context.Context, patch models.ProfileUpdate) (*models.User, error) {
	current := s.session.User()
	if current == nil {
		return nil, guard.ErrLoginRequired
	}
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", models.ErrValidation)
	}
	if err := models.Validate(patch); err != nil {
		return nil, err
	}

	u, err := s.client.UpdateUser(ctx, current.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := s.session.Refresh(ctx); err != nil {
		s.log.Warn(ctx, "session refresh after profile update failed", logging.Err(err))
		return u, fmt.Errorf("profile saved, refresh failed: %w", err)
	}
	return u, nil
}
