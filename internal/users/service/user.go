package service

import (
	"context"
	"errors"

	userserrors "counsel/internal/users/errors"
	"counsel/internal/users/repository"
	"counsel/pkg/auth"
	"counsel/pkg/config"
	apperrors "counsel/pkg/errors"
	"counsel/pkg/model"
	"counsel/pkg/sanitizer"
)

type UserService interface {
	EnsureUser(ctx context.Context, identity *auth.Identity) (*model.User, error)
	// FindByExternalID returns nil without error when no user exists.
	FindByExternalID(ctx context.Context, externalID string) (*model.User, error)
	SummariesByID(ctx context.Context, ids []string) (map[string]*model.StudentSummary, error)
}

type userService struct {
	repo repository.UserRepository
	cfg  *config.Config
}

func NewUserService(repo repository.UserRepository, cfg *config.Config) UserService {
	return &userService{
		repo: repo,
		cfg:  cfg,
	}
}

// EnsureUser returns the local user for the identity, creating it on first
// sight. A placeholder email is replaced once the provider reports a real one.
func (s *userService) EnsureUser(ctx context.Context, identity *auth.Identity) (*model.User, error) {
	if identity == nil || identity.Subject == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	domain := s.cfg.PlaceholderEmailDomain
	email := sanitizer.NormalizeEmail(identity.Email)
	if email == "" {
		email = model.PlaceholderEmail(identity.Subject, domain)
	}

	user, err := s.repo.Upsert(ctx, &model.User{
		ExternalID: identity.Subject,
		Email:      email,
		FirstName:  sanitizer.NormalizeName(identity.FirstName),
		LastName:   sanitizer.NormalizeName(identity.LastName),
	})
	if err != nil {
		s.cfg.Log.Error("Failed to ensure user", "external_id", identity.Subject, "error", err)
		return nil, apperrors.Internal("Failed to resolve user", err)
	}

	if model.IsPlaceholderEmail(user.Email, domain) && !model.IsPlaceholderEmail(email, domain) {
		if err := s.repo.UpdateEmail(ctx, user.ID, email); err != nil {
			s.cfg.Log.Warn("Failed to refresh placeholder email", "user_id", user.ID, "error", err)
		} else {
			user.Email = email
			s.cfg.Log.Info("Replaced placeholder email", "user_id", user.ID)
		}
	}

	return user, nil
}

func (s *userService) FindByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	user, err := s.repo.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

func (s *userService) SummariesByID(ctx context.Context, ids []string) (map[string]*model.StudentSummary, error) {
	users, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve students", err)
	}

	summaries := make(map[string]*model.StudentSummary, len(users))
	for _, u := range users {
		summaries[u.ID] = u.Summary()
	}
	return summaries, nil
}
