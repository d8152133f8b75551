package service

import (
	"context"
	"errors"

	bookingsrepo "counsel/internal/bookings/repository"
	expertserrors "counsel/internal/experts/errors"
	"counsel/internal/experts/repository"
	"counsel/internal/experts/validator"
	sessionsrepo "counsel/internal/sessions/repository"
	"counsel/pkg/auth"
	"counsel/pkg/config"
	apperrors "counsel/pkg/errors"
	"counsel/pkg/model"
	"counsel/pkg/sanitizer"
)

type ExpertService interface {
	// ListActive is the public directory, best rated first.
	ListActive(ctx context.Context) ([]*model.Expert, error)
	GetProfile(ctx context.Context, requester *auth.Identity) (*model.Expert, error)
	UpdateProfile(ctx context.Context, requester *auth.Identity, update *model.ExpertProfileUpdate) (*model.Expert, error)

	Create(ctx context.Context, requester *auth.Identity, req *model.CreateExpertRequest) (*model.Expert, error)
	List(ctx context.Context, requester *auth.Identity, deleted bool) ([]*model.Expert, error)
	SetFlags(ctx context.Context, requester *auth.Identity, id string, flags model.ExpertFlags) (*model.Expert, error)
	Restore(ctx context.Context, requester *auth.Identity, id string) (*model.Expert, error)
	// Delete archives the expert, or removes the record when permanent is set
	// and nothing references it.
	Delete(ctx context.Context, requester *auth.Identity, id string, permanent bool) error
}

type expertService struct {
	repo      repository.ExpertRepository
	bookings  bookingsrepo.BookingRepository
	sessions  sessionsrepo.SessionRepository
	validator *validator.ExpertValidator
	cfg       *config.Config
}

func NewExpertService(
	repo repository.ExpertRepository,
	bookings bookingsrepo.BookingRepository,
	sessions sessionsrepo.SessionRepository,
	validator *validator.ExpertValidator,
	cfg *config.Config,
) ExpertService {
	return &expertService{
		repo:      repo,
		bookings:  bookings,
		sessions:  sessions,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *expertService) ListActive(ctx context.Context) ([]*model.Expert, error) {
	experts, err := s.repo.FindActive(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list active experts", "error", err)
		return nil, apperrors.Internal("Failed to retrieve experts", err)
	}

	ids := make([]string, 0, len(experts))
	for _, e := range experts {
		ids = append(ids, e.ID)
	}
	completed, err := s.bookings.CountCompletedByExperts(ctx, ids)
	if err != nil {
		s.cfg.Log.Error("Failed to count completed sessions", "error", err)
		return nil, apperrors.Internal("Failed to retrieve experts", err)
	}
	for _, e := range experts {
		n := completed[e.ID]
		e.SessionsCompleted = &n
	}
	return experts, nil
}

func (s *expertService) GetProfile(ctx context.Context, requester *auth.Identity) (*model.Expert, error) {
	if requester == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	return s.findOwn(ctx, requester)
}

func (s *expertService) findOwn(ctx context.Context, requester *auth.Identity) (*model.Expert, error) {
	expert, err := s.repo.FindByExternalID(ctx, requester.Subject)
	if err != nil {
		if errors.Is(err, expertserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Expert")
		}
		return nil, apperrors.Internal("Failed to retrieve expert", err)
	}
	return expert, nil
}

func (s *expertService) UpdateProfile(ctx context.Context, requester *auth.Identity, update *model.ExpertProfileUpdate) (*model.Expert, error) {
	if requester == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if update == nil {
		return nil, apperrors.InvalidInput("Request body is required")
	}
	if update.Experience != nil && *update.Experience < 0 {
		return nil, apperrors.InvalidInput("Years of experience cannot be negative")
	}
	if update.Bio != nil {
		bio := sanitizer.SanitizeMultiline(*update.Bio)
		update.Bio = &bio
	}
	if update.Specialization != nil {
		tags := model.TagList(sanitizer.NormalizeTags(*update.Specialization))
		update.Specialization = &tags
	}
	if err := s.validator.ValidateProfile(update); err != nil {
		return nil, apperrors.Validation("Expert profile validation failed", map[string]any{"errors": err})
	}

	expert, err := s.findOwn(ctx, requester)
	if err != nil {
		return nil, err
	}

	if update.Bio != nil {
		expert.Bio = *update.Bio
	}
	if update.Specialization != nil {
		expert.Specialization = *update.Specialization
	}
	if update.Experience != nil {
		expert.Experience = *update.Experience
	}

	if err := s.repo.Update(ctx, expert); err != nil {
		s.cfg.Log.Error("Failed to update expert profile", "id", expert.ID, "error", err)
		return nil, apperrors.Internal("Failed to update profile", err)
	}

	s.cfg.Log.Info("Expert profile updated", "id", expert.ID)
	return expert, nil
}

func requireAdmin(requester *auth.Identity) error {
	if requester == nil {
		return apperrors.Unauthorized("Authentication required")
	}
	if !requester.IsAdmin() {
		return apperrors.Forbidden("Admin access required")
	}
	return nil
}

func (s *expertService) Create(ctx context.Context, requester *auth.Identity, req *model.CreateExpertRequest) (*model.Expert, error) {
	if err := requireAdmin(requester); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.InvalidInput("Request body is required")
	}

	req.FirstName = sanitizer.NormalizeName(req.FirstName)
	req.LastName = sanitizer.NormalizeName(req.LastName)
	req.Email = sanitizer.NormalizeEmail(req.Email)
	req.Bio = sanitizer.SanitizeMultiline(req.Bio)
	req.Specialization = sanitizer.NormalizeTags(req.Specialization)

	var missing []string
	if req.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if req.LastName == "" {
		missing = append(missing, "last_name")
	}
	if req.Email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return nil, apperrors.MissingFields(missing...)
	}
	if req.Experience != nil && *req.Experience < 0 {
		return nil, apperrors.InvalidInput("Years of experience cannot be negative")
	}
	if err := s.validator.ValidateCreate(req); err != nil {
		s.cfg.Log.Warn("Expert validation failed", "error", err)
		return nil, apperrors.Validation("Expert validation failed", map[string]any{"errors": err})
	}

	expert := &model.Expert{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Specialization: req.Specialization,
		Bio:            req.Bio,
		IsActive:       true,
	}
	if req.Experience != nil {
		expert.Experience = *req.Experience
	}
	if req.Rating != nil {
		expert.Rating = *req.Rating
	}
	if req.IsActive != nil {
		expert.IsActive = *req.IsActive
	}
	// An admin adding themselves links the record to their own identity.
	if sanitizer.NormalizeEmail(requester.Email) == expert.Email {
		expert.ExternalID = requester.Subject
	}

	if err := s.repo.Create(ctx, expert); err != nil {
		if errors.Is(err, expertserrors.ErrDuplicate) {
			return nil, apperrors.Conflict("An expert with this email already exists")
		}
		s.cfg.Log.Error("Failed to create expert", "email", expert.Email, "error", err)
		return nil, apperrors.Internal("Failed to create expert", err)
	}

	s.cfg.Log.Info("Expert created",
		"id", expert.ID,
		"self_registered", expert.ExternalID != "",
		"by", requester.Subject,
	)
	return expert, nil
}

func (s *expertService) List(ctx context.Context, requester *auth.Identity, deleted bool) ([]*model.Expert, error) {
	if err := requireAdmin(requester); err != nil {
		return nil, err
	}

	experts, err := s.repo.FindAll(ctx, deleted)
	if err != nil {
		s.cfg.Log.Error("Failed to list experts", "deleted", deleted, "error", err)
		return nil, apperrors.Internal("Failed to retrieve experts", err)
	}
	return experts, nil
}

func (s *expertService) findForAdmin(ctx context.Context, id string) (*model.Expert, error) {
	expert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, expertserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Expert", id)
		}
		if errors.Is(err, expertserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid expert ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve expert", err)
	}
	return expert, nil
}

func (s *expertService) SetFlags(ctx context.Context, requester *auth.Identity, id string, flags model.ExpertFlags) (*model.Expert, error) {
	if err := requireAdmin(requester); err != nil {
		return nil, err
	}
	if flags.Empty() {
		return nil, apperrors.InvalidInput("is_active or is_deleted is required")
	}

	expert, err := s.findForAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	if flags.IsActive != nil {
		expert.IsActive = *flags.IsActive
	}
	if flags.IsDeleted != nil {
		expert.IsDeleted = *flags.IsDeleted
	}
	return s.save(ctx, expert, "Expert flags updated")
}

func (s *expertService) Restore(ctx context.Context, requester *auth.Identity, id string) (*model.Expert, error) {
	if err := requireAdmin(requester); err != nil {
		return nil, err
	}

	expert, err := s.findForAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	expert.IsDeleted = false
	expert.IsActive = true
	return s.save(ctx, expert, "Expert restored")
}

func (s *expertService) Delete(ctx context.Context, requester *auth.Identity, id string, permanent bool) error {
	if err := requireAdmin(requester); err != nil {
		return err
	}

	expert, err := s.findForAdmin(ctx, id)
	if err != nil {
		return err
	}

	if !permanent {
		expert.IsDeleted = true
		expert.IsActive = false
		_, err := s.save(ctx, expert, "Expert archived")
		return err
	}

	bookings, err := s.bookings.CountByExpert(ctx, expert.ID)
	if err != nil {
		return apperrors.Internal("Failed to count expert bookings", err)
	}
	sessions, err := s.sessions.CountByExpert(ctx, expert.ID)
	if err != nil {
		return apperrors.Internal("Failed to count expert sessions", err)
	}
	if bookings > 0 || sessions > 0 {
		return apperrors.Conflict("Expert has bookings or live sessions and can only be archived").
			WithDetails(map[string]any{"bookings": bookings, "live_sessions": sessions})
	}

	if err := s.repo.Delete(ctx, expert.ID); err != nil {
		if errors.Is(err, expertserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Expert", id)
		}
		s.cfg.Log.Error("Failed to delete expert", "id", expert.ID, "error", err)
		return apperrors.Internal("Failed to delete expert", err)
	}

	s.cfg.Log.Info("Expert deleted permanently", "id", expert.ID, "by", requester.Subject)
	return nil
}

func (s *expertService) save(ctx context.Context, expert *model.Expert, msg string) (*model.Expert, error) {
	if err := s.repo.Update(ctx, expert); err != nil {
		if errors.Is(err, expertserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Expert", expert.ID)
		}
		s.cfg.Log.Error("Failed to update expert", "id", expert.ID, "error", err)
		return nil, apperrors.Internal("Failed to update expert", err)
	}

	s.cfg.Log.Info(msg, "id", expert.ID, "is_active", expert.IsActive, "is_deleted", expert.IsDeleted)
	return expert, nil
}
