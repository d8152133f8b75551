package service

import (
	"context"
	"errors"
	"time"

	bookingsrepo "counsel/internal/bookings/repository"
	expertserrors "counsel/internal/experts/errors"
	expertsrepo "counsel/internal/experts/repository"
	"counsel/internal/sessions/repository"
	"counsel/internal/sessions/validator"
	"counsel/pkg/auth"
	"counsel/pkg/config"
	apperrors "counsel/pkg/errors"
	"counsel/pkg/model"
	"counsel/pkg/sanitizer"
)

type SessionService interface {
	// CreateForExpert creates a slot owned by the requester's expert record.
	CreateForExpert(ctx context.Context, requester *auth.Identity, spec *model.SlotSpec) (*model.LiveSession, error)
	// CreateForAdmin creates a slot owned by spec.ExpertID.
	CreateForAdmin(ctx context.Context, requester *auth.Identity, spec *model.SlotSpec) (*model.LiveSession, error)
	ListAvailable(ctx context.Context, expertID string) ([]*model.LiveSession, error)
	ListForExpert(ctx context.Context, requester *auth.Identity) ([]*model.LiveSession, error)
	ListAll(ctx context.Context, requester *auth.Identity) ([]*model.LiveSession, error)
}

type sessionService struct {
	repo      repository.SessionRepository
	bookings  bookingsrepo.BookingRepository
	experts   expertsrepo.ExpertRepository
	validator *validator.SessionValidator
	cfg       *config.Config
	clock     func() time.Time
}

func NewSessionService(
	repo repository.SessionRepository,
	bookings bookingsrepo.BookingRepository,
	experts expertsrepo.ExpertRepository,
	validator *validator.SessionValidator,
	cfg *config.Config,
) SessionService {
	return &sessionService{
		repo:      repo,
		bookings:  bookings,
		experts:   experts,
		validator: validator,
		cfg:       cfg,
		clock:     time.Now,
	}
}

func (s *sessionService) CreateForExpert(ctx context.Context, requester *auth.Identity, spec *model.SlotSpec) (*model.LiveSession, error) {
	if requester == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	expert, err := s.experts.FindByExternalID(ctx, requester.Subject)
	if err != nil {
		if errors.Is(err, expertserrors.ErrNotFound) {
			return nil, apperrors.Forbidden("Only experts can create live sessions")
		}
		return nil, apperrors.Internal("Failed to retrieve expert", err)
	}
	if !expert.Available() {
		return nil, apperrors.Forbidden("Inactive experts cannot create live sessions")
	}

	return s.createSlot(ctx, expert, spec)
}

func (s *sessionService) CreateForAdmin(ctx context.Context, requester *auth.Identity, spec *model.SlotSpec) (*model.LiveSession, error) {
	if requester == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if !requester.IsAdmin() {
		return nil, apperrors.Forbidden("Admin access required")
	}
	if spec == nil || spec.ExpertID == "" {
		return nil, apperrors.MissingFields("expert_id")
	}

	expert, err := s.experts.FindByID(ctx, spec.ExpertID)
	if err != nil {
		if errors.Is(err, expertserrors.ErrNotFound) || errors.Is(err, expertserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Expert", spec.ExpertID)
		}
		return nil, apperrors.Internal("Failed to retrieve expert", err)
	}

	return s.createSlot(ctx, expert, spec)
}

// createSlot validates spec in a fixed order, each failure with its own
// code, and stores an upcoming slot owned by expert.
func (s *sessionService) createSlot(ctx context.Context, expert *model.Expert, spec *model.SlotSpec) (*model.LiveSession, error) {
	if spec == nil {
		return nil, apperrors.MissingFields("title", "scheduled_at")
	}
	spec.Title = sanitizer.SanitizeText(spec.Title)
	spec.Description = sanitizer.SanitizeMultiline(spec.Description)
	spec.SessionType = sanitizer.SanitizeText(spec.SessionType)

	var missing []string
	if spec.Title == "" {
		missing = append(missing, "title")
	}
	if spec.ScheduledAt == "" {
		missing = append(missing, "scheduled_at")
	}
	if len(missing) > 0 {
		return nil, apperrors.MissingFields(missing...)
	}

	scheduledAt, err := model.ParseScheduleTime(spec.ScheduledAt)
	if err != nil {
		return nil, apperrors.InvalidDate("scheduled_at is not a valid date")
	}
	if !scheduledAt.After(s.clock()) {
		return nil, apperrors.PastSchedule("scheduled_at must be in the future")
	}

	duration, ok := spec.Duration.PositiveInt()
	if !ok {
		return nil, apperrors.InvalidDuration("duration must be a positive whole number of minutes")
	}
	maxStudents, ok := spec.MaxStudents.PositiveInt()
	if !ok {
		return nil, apperrors.InvalidCapacity("max_students must be a positive whole number")
	}

	if err := s.validator.ValidateLimits(spec); err != nil {
		s.cfg.Log.Warn("Live session validation failed", "error", err)
		return nil, apperrors.Validation("Live session validation failed", map[string]any{"errors": err})
	}

	sessionType := spec.SessionType
	if sessionType == "" {
		sessionType = model.DefaultSessionType
	}

	session := &model.LiveSession{
		ExpertID:    expert.ID,
		Title:       spec.Title,
		Description: spec.Description,
		SessionType: sessionType,
		ScheduledAt: scheduledAt,
		Duration:    duration,
		MaxStudents: maxStudents,
		Status:      model.SessionUpcoming,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		s.cfg.Log.Error("Failed to create live session", "expert_id", expert.ID, "error", err)
		return nil, apperrors.Internal("Failed to create live session", err)
	}

	s.cfg.Log.Info("Live session created",
		"id", session.ID,
		"expert_id", expert.ID,
		"scheduled_at", session.ScheduledAt,
		"max_students", session.MaxStudents,
	)
	var zero int64
	session.BookingCount = &zero
	session.Expert = expert.Summary()
	return session, nil
}

// ListAvailable returns future upcoming slots that still have a free seat,
// soonest first. Seats are counted from live bookings on every call.
func (s *sessionService) ListAvailable(ctx context.Context, expertID string) ([]*model.LiveSession, error) {
	sessions, err := s.repo.FindUpcoming(ctx, s.clock(), expertID)
	if err != nil {
		s.cfg.Log.Error("Failed to list upcoming live sessions", "expert_id", expertID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve live sessions", err)
	}

	if err := s.annotate(ctx, sessions, true); err != nil {
		return nil, err
	}

	available := make([]*model.LiveSession, 0, len(sessions))
	for _, ls := range sessions {
		if *ls.BookingCount < int64(ls.MaxStudents) {
			available = append(available, ls)
		}
	}
	return available, nil
}

func (s *sessionService) ListForExpert(ctx context.Context, requester *auth.Identity) ([]*model.LiveSession, error) {
	if requester == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	expert, err := s.experts.FindByExternalID(ctx, requester.Subject)
	if err != nil {
		if errors.Is(err, expertserrors.ErrNotFound) {
			return nil, apperrors.Forbidden("Only experts can view their live sessions")
		}
		return nil, apperrors.Internal("Failed to retrieve expert", err)
	}

	sessions, err := s.repo.FindByExpert(ctx, expert.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve live sessions", err)
	}
	if err := s.annotate(ctx, sessions, false); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *sessionService) ListAll(ctx context.Context, requester *auth.Identity) ([]*model.LiveSession, error) {
	if requester == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if !requester.IsAdmin() {
		return nil, apperrors.Forbidden("Admin access required")
	}

	sessions, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve live sessions", err)
	}
	if err := s.annotate(ctx, sessions, true); err != nil {
		return nil, err
	}
	return sessions, nil
}

// annotate sets BookingCount on every slot and, when withExperts is set,
// the owning expert's display fields.
func (s *sessionService) annotate(ctx context.Context, sessions []*model.LiveSession, withExperts bool) error {
	ids := make([]string, 0, len(sessions))
	expertIDs := make([]string, 0, len(sessions))
	seen := make(map[string]struct{})
	for _, ls := range sessions {
		ids = append(ids, ls.ID)
		if _, ok := seen[ls.ExpertID]; !ok {
			seen[ls.ExpertID] = struct{}{}
			expertIDs = append(expertIDs, ls.ExpertID)
		}
	}

	counts, err := s.bookings.CountActiveBySessions(ctx, ids)
	if err != nil {
		s.cfg.Log.Error("Failed to count live session bookings", "error", err)
		return apperrors.Internal("Failed to count live session bookings", err)
	}
	for _, ls := range sessions {
		n := counts[ls.ID]
		ls.BookingCount = &n
	}

	if !withExperts {
		return nil
	}

	experts, err := s.experts.FindByIDs(ctx, expertIDs)
	if err != nil {
		return apperrors.Internal("Failed to retrieve experts", err)
	}
	byID := make(map[string]*model.ExpertSummary, len(experts))
	for _, e := range experts {
		byID[e.ID] = e.Summary()
	}
	for _, ls := range sessions {
		ls.Expert = byID[ls.ExpertID]
	}
	return nil
}
