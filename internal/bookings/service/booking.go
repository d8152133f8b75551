package service

import (
	"context"
	"errors"

	bookingserrors "counsel/internal/bookings/errors"
	"counsel/internal/bookings/events"
	"counsel/internal/bookings/repository"
	"counsel/internal/bookings/validator"
	expertserrors "counsel/internal/experts/errors"
	expertsrepo "counsel/internal/experts/repository"
	sessionserrors "counsel/internal/sessions/errors"
	sessionsrepo "counsel/internal/sessions/repository"
	usersservice "counsel/internal/users/service"
	"counsel/pkg/auth"
	"counsel/pkg/config"
	apperrors "counsel/pkg/errors"
	"counsel/pkg/metrics"
	"counsel/pkg/model"
	"counsel/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	kindGroup      = "group"
	kindIndividual = "individual"
)

type BookingService interface {
	Create(ctx context.Context, requester *auth.Identity, req *model.BookingRequest) (*model.Booking, error)
	ListForStudent(ctx context.Context, requester *auth.Identity) ([]*model.Booking, error)
	ListForExpert(ctx context.Context, requester *auth.Identity) (*model.ExpertDashboard, error)
	ListForExpertByID(ctx context.Context, requester *auth.Identity, expertID string) (*model.ExpertDashboard, error)
	UpdateStatus(ctx context.Context, requester *auth.Identity, id string, status model.BookingStatus) (*model.Booking, error)
}

type Dependencies struct {
	Repo      repository.BookingRepository
	Sessions  sessionsrepo.SessionRepository
	Experts   expertsrepo.ExpertRepository
	Users     usersservice.UserService
	Validator *validator.BookingValidator
	Publisher events.Publisher
	Recorder  metrics.Recorder
}

type bookingService struct {
	repo      repository.BookingRepository
	sessions  sessionsrepo.SessionRepository
	experts   expertsrepo.ExpertRepository
	users     usersservice.UserService
	validator *validator.BookingValidator
	publisher events.Publisher
	recorder  metrics.Recorder
	cfg       *config.Config
}

func NewBookingService(deps Dependencies, cfg *config.Config) BookingService {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.Nop{}
	}
	return &bookingService{
		repo:      deps.Repo,
		sessions:  deps.Sessions,
		experts:   deps.Experts,
		users:     deps.Users,
		validator: deps.Validator,
		publisher: deps.Publisher,
		recorder:  deps.Recorder,
		cfg:       cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, requester *auth.Identity, req *model.BookingRequest) (*model.Booking, error) {
	booking, err := s.create(ctx, requester, req)
	if err != nil {
		if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeInternal {
			s.recorder.BookingRejected(appErr.Code)
		}
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) create(ctx context.Context, requester *auth.Identity, req *model.BookingRequest) (*model.Booking, error) {
	if requester == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if req == nil {
		return nil, apperrors.InvalidInput("Request body is required")
	}

	req.Notes = sanitizer.SanitizeMultiline(req.Notes)
	req.SessionType = sanitizer.SanitizeText(req.SessionType)
	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"errors": err})
	}

	if req.LiveSessionID != "" {
		return s.createGroupBooking(ctx, requester, req)
	}
	return s.createIndividualBooking(ctx, requester, req)
}

func (s *bookingService) createGroupBooking(ctx context.Context, requester *auth.Identity, req *model.BookingRequest) (*model.Booking, error) {
	student, err := s.users.EnsureUser(ctx, requester)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.FindByID(ctx, req.LiveSessionID)
	if err != nil {
		if errors.Is(err, sessionserrors.ErrNotFound) || errors.Is(err, sessionserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Live session", req.LiveSessionID)
		}
		return nil, apperrors.Internal("Failed to retrieve live session", err)
	}
	if !session.Status.AcceptsBookings() {
		return nil, apperrors.InvalidState("Live session is not open for registration")
	}

	notes := req.Notes
	if notes == "" {
		notes = model.GroupBookingNotes
	}
	booking := &model.Booking{
		StudentID:     student.ID,
		ExpertID:      session.ExpertID,
		LiveSessionID: session.ID,
		SessionType:   session.SessionType,
		ScheduledAt:   session.ScheduledAt,
		Duration:      session.Duration,
		Notes:         notes,
		Status:        model.BookingConfirmed,
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return s.reserveSeat(sessCtx, session, booking)
	})
	if err != nil {
		if !apperrors.IsAppError(err) {
			err = apperrors.Internal("Failed to create booking", err)
		}
		s.cfg.Log.Warn("Group booking rejected",
			"live_session_id", session.ID,
			"student_id", student.ID,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Group booking created",
		"id", booking.ID,
		"live_session_id", session.ID,
		"student_id", student.ID,
	)
	s.recorder.BookingCreated(kindGroup)
	s.finalize(ctx, booking, student, session)
	return booking, nil
}

// reserveSeat runs inside the booking transaction. Claiming the slot first
// makes concurrent reservations for it conflict, so the seat count and the
// duplicate check below see every committed booking.
func (s *bookingService) reserveSeat(ctx mongo.SessionContext, session *model.LiveSession, booking *model.Booking) error {
	if err := s.sessions.ClaimBookingTurn(ctx, session.ID); err != nil {
		if errors.Is(err, sessionserrors.ErrNotBookable) {
			return apperrors.InvalidState("Live session is not open for registration")
		}
		return apperrors.Internal("Failed to reserve live session", err)
	}

	held, err := s.repo.CountActiveBySession(ctx, session.ID)
	if err != nil {
		return apperrors.Internal("Failed to count live session bookings", err)
	}
	if held >= int64(session.MaxStudents) {
		return apperrors.Full("Live session is full")
	}

	_, err = s.repo.FindByStudentAndSession(ctx, booking.StudentID, session.ID)
	switch {
	case err == nil:
		return apperrors.Duplicate("You are already registered for this live session")
	case !errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.Internal("Failed to check existing registration", err)
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		if errors.Is(err, bookingserrors.ErrDuplicate) {
			return apperrors.Duplicate("You are already registered for this live session")
		}
		return apperrors.Internal("Failed to create booking", err)
	}
	return nil
}

// createIndividualBooking is the legacy one-to-one path. It checks presence
// and date format only.
func (s *bookingService) createIndividualBooking(ctx context.Context, requester *auth.Identity, req *model.BookingRequest) (*model.Booking, error) {
	var missing []string
	if req.ExpertID == "" {
		missing = append(missing, "expert_id")
	}
	if req.SessionType == "" {
		missing = append(missing, "session_type")
	}
	if req.ScheduledAt == "" {
		missing = append(missing, "scheduled_at")
	}
	if len(missing) > 0 {
		return nil, apperrors.MissingFields(missing...)
	}

	scheduledAt, err := model.ParseScheduleTime(req.ScheduledAt)
	if err != nil {
		return nil, apperrors.InvalidDate("scheduled_at is not a valid date")
	}

	duration := model.DefaultBookingDuration
	if !req.Duration.IsEmpty() {
		d, ok := req.Duration.PositiveInt()
		if !ok {
			return nil, apperrors.InvalidDuration("duration must be a positive whole number of minutes")
		}
		duration = d
	}

	expert, err := s.experts.FindByID(ctx, req.ExpertID)
	if err != nil {
		if errors.Is(err, expertserrors.ErrNotFound) || errors.Is(err, expertserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Expert", req.ExpertID)
		}
		return nil, apperrors.Internal("Failed to retrieve expert", err)
	}

	student, err := s.users.EnsureUser(ctx, requester)
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		StudentID:   student.ID,
		ExpertID:    expert.ID,
		SessionType: req.SessionType,
		ScheduledAt: scheduledAt,
		Duration:    duration,
		Notes:       req.Notes,
		Status:      model.BookingPending,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to create booking", "student_id", student.ID, "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Individual booking created",
		"id", booking.ID,
		"expert_id", expert.ID,
		"student_id", student.ID,
	)
	s.recorder.BookingCreated(kindIndividual)
	booking.Expert = expert.Summary()
	booking.Student = student.Summary()
	s.notify(ctx, newBookingEvent(booking, student, expert, nil))
	return booking, nil
}

// finalize attaches display fields and publishes the notification for a
// committed group booking. Failures here are logged only.
func (s *bookingService) finalize(ctx context.Context, booking *model.Booking, student *model.User, session *model.LiveSession) {
	booking.Student = student.Summary()

	expert, err := s.experts.FindByID(ctx, booking.ExpertID)
	if err != nil {
		s.cfg.Log.Warn("Failed to load expert for booking", "id", booking.ID, "expert_id", booking.ExpertID, "error", err)
	} else {
		booking.Expert = expert.Summary()
	}

	s.notify(ctx, newBookingEvent(booking, student, expert, session))
}

// notify publishes on a context detached from the request and bounded by the
// notification timeout. It never fails the caller.
func (s *bookingService) notify(ctx context.Context, event *model.BookingEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotificationTimeout)
	defer cancel()

	if err := s.publisher.PublishBookingCreated(ctx, event); err != nil {
		reason := "publish_error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		s.recorder.NotificationFailed(reason)
		s.cfg.Log.Warn("Failed to publish booking notification",
			"booking_id", event.BookingID,
			"reason", reason,
			"error", err,
		)
	}
}

func newBookingEvent(b *model.Booking, student *model.User, expert *model.Expert, session *model.LiveSession) *model.BookingEvent {
	event := &model.BookingEvent{
		BookingID:     b.ID,
		LiveSessionID: b.LiveSessionID,
		SessionType:   b.SessionType,
		Status:        b.Status,
		ScheduledAt:   b.ScheduledAt,
		Duration:      b.Duration,
		Notes:         b.Notes,
		StudentName:   student.FullName(),
		StudentEmail:  student.Email,
		CreatedAt:     b.CreatedAt,
	}
	if session != nil {
		event.SessionTitle = session.Title
	}
	if expert != nil {
		event.ExpertName = expert.FullName()
		event.ExpertEmail = expert.Email
	}
	return event
}

func (s *bookingService) ListForStudent(ctx context.Context, requester *auth.Identity) ([]*model.Booking, error) {
	if requester == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	student, err := s.users.FindByExternalID(ctx, requester.Subject)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return []*model.Booking{}, nil
	}

	bookings, err := s.repo.FindByStudent(ctx, student.ID)
	if err != nil {
		s.cfg.Log.Error("Failed to list student bookings", "student_id", student.ID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	if err := s.attachExperts(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *bookingService) attachExperts(ctx context.Context, bookings []*model.Booking) error {
	ids := uniqueIDs(bookings, func(b *model.Booking) string { return b.ExpertID })
	experts, err := s.experts.FindByIDs(ctx, ids)
	if err != nil {
		return apperrors.Internal("Failed to retrieve experts", err)
	}

	byID := make(map[string]*model.ExpertSummary, len(experts))
	for _, e := range experts {
		byID[e.ID] = e.Summary()
	}
	for _, b := range bookings {
		b.Expert = byID[b.ExpertID]
	}
	return nil
}

func (s *bookingService) ListForExpert(ctx context.Context, requester *auth.Identity) (*model.ExpertDashboard, error) {
	if requester == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	expert, err := s.experts.FindByExternalID(ctx, requester.Subject)
	if err != nil {
		if errors.Is(err, expertserrors.ErrNotFound) {
			return nil, apperrors.Forbidden("Only experts can view expert bookings")
		}
		return nil, apperrors.Internal("Failed to retrieve expert", err)
	}
	return s.dashboardFor(ctx, expert)
}

// ListForExpertByID is the admin view of any expert's bookings and live
// sessions, archived experts included.
func (s *bookingService) ListForExpertByID(ctx context.Context, requester *auth.Identity, expertID string) (*model.ExpertDashboard, error) {
	if requester == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if !requester.IsAdmin() {
		return nil, apperrors.Forbidden("Admin access required")
	}

	expert, err := s.experts.FindByID(ctx, expertID)
	if err != nil {
		if errors.Is(err, expertserrors.ErrNotFound) || errors.Is(err, expertserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Expert", expertID)
		}
		return nil, apperrors.Internal("Failed to retrieve expert", err)
	}

	dashboard, err := s.dashboardFor(ctx, expert)
	if err != nil {
		return nil, err
	}
	dashboard.Expert = expert
	return dashboard, nil
}

func (s *bookingService) dashboardFor(ctx context.Context, expert *model.Expert) (*model.ExpertDashboard, error) {
	bookings, err := s.repo.FindByExpert(ctx, expert.ID)
	if err != nil {
		s.cfg.Log.Error("Failed to list expert bookings", "expert_id", expert.ID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	students, err := s.users.SummariesByID(ctx, uniqueIDs(bookings, func(b *model.Booking) string { return b.StudentID }))
	if err != nil {
		return nil, err
	}
	for _, b := range bookings {
		b.Student = students[b.StudentID]
	}

	sessions, err := s.sessions.FindByExpert(ctx, expert.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve live sessions", err)
	}

	ids := make([]string, 0, len(sessions))
	for _, ls := range sessions {
		ids = append(ids, ls.ID)
	}
	counts, err := s.repo.CountActiveBySessions(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("Failed to count live session bookings", err)
	}
	for _, ls := range sessions {
		n := counts[ls.ID]
		ls.BookingCount = &n
	}

	return &model.ExpertDashboard{
		Bookings:     bookings,
		LiveSessions: sessions,
	}, nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, requester *auth.Identity, id string, status model.BookingStatus) (*model.Booking, error) {
	if requester == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if !status.IsUserSettable() {
		return nil, apperrors.InvalidInput("status must be one of: cancelled, completed")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	allowed, err := s.isParticipant(ctx, requester, booking)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.Forbidden("You can only update your own bookings")
	}

	if !booking.Status.CanTransitionTo(status) {
		return nil, apperrors.InvalidState("Booking cannot move from " + string(booking.Status) + " to " + string(status))
	}

	updated, err := s.repo.UpdateStatus(ctx, id, booking.Status, status)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			return nil, apperrors.InvalidState("Booking was updated concurrently, reload and retry")
		}
		s.cfg.Log.Error("Failed to update booking status", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update booking", err)
	}

	s.recorder.BookingStatusChanged(string(status))
	s.cfg.Log.Info("Booking status updated",
		"id", id,
		"from", booking.Status,
		"to", status,
		"by", requester.Subject,
	)
	return updated, nil
}

// isParticipant reports whether the requester is the booking's student or
// its expert.
func (s *bookingService) isParticipant(ctx context.Context, requester *auth.Identity, booking *model.Booking) (bool, error) {
	student, err := s.users.FindByExternalID(ctx, requester.Subject)
	if err != nil {
		return false, err
	}
	if student != nil && student.ID == booking.StudentID {
		return true, nil
	}

	expert, err := s.experts.FindByExternalID(ctx, requester.Subject)
	if err != nil {
		if errors.Is(err, expertserrors.ErrNotFound) {
			return false, nil
		}
		return false, apperrors.Internal("Failed to retrieve expert", err)
	}
	return expert.ID == booking.ExpertID, nil
}

func uniqueIDs(bookings []*model.Booking, key func(*model.Booking) string) []string {
	seen := make(map[string]struct{}, len(bookings))
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		id := key(b)
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
