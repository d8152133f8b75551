package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"counsel/internal/sessions/validator"
	"counsel/internal/storetest"
	"counsel/pkg/auth"
	"counsel/pkg/config"
	apperrors "counsel/pkg/errors"
	"counsel/pkg/logger"
	"counsel/pkg/model"
)

var fixedNow = time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store   *storetest.Store
	svc     *sessionService
	expert  *model.Expert
	owner   *auth.Identity
	admin   *auth.Identity
	student *auth.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Discard()
	cfg := &config.Config{Log: log}

	store := storetest.New()
	expert := store.AddExpert(model.Expert{
		ExternalID: "expert_1",
		Email:      "grace@example.com",
		FirstName:  "Grace",
		LastName:   "Hopper",
		IsActive:   true,
	})

	svc := NewSessionService(
		store.Sessions(),
		store.Bookings(),
		store.Experts(),
		validator.NewSessionValidator(log),
		cfg,
	).(*sessionService)
	svc.clock = func() time.Time { return fixedNow }

	return &fixture{
		store:   store,
		svc:     svc,
		expert:  expert,
		owner:   &auth.Identity{Subject: "expert_1"},
		admin:   &auth.Identity{Subject: "admin_1", Roles: []string{auth.RoleAdmin}},
		student: &auth.Identity{Subject: "student_1"},
	}
}

func validSpec() *model.SlotSpec {
	return &model.SlotSpec{
		Title:       "Resume review",
		Description: "Bring your CV",
		ScheduledAt: fixedNow.Add(24 * time.Hour).Format(time.RFC3339),
		Duration:    "60",
		MaxStudents: "10",
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func TestCreateForExpert_OrderedValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.SlotSpec)
		code   string
	}{
		{"missing title and date", func(s *model.SlotSpec) { s.Title = ""; s.ScheduledAt = "" }, apperrors.CodeMissingFields},
		{"markup-only title", func(s *model.SlotSpec) { s.Title = "<b></b>" }, apperrors.CodeMissingFields},
		{"unparseable date", func(s *model.SlotSpec) { s.ScheduledAt = "tomorrow" }, apperrors.CodeInvalidDate},
		{"date in the past", func(s *model.SlotSpec) { s.ScheduledAt = fixedNow.Add(-time.Hour).Format(time.RFC3339) }, apperrors.CodePastSchedule},
		{"date equal to now", func(s *model.SlotSpec) { s.ScheduledAt = fixedNow.Format(time.RFC3339) }, apperrors.CodePastSchedule},
		{"past date beats bad duration", func(s *model.SlotSpec) {
			s.ScheduledAt = fixedNow.Add(-time.Hour).Format(time.RFC3339)
			s.Duration = "0"
		}, apperrors.CodePastSchedule},
		{"zero duration", func(s *model.SlotSpec) { s.Duration = "0" }, apperrors.CodeInvalidDuration},
		{"missing duration", func(s *model.SlotSpec) { s.Duration = "" }, apperrors.CodeInvalidDuration},
		{"text duration", func(s *model.SlotSpec) { s.Duration = "an hour" }, apperrors.CodeInvalidDuration},
		{"bad duration beats bad capacity", func(s *model.SlotSpec) { s.Duration = "-5"; s.MaxStudents = "0" }, apperrors.CodeInvalidDuration},
		{"zero capacity", func(s *model.SlotSpec) { s.MaxStudents = "0" }, apperrors.CodeInvalidCapacity},
		{"negative capacity", func(s *model.SlotSpec) { s.MaxStudents = "-1" }, apperrors.CodeInvalidCapacity},
		{"title too long", func(s *model.SlotSpec) { s.Title = strings.Repeat("a", 201) }, apperrors.CodeValidation},
		{"description too long", func(s *model.SlotSpec) { s.Description = strings.Repeat("a", 2001) }, apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			spec := validSpec()
			tt.mutate(spec)

			_, err := f.svc.CreateForExpert(context.Background(), f.owner, spec)
			assertCode(t, err, tt.code)

			all, _ := f.store.Sessions().FindAll(context.Background())
			if len(all) != 0 {
				t.Errorf("rejected slot must not be stored, found %d", len(all))
			}
		})
	}
}

func TestCreateForExpert_AcceptsBoundaryValues(t *testing.T) {
	f := newFixture(t)
	spec := validSpec()
	spec.Duration = "1"
	spec.MaxStudents = "1"
	spec.ScheduledAt = fixedNow.Add(time.Minute).Format(time.RFC3339)

	session, err := f.svc.CreateForExpert(context.Background(), f.owner, spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.Status != model.SessionUpcoming {
		t.Errorf("expected upcoming, got %s", session.Status)
	}
	if session.ExpertID != f.expert.ID {
		t.Errorf("slot must be owned by the requester's expert record")
	}
	if session.Duration != 1 || session.MaxStudents != 1 {
		t.Errorf("unexpected numerics: duration=%d max=%d", session.Duration, session.MaxStudents)
	}
	if session.SessionType != model.DefaultSessionType {
		t.Errorf("expected default session type, got %q", session.SessionType)
	}
	if session.BookingCount == nil || *session.BookingCount != 0 {
		t.Errorf("new slot should report zero bookings")
	}
}

func TestCreateForExpert_Authorization(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateForExpert(context.Background(), nil, validSpec())
	assertCode(t, err, apperrors.CodeUnauthorized)

	_, err = f.svc.CreateForExpert(context.Background(), f.student, validSpec())
	assertCode(t, err, apperrors.CodeForbidden)

	f.store.AddExpert(model.Expert{ExternalID: "expert_2", Email: "old@example.com", IsActive: false})
	_, err = f.svc.CreateForExpert(context.Background(), &auth.Identity{Subject: "expert_2"}, validSpec())
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestCreateForAdmin(t *testing.T) {
	f := newFixture(t)

	spec := validSpec()
	spec.ExpertID = f.expert.ID

	_, err := f.svc.CreateForAdmin(context.Background(), f.student, spec)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.svc.CreateForAdmin(context.Background(), f.admin, validSpec())
	assertCode(t, err, apperrors.CodeMissingFields)

	unknown := validSpec()
	unknown.ExpertID = "65f0000000000000000000ff"
	_, err = f.svc.CreateForAdmin(context.Background(), f.admin, unknown)
	assertCode(t, err, apperrors.CodeNotFound)

	session, err := f.svc.CreateForAdmin(context.Background(), f.admin, spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ExpertID != f.expert.ID {
		t.Errorf("expected owner %s, got %s", f.expert.ID, session.ExpertID)
	}
}

func TestListAvailable(t *testing.T) {
	f := newFixture(t)
	other := f.store.AddExpert(model.Expert{ExternalID: "expert_9", Email: "ada@example.com", IsActive: true})

	later := f.store.AddSession(model.LiveSession{ExpertID: f.expert.ID, Title: "later", ScheduledAt: fixedNow.Add(48 * time.Hour), MaxStudents: 2, Status: model.SessionUpcoming})
	sooner := f.store.AddSession(model.LiveSession{ExpertID: other.ID, Title: "sooner", ScheduledAt: fixedNow.Add(24 * time.Hour), MaxStudents: 2, Status: model.SessionUpcoming})
	full := f.store.AddSession(model.LiveSession{ExpertID: f.expert.ID, Title: "full", ScheduledAt: fixedNow.Add(24 * time.Hour), MaxStudents: 1, Status: model.SessionUpcoming})
	f.store.AddSession(model.LiveSession{ExpertID: f.expert.ID, Title: "past", ScheduledAt: fixedNow.Add(-time.Hour), MaxStudents: 5, Status: model.SessionUpcoming})
	f.store.AddSession(model.LiveSession{ExpertID: f.expert.ID, Title: "live", ScheduledAt: fixedNow.Add(time.Hour), MaxStudents: 5, Status: model.SessionLive})

	f.store.AddBooking(model.Booking{StudentID: "s1", ExpertID: f.expert.ID, LiveSessionID: later.ID, Status: model.BookingConfirmed})
	f.store.AddBooking(model.Booking{StudentID: "s2", ExpertID: f.expert.ID, LiveSessionID: later.ID, Status: model.BookingCancelled})
	seat := f.store.AddBooking(model.Booking{StudentID: "s1", ExpertID: f.expert.ID, LiveSessionID: full.ID, Status: model.BookingConfirmed})

	sessions, err := f.svc.ListAvailable(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != sooner.ID || sessions[1].ID != later.ID {
		t.Fatalf("expected [sooner later], got %v", titles(sessions))
	}
	if *sessions[1].BookingCount != 1 {
		t.Errorf("cancelled bookings must not count, got %d", *sessions[1].BookingCount)
	}
	if sessions[0].Expert == nil || sessions[0].Expert.ID != other.ID {
		t.Errorf("expected expert display fields on slot")
	}

	filtered, _ := f.svc.ListAvailable(context.Background(), f.expert.ID)
	if len(filtered) != 1 || filtered[0].ID != later.ID {
		t.Errorf("expected only the expert's open slot, got %v", titles(filtered))
	}

	if _, err := f.store.Bookings().UpdateStatus(context.Background(), seat.ID, model.BookingConfirmed, model.BookingCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	reopened, _ := f.svc.ListAvailable(context.Background(), f.expert.ID)
	if len(reopened) != 2 {
		t.Errorf("cancelling should free the full slot immediately, got %v", titles(reopened))
	}
}

func TestListForExpertAndAll(t *testing.T) {
	f := newFixture(t)
	f.store.AddSession(model.LiveSession{ExpertID: f.expert.ID, Title: "old", ScheduledAt: fixedNow.Add(-48 * time.Hour), MaxStudents: 1, Status: model.SessionCompleted})
	f.store.AddSession(model.LiveSession{ExpertID: f.expert.ID, Title: "new", ScheduledAt: fixedNow.Add(48 * time.Hour), MaxStudents: 1, Status: model.SessionUpcoming})

	mine, err := f.svc.ListForExpert(context.Background(), f.owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := titles(mine); len(got) != 2 || got[0] != "new" {
		t.Errorf("expected newest first, got %v", got)
	}

	_, err = f.svc.ListForExpert(context.Background(), f.student)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.svc.ListAll(context.Background(), f.owner)
	assertCode(t, err, apperrors.CodeForbidden)

	all, err := f.svc.ListAll(context.Background(), f.admin)
	if err != nil || len(all) != 2 {
		t.Fatalf("admin should see every slot, got %d, %v", len(all), err)
	}
}

func titles(sessions []*model.LiveSession) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Title)
	}
	return out
}
