// Package storetest provides in-memory repositories for service tests.
// Every method runs under one lock, and transactions are serialised, which
// models MongoDB's write conflict on the claimed slot document.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	bookingserrors "counsel/internal/bookings/errors"
	bookingsrepo "counsel/internal/bookings/repository"
	expertserrors "counsel/internal/experts/errors"
	expertsrepo "counsel/internal/experts/repository"
	sessionserrors "counsel/internal/sessions/errors"
	sessionsrepo "counsel/internal/sessions/repository"
	userserrors "counsel/internal/users/errors"
	usersrepo "counsel/internal/users/repository"
	mongotx "counsel/pkg/db/mongo"
	"counsel/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users    map[string]*model.User
	experts  map[string]*model.Expert
	sessions map[string]*model.LiveSession
	bookings map[string]*model.Booking

	// abortCommits makes the next transactions roll back after their
	// callback and run it again, as the driver does on a transient commit error.
	abortCommits int
}

func New() *Store {
	return &Store{
		users:    make(map[string]*model.User),
		experts:  make(map[string]*model.Expert),
		sessions: make(map[string]*model.LiveSession),
		bookings: make(map[string]*model.Booking),
	}
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

func validID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// AddUser stores a copy of u and returns it with an ID assigned.
func (s *Store) AddUser(u model.User) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = newID()
	}
	s.users[u.ID] = &u
	c := u
	return &c
}

func (s *Store) AddExpert(e model.Expert) *model.Expert {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = newID()
	}
	s.experts[e.ID] = &e
	c := e
	return &c
}

func (s *Store) AddSession(ls model.LiveSession) *model.LiveSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ls.ID == "" {
		ls.ID = newID()
	}
	s.sessions[ls.ID] = &ls
	c := ls
	return &c
}

func (s *Store) AddBooking(b model.Booking) *model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = newID()
	}
	s.bookings[b.ID] = &b
	c := b
	return &c
}

// Booking returns a copy of the stored booking, or nil.
func (s *Store) Booking(id string) *model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bookings[id]; ok {
		c := *b
		return &c
	}
	return nil
}

func (s *Store) Expert(id string) *model.Expert {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.experts[id]; ok {
		c := *e
		return &c
	}
	return nil
}

func (s *Store) UserByExternalID(externalID string) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ExternalID == externalID {
			c := *u
			return &c
		}
	}
	return nil
}

// BookingsForSession returns copies of every booking of the live session.
func (s *Store) BookingsForSession(sessionID string) []*model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Booking
	for _, b := range s.bookings {
		if b.LiveSessionID == sessionID {
			c := *b
			out = append(out, &c)
		}
	}
	return out
}

func (s *Store) CountUsers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// users

type Users struct{ s *Store }

func (s *Store) Users() usersrepo.UserRepository { return &Users{s: s} }

func (r *Users) Upsert(_ context.Context, u *model.User) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.ExternalID == u.ExternalID {
			c := *existing
			return &c, nil
		}
	}
	stored := *u
	stored.ID = newID()
	stored.CreatedAt = now()
	stored.UpdatedAt = stored.CreatedAt
	r.s.users[stored.ID] = &stored
	c := stored
	return &c, nil
}

func (r *Users) FindByExternalID(_ context.Context, externalID string) (*model.User, error) {
	if u := r.s.UserByExternalID(externalID); u != nil {
		return u, nil
	}
	return nil, userserrors.ErrNotFound
}

func (r *Users) FindByIDs(_ context.Context, ids []string) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.User{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *Users) UpdateEmail(_ context.Context, id string, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return userserrors.ErrNotFound
	}
	u.Email = email
	u.UpdatedAt = now()
	return nil
}

// experts

type Experts struct{ s *Store }

func (s *Store) Experts() expertsrepo.ExpertRepository { return &Experts{s: s} }

func (r *Experts) Create(_ context.Context, e *model.Expert) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.experts {
		if strings.EqualFold(existing.Email, e.Email) ||
			(e.ExternalID != "" && existing.ExternalID == e.ExternalID) {
			return expertserrors.ErrDuplicate
		}
	}
	e.ID = newID()
	e.CreatedAt = now()
	e.UpdatedAt = e.CreatedAt
	c := *e
	r.s.experts[e.ID] = &c
	return nil
}

func (r *Experts) FindByID(_ context.Context, id string) (*model.Expert, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", expertserrors.ErrInvalidID, id)
	}
	if e := r.s.Expert(id); e != nil {
		return e, nil
	}
	return nil, expertserrors.ErrNotFound
}

func (r *Experts) findFirst(match func(*model.Expert) bool) (*model.Expert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.experts {
		if match(e) {
			c := *e
			return &c, nil
		}
	}
	return nil, expertserrors.ErrNotFound
}

func (r *Experts) FindByExternalID(_ context.Context, externalID string) (*model.Expert, error) {
	return r.findFirst(func(e *model.Expert) bool { return e.ExternalID != "" && e.ExternalID == externalID })
}

func (r *Experts) FindByEmail(_ context.Context, email string) (*model.Expert, error) {
	return r.findFirst(func(e *model.Expert) bool { return strings.EqualFold(e.Email, email) })
}

func (r *Experts) FindByIDs(_ context.Context, ids []string) ([]*model.Expert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Expert{}
	for _, id := range ids {
		if e, ok := r.s.experts[id]; ok {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *Experts) filter(match func(*model.Expert) bool) []*model.Expert {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Expert{}
	for _, e := range r.s.experts {
		if match(e) {
			c := *e
			out = append(out, &c)
		}
	}
	return out
}

func (r *Experts) FindActive(_ context.Context) ([]*model.Expert, error) {
	out := r.filter(func(e *model.Expert) bool { return e.IsActive && !e.IsDeleted })
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Experts) FindAll(_ context.Context, deleted bool) ([]*model.Expert, error) {
	out := r.filter(func(e *model.Expert) bool { return e.IsDeleted == deleted })
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *Experts) Update(_ context.Context, e *model.Expert) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.experts[e.ID]
	if !ok {
		return expertserrors.ErrNotFound
	}
	if e.ExternalID != "" {
		for id, other := range r.s.experts {
			if id != e.ID && other.ExternalID == e.ExternalID {
				return expertserrors.ErrDuplicate
			}
		}
		stored.ExternalID = e.ExternalID
	}
	e.UpdatedAt = now()
	stored.Bio = e.Bio
	stored.Specialization = e.Specialization
	stored.Experience = e.Experience
	stored.IsActive = e.IsActive
	stored.IsDeleted = e.IsDeleted
	stored.UpdatedAt = e.UpdatedAt
	return nil
}

func (r *Experts) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.experts[id]; !ok {
		return expertserrors.ErrNotFound
	}
	delete(r.s.experts, id)
	return nil
}

// live sessions

type Sessions struct{ s *Store }

func (s *Store) Sessions() sessionsrepo.SessionRepository { return &Sessions{s: s} }

func (r *Sessions) Create(_ context.Context, ls *model.LiveSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ls.ID = newID()
	ls.CreatedAt = now()
	c := *ls
	r.s.sessions[ls.ID] = &c
	return nil
}

func (r *Sessions) FindByID(_ context.Context, id string) (*model.LiveSession, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", sessionserrors.ErrInvalidID, id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ls, ok := r.s.sessions[id]
	if !ok {
		return nil, sessionserrors.ErrNotFound
	}
	c := *ls
	return &c, nil
}

func (r *Sessions) collect(match func(*model.LiveSession) bool, ascending bool) []*model.LiveSession {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.LiveSession{}
	for _, ls := range r.s.sessions {
		if match(ls) {
			c := *ls
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ScheduledAt.After(out[j].ScheduledAt)
	})
	return out
}

func (r *Sessions) FindUpcoming(_ context.Context, after time.Time, expertID string) ([]*model.LiveSession, error) {
	return r.collect(func(ls *model.LiveSession) bool {
		return ls.Status == model.SessionUpcoming &&
			ls.ScheduledAt.After(after) &&
			(expertID == "" || ls.ExpertID == expertID)
	}, true), nil
}

func (r *Sessions) FindByExpert(_ context.Context, expertID string) ([]*model.LiveSession, error) {
	return r.collect(func(ls *model.LiveSession) bool { return ls.ExpertID == expertID }, false), nil
}

func (r *Sessions) FindAll(_ context.Context) ([]*model.LiveSession, error) {
	return r.collect(func(*model.LiveSession) bool { return true }, false), nil
}

func (r *Sessions) CountByExpert(_ context.Context, expertID string) (int64, error) {
	return int64(len(r.collect(func(ls *model.LiveSession) bool { return ls.ExpertID == expertID }, false))), nil
}

func (r *Sessions) ClaimBookingTurn(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ls, ok := r.s.sessions[id]
	if !ok || ls.Status != model.SessionUpcoming {
		return sessionserrors.ErrNotBookable
	}
	ls.BookingSeq++
	return nil
}

// SetSessionStatus changes a slot's status behind the services' back.
func (s *Store) SetSessionStatus(id string, status model.SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ls, ok := s.sessions[id]; ok {
		ls.Status = status
	}
}

// bookings

type Bookings struct{ s *Store }

func (s *Store) Bookings() bookingsrepo.BookingRepository { return &Bookings{s: s} }

func (r *Bookings) Create(_ context.Context, b *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b.LiveSessionID != "" {
		for _, existing := range r.s.bookings {
			if existing.StudentID == b.StudentID && existing.LiveSessionID == b.LiveSessionID {
				return bookingserrors.ErrDuplicate
			}
		}
	}
	b.ID = newID()
	b.CreatedAt = now()
	b.UpdatedAt = b.CreatedAt
	c := *b
	r.s.bookings[b.ID] = &c
	return nil
}

func (r *Bookings) FindByID(_ context.Context, id string) (*model.Booking, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	if b := r.s.Booking(id); b != nil {
		return b, nil
	}
	return nil, bookingserrors.ErrNotFound
}

func (r *Bookings) collect(match func(*model.Booking) bool) []*model.Booking {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Booking{}
	for _, b := range r.s.bookings {
		if match(b) {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	return out
}

func (r *Bookings) FindByStudent(_ context.Context, studentID string) ([]*model.Booking, error) {
	return r.collect(func(b *model.Booking) bool { return b.StudentID == studentID }), nil
}

func (r *Bookings) FindByExpert(_ context.Context, expertID string) ([]*model.Booking, error) {
	return r.collect(func(b *model.Booking) bool { return b.ExpertID == expertID }), nil
}

func (r *Bookings) FindByStudentAndSession(_ context.Context, studentID, sessionID string) (*model.Booking, error) {
	found := r.collect(func(b *model.Booking) bool {
		return b.StudentID == studentID && b.LiveSessionID == sessionID
	})
	if len(found) == 0 {
		return nil, bookingserrors.ErrNotFound
	}
	return found[0], nil
}

func (r *Bookings) CountActiveBySession(_ context.Context, sessionID string) (int64, error) {
	return int64(len(r.collect(func(b *model.Booking) bool {
		return b.LiveSessionID == sessionID && b.Status.HoldsSeat()
	}))), nil
}

func (r *Bookings) CountActiveBySessions(_ context.Context, sessionIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, id := range sessionIDs {
		n, _ := r.CountActiveBySession(context.Background(), id)
		if n > 0 {
			counts[id] = n
		}
	}
	return counts, nil
}

func (r *Bookings) CountCompletedByExperts(_ context.Context, expertIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, id := range expertIDs {
		n := len(r.collect(func(b *model.Booking) bool {
			return b.ExpertID == id && b.Status == model.BookingCompleted
		}))
		if n > 0 {
			counts[id] = int64(n)
		}
	}
	return counts, nil
}

func (r *Bookings) CountByExpert(_ context.Context, expertID string) (int64, error) {
	return int64(len(r.collect(func(b *model.Booking) bool { return b.ExpertID == expertID }))), nil
}

func (r *Bookings) UpdateStatus(_ context.Context, id string, from, to model.BookingStatus) (*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok || b.Status != from {
		return nil, bookingserrors.ErrStatusChanged
	}
	b.Status = to
	b.UpdatedAt = now()
	c := *b
	return &c, nil
}

func (r *Bookings) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()

	sessCtx := mongo.NewSessionContext(ctx, nil)
	for {
		sessions, bookings := r.s.snapshot()
		if err := fn(sessCtx); err != nil {
			r.s.restore(sessions, bookings)
			return err
		}
		if !r.s.takeAbort() {
			return nil
		}
		r.s.restore(sessions, bookings)
	}
}

// AbortNextCommits rolls back the next n successful transactions once each
// and reruns their callbacks.
func (s *Store) AbortNextCommits(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abortCommits = n
}

func (s *Store) takeAbort() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.abortCommits == 0 {
		return false
	}
	s.abortCommits--
	return true
}

func (s *Store) snapshot() (map[string]model.LiveSession, map[string]model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := make(map[string]model.LiveSession, len(s.sessions))
	for id, ls := range s.sessions {
		sessions[id] = *ls
	}
	bookings := make(map[string]model.Booking, len(s.bookings))
	for id, b := range s.bookings {
		bookings[id] = *b
	}
	return sessions, bookings
}

func (s *Store) restore(sessions map[string]model.LiveSession, bookings map[string]model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*model.LiveSession, len(sessions))
	for id, ls := range sessions {
		c := ls
		s.sessions[id] = &c
	}
	s.bookings = make(map[string]*model.Booking, len(bookings))
	for id, b := range bookings {
		c := b
		s.bookings[id] = &c
	}
}
