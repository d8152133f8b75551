package model

import "time"

const DefaultBookingDuration = 60

type Booking struct {
	ID            string        `json:"id,omitempty" bson:"_id,omitempty"`
	StudentID     string        `json:"student_id" bson:"student_id"`
	ExpertID      string        `json:"expert_id" bson:"expert_id"`
	LiveSessionID string        `json:"live_session_id,omitempty" bson:"live_session_id,omitempty"`
	SessionType   string        `json:"session_type" bson:"session_type"`
	ScheduledAt   time.Time     `json:"scheduled_at" bson:"scheduled_at"`
	Duration      int           `json:"duration" bson:"duration"`
	Notes         string        `json:"notes" bson:"notes"`
	Status        BookingStatus `json:"status" bson:"status"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" bson:"updated_at"`

	Expert  *ExpertSummary  `json:"expert,omitempty" bson:"-"`
	Student *StudentSummary `json:"student,omitempty" bson:"-"`
}

func (b *Booking) IsGroup() bool {
	return b.LiveSessionID != ""
}

// BookingRequest is the create-booking body. A non-empty LiveSessionID selects
// the group path; otherwise the individual fields are required.
type BookingRequest struct {
	LiveSessionID string        `json:"live_session_id,omitempty" validate:"omitempty,max=64"`
	ExpertID      string        `json:"expert_id,omitempty"`
	SessionType   string        `json:"session_type,omitempty" validate:"omitempty,max=50"`
	ScheduledAt   string        `json:"scheduled_at,omitempty"`
	Duration      NumericString `json:"duration,omitempty"`
	Notes         string        `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type BookingStatusUpdate struct {
	Status BookingStatus `json:"status"`
}

// ExpertDashboard lists an expert's bookings and live sessions. Expert is only
// set on the admin view.
type ExpertDashboard struct {
	Bookings     []*Booking     `json:"bookings"`
	LiveSessions []*LiveSession `json:"live_sessions"`
	Expert       *Expert        `json:"expert,omitempty"`
}

// BookingEvent is published on the booking events topic after a booking is stored.
type BookingEvent struct {
	BookingID     string        `json:"booking_id"`
	LiveSessionID string        `json:"live_session_id,omitempty"`
	SessionTitle  string        `json:"session_title,omitempty"`
	SessionType   string        `json:"session_type"`
	Status        BookingStatus `json:"status"`
	ScheduledAt   time.Time     `json:"scheduled_at"`
	Duration      int           `json:"duration"`
	Notes         string        `json:"notes,omitempty"`
	StudentName   string        `json:"student_name"`
	StudentEmail  string        `json:"student_email"`
	ExpertName    string        `json:"expert_name"`
	ExpertEmail   string        `json:"expert_email,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}
