package model

import "time"

const (
	DefaultSessionType = "group_counselling"
	GroupBookingNotes  = "Group Session Registration"
)

type LiveSession struct {
	ID          string        `json:"id,omitempty" bson:"_id,omitempty"`
	ExpertID    string        `json:"expert_id" bson:"expert_id"`
	Title       string        `json:"title" bson:"title"`
	Description string        `json:"description" bson:"description"`
	SessionType string        `json:"session_type" bson:"session_type"`
	ScheduledAt time.Time     `json:"scheduled_at" bson:"scheduled_at"`
	Duration    int           `json:"duration" bson:"duration"`
	MaxStudents int           `json:"max_students" bson:"max_students"`
	Status      SessionStatus `json:"status" bson:"status"`
	BookingSeq  int64         `json:"-" bson:"booking_seq"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at"`

	BookingCount *int64         `json:"booking_count,omitempty" bson:"-"`
	Expert       *ExpertSummary `json:"expert,omitempty" bson:"-"`
}

// SeatsLeft returns remaining capacity given the number of seat-holding bookings.
func (s *LiveSession) SeatsLeft(held int64) int64 {
	left := int64(s.MaxStudents) - held
	if left < 0 {
		return 0
	}
	return left
}

// SlotSpec is the request shape for creating a session slot. Numeric fields
// arrive as numbers or strings and are validated by the sessions service.
type SlotSpec struct {
	ExpertID    string        `json:"expert_id,omitempty"`
	Title       string        `json:"title" validate:"max=200"`
	Description string        `json:"description" validate:"max=2000"`
	SessionType string        `json:"session_type" validate:"omitempty,max=50"`
	ScheduledAt string        `json:"scheduled_at"`
	Duration    NumericString `json:"duration"`
	MaxStudents NumericString `json:"max_students"`
}
