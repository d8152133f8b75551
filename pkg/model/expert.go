package model

import "time"

type Expert struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty"`
	ExternalID     string    `json:"external_id,omitempty" bson:"external_id,omitempty"`
	Email          string    `json:"email" bson:"email" validate:"required,email,max=254"`
	FirstName      string    `json:"first_name" bson:"first_name" validate:"required,min=1,max=100"`
	LastName       string    `json:"last_name" bson:"last_name" validate:"required,min=1,max=100"`
	Specialization []string  `json:"specialization" bson:"specialization" validate:"omitempty,max=20,dive,min=1,max=100"`
	Experience     int       `json:"experience" bson:"experience" validate:"min=0,max=80"`
	Rating         float64   `json:"rating" bson:"rating"`
	Bio            string    `json:"bio,omitempty" bson:"bio" validate:"omitempty,max=2000"`
	IsActive       bool      `json:"is_active" bson:"is_active"`
	IsDeleted      bool      `json:"is_deleted" bson:"is_deleted"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`

	SessionsCompleted *int64 `json:"sessions_completed,omitempty" bson:"-"`
}

func (e *Expert) FullName() string {
	return joinName(e.FirstName, e.LastName)
}

// Available reports whether the expert may run sessions.
func (e *Expert) Available() bool {
	return e.IsActive && !e.IsDeleted
}

// ExpertSummary is the expert display block attached to bookings and slots.
type ExpertSummary struct {
	ID             string   `json:"id"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Email          string   `json:"email,omitempty"`
	Specialization []string `json:"specialization"`
	Rating         float64  `json:"rating"`
}

func (e *Expert) Summary() *ExpertSummary {
	return &ExpertSummary{
		ID:             e.ID,
		FirstName:      e.FirstName,
		LastName:       e.LastName,
		Email:          e.Email,
		Specialization: e.Specialization,
		Rating:         e.Rating,
	}
}

// ExpertProfileUpdate is the self-service profile patch.
type ExpertProfileUpdate struct {
	Bio            *string  `json:"bio,omitempty" validate:"omitempty,max=2000"`
	Specialization *TagList `json:"specialization,omitempty"`
	Experience     *int     `json:"experience,omitempty"`
}

// ExpertFlags is the admin roster patch.
type ExpertFlags struct {
	IsActive  *bool `json:"is_active,omitempty"`
	IsDeleted *bool `json:"is_deleted,omitempty"`
}

func (f ExpertFlags) Empty() bool {
	return f.IsActive == nil && f.IsDeleted == nil
}

type CreateExpertRequest struct {
	FirstName      string   `json:"first_name" validate:"required,max=100"`
	LastName       string   `json:"last_name" validate:"required,max=100"`
	Email          string   `json:"email" validate:"required,email,max=254"`
	Specialization TagList  `json:"specialization"`
	Experience     *int     `json:"experience"`
	Bio            string   `json:"bio" validate:"omitempty,max=2000"`
	Rating         *float64 `json:"rating" validate:"omitempty,min=0,max=5"`
	IsActive       *bool    `json:"is_active"`
}
