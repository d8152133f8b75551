package model

import (
	"strings"
	"time"
)

type User struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty"`
	ExternalID string    `json:"external_id" bson:"external_id"`
	Email      string    `json:"email" bson:"email"`
	FirstName  string    `json:"first_name" bson:"first_name"`
	LastName   string    `json:"last_name" bson:"last_name"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

func (u *User) FullName() string {
	return joinName(u.FirstName, u.LastName)
}

// StudentSummary is the student display block attached to bookings.
type StudentSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (u *User) Summary() *StudentSummary {
	return &StudentSummary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

// PlaceholderEmail is the address synthesised for users whose identity
// provider does not report one.
func PlaceholderEmail(externalID, domain string) string {
	return externalID + "@" + domain
}

func IsPlaceholderEmail(email, domain string) bool {
	return email == "" || strings.HasSuffix(strings.ToLower(email), "@"+strings.ToLower(domain))
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
