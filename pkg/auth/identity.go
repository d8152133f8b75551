// Package auth verifies identity-provider tokens and signs room tokens.
package auth

import (
	"context"
	"slices"
	"strings"

	apperrors "counsel/pkg/errors"
)

const RoleAdmin = "admin"

// Identity is the verified requester. A nil *Identity means unauthenticated.
type Identity struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
	Roles     []string
}

func (i *Identity) HasRole(role string) bool {
	return i != nil && slices.Contains(i.Roles, role)
}

func (i *Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

func (i *Identity) DisplayName() string {
	if i == nil {
		return ""
	}
	name := strings.TrimSpace(strings.TrimSpace(i.FirstName) + " " + strings.TrimSpace(i.LastName))
	if name == "" {
		return i.Email
	}
	return name
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by the authentication middleware, or nil.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(contextKey{}).(*Identity)
	return id
}

// Require returns the request identity, or Unauthorized when the request is
// anonymous. Handlers that read a body call it first so anonymous callers get
// 401 whatever they send.
func Require(ctx context.Context) (*Identity, error) {
	id := FromContext(ctx)
	if id == nil || id.Subject == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	return id, nil
}
