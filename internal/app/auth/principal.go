package auth

import (
	"context"
	"strings"
)

const (
	RoleGuest = "guest"
	RoleAdmin = "admin"
)

// Principal is the caller identity forwarded by the gateway.
type Principal struct {
	UserID string
	Roles  []string
}

func (p Principal) Authenticated() bool {
	return strings.TrimSpace(p.UserID) != ""
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// ParseRoles splits a comma separated role header.
func ParseRoles(raw string) []string {
	var roles []string
	for _, part := range strings.Split(raw, ",") {
		if role := strings.ToLower(strings.TrimSpace(part)); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}
