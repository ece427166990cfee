package rbac

import (
	"context"
	"slices"
	"strings"
)

// Principal describes the authenticated actor. Roles are held sorted without
// blanks or duplicates and are read-only once constructed.
type Principal struct {
	Subject string
	Name    string
	Email   string
	Roles   []string
	Claims  map[string]any
}

// NewPrincipal builds a Principal with de-duplicated roles.
func NewPrincipal(subject, name, email string, roles []string, claims map[string]any) *Principal {
	copied := make(map[string]any, len(claims))
	for k, v := range claims {
		copied[k] = v
	}
	return &Principal{
		Subject: subject,
		Name:    name,
		Email:   email,
		Roles:   NormalizeRoles(roles),
		Claims:  copied,
	}
}

// DisplayName falls back to the email and then the subject.
func (p *Principal) DisplayName() string {
	if p == nil {
		return ""
	}
	switch {
	case strings.TrimSpace(p.Name) != "":
		return p.Name
	case p.Email != "":
		return p.Email
	default:
		return p.Subject
	}
}

// HasRole reports whether the principal holds role.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Roles, role)
}

// HasAnyRole reports whether at least one of roles is held.
func (p *Principal) HasAnyRole(roles ...string) bool {
	if p == nil {
		return false
	}
	return hasAnyRole(p.Roles, NormalizeRoles(roles))
}

// HasAllRoles reports whether every one of roles is held.
func (p *Principal) HasAllRoles(roles ...string) bool {
	if p == nil {
		return false
	}
	return hasAllRoles(p.Roles, NormalizeRoles(roles))
}

// Claim returns a claim value.
func (p *Principal) Claim(key string) (any, bool) {
	if p == nil || p.Claims == nil {
		return nil, false
	}
	v, ok := p.Claims[key]
	return v, ok
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}

// NormalizeRoles drops blank roles and duplicates and sorts the result. Role
// names are compared exactly, so "Admin" and " admin " are not "admin".
func NormalizeRoles(roles []string) []string {
	normalized := make([]string, 0, len(roles))
	for _, r := range roles {
		if strings.TrimSpace(r) == "" {
			continue
		}
		normalized = append(normalized, r)
	}
	slices.Sort(normalized)
	return slices.Compact(normalized)
}

func roleSet(granted []string) map[string]struct{} {
	set := make(map[string]struct{}, len(granted))
	for _, r := range granted {
		set[r] = struct{}{}
	}
	return set
}

func hasAnyRole(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := roleSet(granted)
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllRoles(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := roleSet(granted)
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
