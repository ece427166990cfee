package rbac

import "strings"

// DefaultFallbackPath is used when a guard does not name a redirect target.
const DefaultFallbackPath = "/"

// Guard describes the roles a route requires. Build guards with AnyOf, AllOf
// or Authenticated; the zero value admits any authenticated principal.
type Guard struct {
	RequiredRoles   []string
	RequireAllRoles bool
	FallbackPath    string
}

// Authenticated admits every authenticated principal.
func Authenticated() Guard {
	return Guard{FallbackPath: DefaultFallbackPath}
}

// AnyOf admits principals holding at least one of roles.
func AnyOf(roles ...string) Guard {
	return Guard{RequiredRoles: NormalizeRoles(roles), FallbackPath: DefaultFallbackPath}
}

// AllOf admits principals holding every one of roles.
func AllOf(roles ...string) Guard {
	return Guard{RequiredRoles: NormalizeRoles(roles), RequireAllRoles: true, FallbackPath: DefaultFallbackPath}
}

// WithFallback returns a copy of g redirecting to path on denial.
func (g Guard) WithFallback(path string) Guard {
	g.RequiredRoles = append([]string(nil), g.RequiredRoles...)
	g.FallbackPath = path
	return g
}

// Fallback returns the redirect target, defaulting to "/".
func (g Guard) Fallback() string {
	if p := strings.TrimSpace(g.FallbackPath); p != "" {
		return p
	}
	return DefaultFallbackPath
}

// Describe renders the requirement in a short human readable form.
func (g Guard) Describe() string {
	roles := NormalizeRoles(g.RequiredRoles)
	switch {
	case len(roles) == 0:
		return "any signed-in user"
	case len(roles) == 1:
		return roles[0]
	case g.RequireAllRoles:
		return strings.Join(roles, " and ")
	default:
		return strings.Join(roles, " or ")
	}
}

// Outcome is the result kind of a guard evaluation.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeDeny  Outcome = "deny"
)

// Decision is the result of evaluating a guard.
type Decision struct {
	Outcome  Outcome
	Redirect string
}

// Allowed reports whether the route may be rendered.
func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllow }

// Evaluate decides whether a principal with the given roles may open a route
// protected by g. It is pure and safe for concurrent use.
func Evaluate(g Guard, authenticated bool, roles []string) Decision {
	deny := Decision{Outcome: OutcomeDeny, Redirect: g.Fallback()}
	if !authenticated {
		return deny
	}
	required := NormalizeRoles(g.RequiredRoles)
	if len(required) == 0 {
		return Decision{Outcome: OutcomeAllow}
	}
	granted := NormalizeRoles(roles)
	var ok bool
	if g.RequireAllRoles {
		ok = hasAllRoles(granted, required)
	} else {
		ok = hasAnyRole(granted, required)
	}
	if !ok {
		return deny
	}
	return Decision{Outcome: OutcomeAllow}
}

// Check evaluates g for p. A nil principal is unauthenticated.
func Check(g Guard, p *Principal) Decision {
	if p == nil {
		return Evaluate(g, false, nil)
	}
	return Evaluate(g, true, p.Roles)
}
