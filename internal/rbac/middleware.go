package rbac

import (
	"log/slog"
	"net/http"
)

// DecisionRecorder observes gate decisions, typically for metrics.
type DecisionRecorder interface {
	ObserveGuardDecision(route string, allowed bool)
}

// Middleware wires guard evaluation into HTTP handlers. The principal is read
// from the request context on every request and never cached.
type Middleware struct {
	Logger   *slog.Logger
	Recorder DecisionRecorder
}

// Gate protects a page route: denied requests are redirected with 303 See
// Other to the guard's fallback path.
func (m Middleware) Gate(route string, g Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			decision := Check(g, principal)
			m.observe(route, decision)
			if decision.Allowed() {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Debug("route guard denied",
					slog.String("route", route),
					slog.Bool("authenticated", principal != nil),
					slog.String("redirect", decision.Redirect))
			}
			http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
		})
	}
}

// RequireAny protects API routes: requests without a principal get 401 and
// principals lacking every listed role get 403.
func (m Middleware) RequireAny(roles ...string) func(http.Handler) http.Handler {
	return m.require(AnyOf(roles...))
}

// RequireAll is RequireAny with every listed role required.
func (m Middleware) RequireAll(roles ...string) func(http.Handler) http.Handler {
	return m.require(AllOf(roles...))
}

func (m Middleware) require(g Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if !Check(g, principal).Allowed() {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) observe(route string, d Decision) {
	if m.Recorder != nil {
		m.Recorder.ObserveGuardDecision(route, d.Allowed())
	}
}
