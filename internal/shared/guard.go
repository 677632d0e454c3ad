package shared

import "net/http"

const (
	// LoginPath is the fixed redirect target for unauthenticated requests.
	LoginPath = "/login"
	// HomePath is the protected landing page.
	HomePath = "/"
)

// Decision is the outcome of an access check.
type Decision int

const (
	// DenyWithRedirect sends the caller to LoginPath.
	DenyWithRedirect Decision = iota
	// Admit lets the request reach the protected handler.
	Admit
)

// Check decides access from the session state alone.
func Check(sess *Session) Decision {
	if sess == nil {
		return DenyWithRedirect
	}
	switch sess.State {
	case SessionActive:
		return Admit
	case SessionAbsent, SessionDestroyed:
		return DenyWithRedirect
	default:
		return DenyWithRedirect
	}
}

// RequireSession guards protected handlers.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Check(SessionFromContext(r.Context())) != Admit {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RedirectAuthenticated sends signed-in users away from the login and
// registration pages.
func RedirectAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Check(SessionFromContext(r.Context())) == Admit {
			http.Redirect(w, r, HomePath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
