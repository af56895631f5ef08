package port

// Session is the authenticated user context, injected explicitly rather than
// read from an ambient global so components can be torn down deterministically.
type Session struct {
	UserID string
	Token  string
}

// SessionSource reports the current session, if any. The watch loop polls it
// between refreshes to detect login/logout transitions.
type SessionSource interface {
	Current() (Session, bool)
}
