package domain

// SessionState is the reconciler's state machine position.
type SessionState string

const (
	StateLoading         SessionState = "loading"
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticated   SessionState = "authenticated"
)

// Session is the process-wide view of who is signed in. Build it with the
// constructors below so IsAdmin always matches User.Role.
type Session struct {
	User    *User `json:"user"`
	Loading bool  `json:"loading"`
	IsAdmin bool  `json:"is_admin"`
}

// LoadingSession is the value before the first identity notification resolves.
func LoadingSession() Session {
	return Session{Loading: true}
}

// UnauthenticatedSession is published for sign-outs and rejected identities.
func UnauthenticatedSession() Session {
	return Session{}
}

// AuthenticatedSession is published once an identity resolved to a record.
func AuthenticatedSession(user *User) Session {
	if user == nil {
		return UnauthenticatedSession()
	}
	u := user.Clone()
	return Session{User: u, IsAdmin: u.IsAdmin()}
}

// State maps the session value onto the state machine.
func (s Session) State() SessionState {
	switch {
	case s.Loading:
		return StateLoading
	case s.User == nil:
		return StateUnauthenticated
	default:
		return StateAuthenticated
	}
}

// Email returns the signed-in user's email, or "" when unauthenticated.
func (s Session) Email() string {
	if s.User == nil {
		return ""
	}
	return s.User.Email
}
