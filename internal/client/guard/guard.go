// Package guard decides whether protected commands may run for the current
// session.
package guard

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/coursestore/internal/client/session"
)

var ErrLoginRequired = errors.New("login required")

type Decision int

const (
	// Pending means the session is not resolved yet; show nothing.
	Pending Decision = iota
	RedirectLogin
	Allow
)

func (d Decision) String() string {
	switch d {
	case RedirectLogin:
		return "redirect-login"
	case Allow:
		return "allow"
	default:
		return "pending"
	}
}

// Session is what the guard reads from the session store.
type Session interface {
	State() session.State
	Ready() <-chan struct{}
}

// Check maps the current session state to a decision without waiting.
func Check(s Session) Decision {
	switch s.State() {
	case session.StateAuthenticated:
		return Allow
	case session.StateAnonymous:
		return RedirectLogin
	default:
		return Pending
	}
}

// Require waits for the session to resolve and returns ErrLoginRequired
// for an anonymous session. It returns ctx.Err() if ctx ends first.
func Require(ctx context.Context, s Session) error {
	d := Check(s)
	if d == Pending {
		select {
		case <-s.Ready():
		case <-ctx.Done():
			return ctx.Err()
		}
		d = Check(s)
	}
	if d != Allow {
		return ErrLoginRequired
	}
	return nil
}
