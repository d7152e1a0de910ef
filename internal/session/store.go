package session

import (
	"context"

	"salon-portal/internal/model"
)

// Flag is the tri-state must-change-password marker persisted with the
// session. FlagFalse is sticky: once a password change succeeds it may only
// be re-armed by an explicit server assertion, never by a response that
// merely lacks confirmation.
type Flag string

const (
	FlagUnknown Flag = ""
	FlagTrue    Flag = "true"
	FlagFalse   Flag = "false"
)

// Session is the authenticated identity as perceived by the portal.
// Token absent means Profile must be treated as untrusted; token present
// does not imply Profile.Role is current (the upstream API is authoritative).
type Session struct {
	Token              string         `json:"token,omitempty"`
	Profile            *model.Profile `json:"profile,omitempty"`
	MustChangePassword Flag           `json:"must_change_password,omitempty"`
}

// Authenticated reports whether a credential is present. It says nothing
// about whether the upstream API still accepts it.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// clone returns a Session sharing no pointers with the receiver, so values
// handed out by a store never alias its internal state.
func (s Session) clone() Session {
	if s.Profile != nil {
		profile := *s.Profile
		s.Profile = &profile
	}
	return s
}

// Store persists sessions keyed by the portal session ID. Pure storage:
// no validation, callers own all trust decisions. Read returns a zero
// Session when the ID is unknown. Read hands out an independent copy and
// Write captures one, so callers may mutate their Session freely without
// racing concurrent requests on the same ID.
type Store interface {
	Read(ctx context.Context, sid string) (Session, error)
	Write(ctx context.Context, sid string, sess Session) error
	Clear(ctx context.Context, sid string) error
}
