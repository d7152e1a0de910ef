package gate

import (
	"context"
	"errors"
	"time"

	"salon-portal/internal/model"
	"salon-portal/internal/session"
)

// RotationInterceptor reconciles the locally cached must-change-password
// flag with the server-confirmed value. It runs once per session bootstrap
// and once right after a password change succeeds.
type RotationInterceptor struct {
	sessions     session.Store
	api          profileAPI
	pollInterval time.Duration
	pollTimeout  time.Duration
}

type RotationOption func(*RotationInterceptor)

// WithPolling tunes how OnPasswordChanged waits for the upstream write to
// become visible.
func WithPolling(interval time.Duration, timeout time.Duration) RotationOption {
	return func(r *RotationInterceptor) {
		r.pollInterval = interval
		r.pollTimeout = timeout
	}
}

func NewRotationInterceptor(sessions session.Store, api profileAPI, opts ...RotationOption) *RotationInterceptor {
	interceptor := &RotationInterceptor{
		sessions:     sessions,
		api:          api,
		pollInterval: 100 * time.Millisecond,
		pollTimeout:  2 * time.Second,
	}

	for _, opt := range opts {
		opt(interceptor)
	}

	return interceptor
}

// Required decides whether the blocking password-change step must be shown.
// A sticky-false flag suppresses it without a probe; otherwise the server is
// consulted, falling back to the local flag when the probe fails (fail-safe
// toward requiring rotation when the local flag says so).
func (r *RotationInterceptor) Required(ctx context.Context, sid string) bool {
	sess, err := r.sessions.Read(ctx, sid)
	if err != nil || !sess.Authenticated() {
		return false
	}

	switch sess.MustChangePassword {
	case session.FlagFalse:
		return false

	case session.FlagTrue:
		profile, err := r.api.Me(ctx, sid)
		if err != nil {
			// Probe failed; the local flag says rotation is pending.
			return true
		}
		if profile.MustChangePassword {
			return true
		}
		r.clearFlag(ctx, sid)
		return false

	default:
		profile, err := r.api.Me(ctx, sid)
		if err != nil {
			// A rotation 403 already armed the flag through the gateway
			// interceptor; anything else leaves the unknown flag alone.
			return errors.Is(err, model.ErrPasswordChangeRequired)
		}
		if !profile.MustChangePassword {
			return false
		}
		r.armFlag(ctx, sid)
		return true
	}
}

// OnPasswordChanged records the successful change: the flag becomes sticky
// false immediately, then the profile endpoint is polled until it reflects
// the change so the next page load cannot re-prompt off a not-yet-committed
// upstream write. A poll that never converges is tolerated; the sticky flag
// already protects the user.
func (r *RotationInterceptor) OnPasswordChanged(ctx context.Context, sid string) error {
	sess, err := r.sessions.Read(ctx, sid)
	if err != nil {
		return err
	}

	sess.MustChangePassword = session.FlagFalse
	if sess.Profile != nil {
		sess.Profile.MustChangePassword = false
	}
	if err := r.sessions.Write(ctx, sid, sess); err != nil {
		return err
	}

	deadline := time.Now().Add(r.pollTimeout)
	for {
		profile, err := r.api.Me(ctx, sid)
		if err == nil && !profile.MustChangePassword {
			current, err := r.sessions.Read(ctx, sid)
			if err != nil || !current.Authenticated() {
				return nil
			}
			current.Profile = &profile
			current.MustChangePassword = session.FlagFalse
			return r.sessions.Write(ctx, sid, current)
		}
		if errors.Is(err, model.ErrUnauthenticated) {
			return nil
		}

		if time.Now().After(deadline) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}

func (r *RotationInterceptor) armFlag(ctx context.Context, sid string) {
	sess, err := r.sessions.Read(ctx, sid)
	if err != nil || sess.MustChangePassword == session.FlagFalse {
		return
	}
	sess.MustChangePassword = session.FlagTrue
	_ = r.sessions.Write(ctx, sid, sess)
}

func (r *RotationInterceptor) clearFlag(ctx context.Context, sid string) {
	sess, err := r.sessions.Read(ctx, sid)
	if err != nil {
		return
	}
	sess.MustChangePassword = session.FlagUnknown
	_ = r.sessions.Write(ctx, sid, sess)
}
