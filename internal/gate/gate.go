package gate

import (
	"context"
	"errors"

	"salon-portal/internal/model"
	"salon-portal/internal/session"
)

// Routes the gate redirects to. LoginPath receives unauthenticated denials,
// StaffHome receives role denials from otherwise valid staff sessions, and
// PublicHome receives accounts with no staff role at all.
const (
	LoginPath  = "/staff/login"
	StaffHome  = "/staff/dashboard"
	PublicHome = "/"
)

// Guard declares what a route requires. AllowedRoles is only meaningful when
// RequireAuth is set; empty AllowedRoles means any authenticated user.
// SkipRotation exempts a route from the must-change-password interception so
// the change-password flow itself stays reachable.
type Guard struct {
	RequireAuth  bool
	AllowedRoles []string
	SkipRotation bool
}

// Decision is the terminal state of one gate check.
type Decision int

const (
	Allowed Decision = iota
	DeniedUnauthenticated
	DeniedRole
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case DeniedUnauthenticated:
		return "denied-unauthenticated"
	case DeniedRole:
		return "denied-role"
	default:
		return "unknown"
	}
}

// Result carries the decision plus the server-confirmed profile (when the
// check reached the API) and where to send a denied request.
type Result struct {
	Decision        Decision
	Profile         *model.Profile
	RedirectTo      string
	RotationPending bool
}

type profileAPI interface {
	Me(ctx context.Context, sid string) (model.Profile, error)
}

// Gate decides whether the current session may proceed into a route. Role is
// re-verified against the server on every protected navigation rather than
// trusted from cache, so promotions and demotions take effect without a
// logout.
type Gate struct {
	sessions session.Store
	api      profileAPI
}

func New(sessions session.Store, api profileAPI) *Gate {
	return &Gate{sessions: sessions, api: api}
}

// Check runs one gate evaluation. An unverifiable session is treated as
// unauthenticated (fail closed); a session store cleared mid-check by the
// global 401 interceptor wins over whatever this check was about to conclude.
func (g *Gate) Check(ctx context.Context, sid string, guard Guard) Result {
	sess, err := g.sessions.Read(ctx, sid)
	if err != nil || !sess.Authenticated() {
		// No credential: deny without a network call.
		return Result{Decision: DeniedUnauthenticated, RedirectTo: LoginPath}
	}

	profile, err := g.api.Me(ctx, sid)
	if err != nil {
		if errors.Is(err, model.ErrPasswordChangeRequired) {
			// The credential is valid; the rotation interceptor owns this
			// state. The profile refresh is skipped because the API withheld
			// it behind the rotation requirement. A sticky false flag means
			// the password change already succeeded here and the upstream
			// write has not converged yet; re-prompting would bounce the user
			// between the change form and the page that sent them there.
			pending := sess.MustChangePassword != session.FlagFalse
			return Result{Decision: Allowed, Profile: sess.Profile, RotationPending: pending}
		}

		// Credential rejected or upstream unreachable: clear whatever stale
		// credential is left and deny.
		_ = g.sessions.Clear(ctx, sid)
		return Result{Decision: DeniedUnauthenticated, RedirectTo: LoginPath}
	}

	current, err := g.sessions.Read(ctx, sid)
	if err != nil || !current.Authenticated() {
		// A 401 from a concurrent request emptied the store while this check
		// was in flight.
		return Result{Decision: DeniedUnauthenticated, RedirectTo: LoginPath}
	}

	current.Profile = &profile
	if err := g.sessions.Write(ctx, sid, current); err != nil {
		return Result{Decision: DeniedUnauthenticated, RedirectTo: LoginPath}
	}

	if !profile.IsStaff() {
		// Client accounts never belong in the staff area. Sending them to
		// StaffHome would just bounce them here again.
		return Result{Decision: DeniedRole, Profile: &profile, RedirectTo: PublicHome}
	}

	if len(guard.AllowedRoles) > 0 && !roleAllowed(profile.Role, guard.AllowedRoles) {
		// Session is valid, the role just does not fit this route.
		return Result{Decision: DeniedRole, Profile: &profile, RedirectTo: StaffHome}
	}

	rotation := profile.MustChangePassword && current.MustChangePassword != session.FlagFalse
	return Result{Decision: Allowed, Profile: &profile, RotationPending: rotation}
}

func roleAllowed(role string, allowed []string) bool {
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
