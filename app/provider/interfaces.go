package provider

import (
	"context"
)

// Client is the boundary with the upstream social platform. Implementations
// own authentication state (cookies); callers gate access on the session
// layer before invoking any method other than Login/SetCookies.
//
// Cancellation and timeouts are pass-through: methods honor ctx and no
// retry is performed at this boundary.
type Client interface {
	// Login performs the interactive-free credential login flow and
	// persists the resulting session artifact to cookiesFile. A flow that
	// demands interactive input fails with ErrAuthRequired.
	Login(ctx context.Context, username, email, password, cookiesFile string) error

	// SetCookies installs a pre-provisioned cookie mapping in place of a
	// network login.
	SetCookies(cookies map[string]string) error

	// WhoAmI resolves the identity owning the current session.
	WhoAmI(ctx context.Context) (*Identity, error)

	// UserByHandle resolves an account by screen name. A miss is
	// ErrNotFound, distinct from transport or upstream failures.
	UserByHandle(ctx context.Context, handle string) (*Identity, error)

	SearchPosts(ctx context.Context, query string, kind SearchKind, count int) ([]RawPost, error)
	UserPosts(ctx context.Context, userID string, kind TimelineKind, count int) ([]RawPost, error)
	Trends(ctx context.Context, kind string) ([]RawTrend, error)
	CreatePost(ctx context.Context, text string) (*RawPost, error)
}
