package auth

import "context"

// User is the identity a request acts as.
type User interface {
	ID() string
	// Token is the bearer credential forwarded to the remote backend; empty for demo users.
	Token() string
}

// AuthenticatedUser is built from a verified bearer token.
type AuthenticatedUser struct {
	id    string
	token string
}

func NewAuthenticatedUser(id, token string) AuthenticatedUser {
	return AuthenticatedUser{id: id, token: token}
}

func (u AuthenticatedUser) ID() string    { return u.id }
func (u AuthenticatedUser) Token() string { return u.token }

// DemoUser is a device-bound anonymous identity with no backend credential.
type DemoUser struct {
	id string
}

func NewDemoUser(id string) DemoUser {
	return DemoUser{id: id}
}

func (u DemoUser) ID() string    { return u.id }
func (u DemoUser) Token() string { return "" }

type userKey struct{}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey{}).(User)
	return u, ok && u != nil
}

// UserID returns the id of the user in ctx or "".
func UserID(ctx context.Context) string {
	if u, ok := UserFromContext(ctx); ok {
		return u.ID()
	}
	return ""
}
