package auth

import "context"

type ctxKey string

const userKey ctxKey = "userClaims"

// Claims is the decoded bearer-token payload: who the caller is and which
// role they hold.
type Claims struct {
	Subject string
	Role    string
}

func (c Claims) HasRole(role string) bool {
	return c.Role == role
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, userKey, c)
}

func FromContext(ctx context.Context) Claims {
	if v, ok := ctx.Value(userKey).(Claims); ok {
		return v
	}
	return Claims{}
}

func Subject(ctx context.Context) string {
	return FromContext(ctx).Subject
}
