package common

import "context"

type userIDCtxKey struct{}

// WithUserID stores the authenticated cashier identifier on the context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDCtxKey{}, id)
}

// UserID extracts the authenticated cashier identifier, reporting whether
// one was set.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDCtxKey{}).(string)
	return id, ok
}
