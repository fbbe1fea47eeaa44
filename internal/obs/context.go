package obs

import "context"

type routePatternCtxKey struct{}

// WithRoutePattern records the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternCtxKey{}, pattern)
}

// RoutePatternFromContext returns the stashed pattern, or "".
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	pattern, _ := ctx.Value(routePatternCtxKey{}).(string)
	return pattern
}
