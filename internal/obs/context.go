package obs

import "context"

type ctxKey int

const routeKey ctxKey = iota

// WithRoutePattern records the chi pattern that matched the request, e.g.
// "/v1/products/{sku}", so metrics and logs are labelled by route, not raw path.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routeKey, pattern)
}

// RoutePatternFromContext returns the recorded pattern, or "" when none was set.
func RoutePatternFromContext(ctx context.Context) string {
	pattern, _ := ctx.Value(routeKey).(string)
	return pattern
}
