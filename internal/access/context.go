package access

import "context"

type contextKey struct{}

// WithContext attaches an authorization result to ctx.
func WithContext(ctx context.Context, authCtx *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, authCtx)
}

// FromContext returns the authorization result stored by WithContext.
func FromContext(ctx context.Context) (*Context, bool) {
	authCtx, ok := ctx.Value(contextKey{}).(*Context)
	return authCtx, ok && authCtx != nil
}
