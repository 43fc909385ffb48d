package trackauth

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's address to ctx. Login uses it for the
// per-address throttle when EnableIPThrottle is set.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
