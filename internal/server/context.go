package server

import "context"

type contextKey struct{ name string }

var clientIPKey = contextKey{"client_ip"}

// WithClientIP returns a context carrying the caller's network origin.
// The reconcile handler sets it; the audit logger reads it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// GetClientIP returns the client IP from context and true if set; otherwise "", false.
func GetClientIP(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(clientIPKey).(string)
	return v, ok
}

// ClientIP is an audit.IPExtractor: it returns the IP stored by WithClientIP,
// or "unknown" when the context has none.
func ClientIP(ctx context.Context) string {
	if ip, ok := GetClientIP(ctx); ok && ip != "" {
		return ip
	}
	return "unknown"
}
