package service

import "context"

type ctxKey int

const clientIPKey ctxKey = iota

// WithClientIP attaches the caller's address so activity records can carry it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

func clientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
