package core

import "context"

type contextKey string

const ctxKeyClient contextKey = "client"

// Client describes the caller of a request, for logs.
type Client struct {
	IP        string
	UserAgent string
}

// ContextWithClient attaches caller metadata to ctx.
func ContextWithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, ctxKeyClient, c)
}

// ClientFromContext returns the caller metadata, or the zero Client.
func ClientFromContext(ctx context.Context) Client {
	c, _ := ctx.Value(ctxKeyClient).(Client)
	return c
}
