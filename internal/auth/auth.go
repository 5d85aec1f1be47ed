// Package auth issues and resolves user sessions.
//
// A session binds an opaque bearer token to an Actor. The HTTP layer resolves
// the token on every request and hands the Actor to the dataset lifecycle,
// which scopes all store access to that actor.
package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Actor is an authenticated principal. The zero value is unauthenticated.
type Actor struct {
	ID string `json:"id"`
}

// Authenticated reports whether the actor carries an identity.
func (a Actor) Authenticated() bool {
	return a.ID != ""
}

// Session is an issued bearer token.
type Session struct {
	Token     string    `json:"token"`
	Actor     Actor     `json:"actor"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at t.
func (s Session) Expired(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && !t.Before(s.ExpiresAt)
}

// Sessions creates, resolves and revokes sessions.
type Sessions interface {
	Create(ctx context.Context, actor Actor) (Session, error)
	// Lookup returns ErrSessionNotFound for unknown or revoked tokens and
	// ErrSessionExpired for expired ones.
	Lookup(ctx context.Context, token string) (Session, error)
	Revoke(ctx context.Context, token string) error
}

type ctxKey struct{}

// WithSession returns a context carrying the session.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// SessionFromContext returns the request's session, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// ActorFromContext returns the request's actor, or the unauthenticated zero
// value.
func ActorFromContext(ctx context.Context) Actor {
	s, _ := SessionFromContext(ctx)
	return s.Actor
}
