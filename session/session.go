// Package session keeps per-visitor key/value state for the duration of a
// browser session. Visitors are told apart by an opaque session id.
package session

import (
	"context"

	"github.com/google/uuid"
)

type Store interface {
	Get(ctx context.Context, sid, key string) (value string, found bool, err error)
	Set(ctx context.Context, sid, key, value string) error
	Remove(ctx context.Context, sid string, keys ...string) error
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether sid looks like an id returned by NewID.
func ValidID(sid string) bool {
	_, err := uuid.Parse(sid)
	return err == nil
}

// Session is a Store bound to one visitor.
type Session struct {
	store Store
	id    string
}

func Bind(store Store, sid string) *Session {
	return &Session{store: store, id: sid}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Get(ctx context.Context, key string) (string, bool, error) {
	return s.store.Get(ctx, s.id, key)
}

func (s *Session) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.id, key, value)
}

func (s *Session) Remove(ctx context.Context, keys ...string) error {
	return s.store.Remove(ctx, s.id, keys...)
}
