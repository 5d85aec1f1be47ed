package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/equipview/internal/auth"
	"github.com/JonMunkholm/equipview/internal/events"
)

// Select makes a dataset the session's current one and returns the updated
// history.
func (s *Service) Select(ctx context.Context, sess auth.Session, id string) (History, error) {
	if !sess.Actor.Authenticated() {
		return History{}, ErrUnauthorized
	}

	m := s.Manager(ctx, sess)
	if err := m.Select(ctx, id); err != nil {
		return History{}, err
	}
	return historyOf(m.Snapshot()), nil
}

// Remove deletes a dataset of the session's actor and publishes
// dataset.deleted.
func (s *Service) Remove(ctx context.Context, sess auth.Session, id string) (History, error) {
	if !sess.Actor.Authenticated() {
		return History{}, ErrUnauthorized
	}

	m := s.Manager(ctx, sess)
	if err := m.Remove(ctx, id); err != nil {
		return History{}, err
	}

	s.publish(ctx, events.Event{
		Type:       events.DatasetDeleted,
		DatasetID:  id,
		OwnerID:    sess.Actor.ID,
		OccurredAt: time.Now().UTC(),
	})
	return historyOf(m.Snapshot()), nil
}
