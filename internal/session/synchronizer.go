package session

import (
	"context"
	"log/slog"
)

// Synchronizer mirrors provider session events into the store and the
// credential cache, converging local state toward whatever the provider last
// reported. Events are applied in arrival order; the store's epoch guard
// protects against results that raced a sign-out.
type Synchronizer struct {
	store  *Store
	cache  *CredentialCache
	logger *slog.Logger
}

// NewSynchronizer wires a Synchronizer.
func NewSynchronizer(store *Store, cache *CredentialCache, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{store: store, cache: cache, logger: logger}
}

// Run subscribes to the provider and applies events until ctx is cancelled or
// the provider closes the subscription.
func (s *Synchronizer) Run(ctx context.Context) {
	events, cancel := s.store.provider.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.apply(event)
		}
	}
}

func (s *Synchronizer) apply(event Event) {
	s.logger.Debug("session event", "type", event.Type)

	switch event.Type {
	case EventInitialSession:
		epoch := s.store.Epoch()
		if event.Session == nil {
			s.cache.Invalidate()
			s.store.SetUser(nil)
		} else {
			s.adopt(epoch, event.Session)
		}
		// The initial event settles the boot state either way.
		s.store.SetLoading(false)

	case EventSignedIn:
		s.adopt(s.store.Epoch(), event.Session)
		// Whichever of boot and sign-in resolves first settles the state.
		s.store.SetLoading(false)

	case EventTokenRefreshed:
		if event.Session != nil {
			s.cache.Put(event.Session.AccessToken, event.Session.ExpiresAt)
		}

	case EventSignedOut:
		s.cache.Invalidate()
		s.store.SetUser(nil)
		s.store.SetLoading(false)

	default:
		s.logger.Warn("ignoring unknown session event", "type", event.Type)
	}
}

// adopt installs the session's credentials and user, then fetches the profile
// in the background.
func (s *Synchronizer) adopt(epoch uint64, sess *Session) {
	if sess == nil {
		return
	}
	s.cache.Put(sess.AccessToken, sess.ExpiresAt)
	s.store.SetUser(&AuthUser{ID: sess.UserID, Email: sess.UserEmail})
	s.store.FetchProfileAsync(epoch, sess.UserID)
}
