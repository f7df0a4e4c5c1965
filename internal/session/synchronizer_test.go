package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

// channelProvider lets tests push events by hand.
type channelProvider struct {
	fakeProvider
	events chan Event
}

func (p *channelProvider) Subscribe() (<-chan Event, func()) {
	return p.events, func() {}
}

func newSyncFixture(t *testing.T, fetcher ProfileFetcher) (*channelProvider, *Store, *CredentialCache, func()) {
	t.Helper()

	provider := &channelProvider{events: make(chan Event, 8)}
	store := NewStore(provider, fetcher, Options{})
	cache := NewCredentialCache()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewSynchronizer(store, cache, nil).Run(ctx)
	}()

	stop := func() {
		cancel()
		<-done
	}
	return provider, store, cache, stop
}

func TestSynchronizerInitialSessionSignedIn(t *testing.T) {
	userID := uuid.New()
	provider, store, cache, stop := newSyncFixture(t, nil)
	defer stop()

	provider.events <- Event{Type: EventInitialSession, Session: testSession(userID)}

	waitFor(t, time.Second, func() bool {
		state := store.Snapshot()
		return state.IsAuthenticated && !state.IsLoading
	})

	if token, ok := cache.Get(); !ok || token != "token" {
		t.Fatalf("expected cached token after initial session")
	}
	if store.Snapshot().User.ID != userID {
		t.Fatalf("expected user from the initial session")
	}
}

func TestSynchronizerInitialSessionSignedOut(t *testing.T) {
	provider, store, cache, stop := newSyncFixture(t, nil)
	defer stop()

	cache.Put("stale", time.Now().Add(time.Hour))
	provider.events <- Event{Type: EventInitialSession}

	waitFor(t, time.Second, func() bool {
		state := store.Snapshot()
		return !state.IsLoading && !state.IsAuthenticated
	})

	if _, ok := cache.Get(); ok {
		t.Fatalf("expected cache cleared when the initial session is empty")
	}
}

func TestSynchronizerSignedOutClearsEverything(t *testing.T) {
	userID := uuid.New()
	provider, store, cache, stop := newSyncFixture(t, nil)
	defer stop()

	provider.events <- Event{Type: EventSignedIn, Session: testSession(userID)}
	waitFor(t, time.Second, func() bool { return store.Snapshot().IsAuthenticated })

	provider.events <- Event{Type: EventSignedOut}
	waitFor(t, time.Second, func() bool { return !store.Snapshot().IsAuthenticated })

	if _, ok := cache.Get(); ok {
		t.Fatalf("expected cache cleared on sign-out")
	}
	if store.Snapshot().User != nil {
		t.Fatalf("expected user cleared on sign-out")
	}
}

func TestSynchronizerTokenRefreshUpdatesCache(t *testing.T) {
	userID := uuid.New()
	provider, store, cache, stop := newSyncFixture(t, nil)
	defer stop()

	provider.events <- Event{Type: EventSignedIn, Session: testSession(userID)}
	waitFor(t, time.Second, func() bool { return store.Snapshot().IsAuthenticated })

	refreshed := testSession(userID)
	refreshed.AccessToken = "fresh-token"
	provider.events <- Event{Type: EventTokenRefreshed, Session: refreshed}

	waitFor(t, time.Second, func() bool {
		token, ok := cache.Get()
		return ok && token == "fresh-token"
	})
}

func TestSynchronizerSignedInSettlesBoot(t *testing.T) {
	userID := uuid.New()
	provider, store, _, stop := newSyncFixture(t, nil)
	defer stop()

	if !store.Snapshot().IsLoading {
		t.Fatalf("expected a fresh store to boot loading")
	}

	// A sign-in arriving before Initialize finishes must settle the boot
	// state on its own; nothing else is going to clear the loading flag.
	provider.events <- Event{Type: EventSignedIn, Session: testSession(userID)}

	waitFor(t, time.Second, func() bool {
		state := store.Snapshot()
		return state.IsAuthenticated && !state.IsLoading
	})
}

func TestSynchronizerSignedInDuringInitializeConverges(t *testing.T) {
	for _, eventFirst := range []bool{true, false} {
		name := "initialize first"
		if eventFirst {
			name = "event first"
		}
		t.Run(name, func(t *testing.T) {
			userID := uuid.New()
			provider, store, _, stop := newSyncFixture(t, nil)
			defer stop()
			provider.session = testSession(userID)

			signIn := func() {
				provider.events <- Event{Type: EventSignedIn, Session: testSession(userID)}
			}

			done := make(chan error, 1)
			if eventFirst {
				signIn()
			}
			go func() {
				done <- store.Initialize(context.Background())
			}()
			if !eventFirst {
				signIn()
			}

			if err := <-done; err != nil {
				t.Fatalf("initialize: %v", err)
			}

			// Both paths report the same session; whichever applies last,
			// the state must converge to signed in and settled.
			waitFor(t, time.Second, func() bool {
				state := store.Snapshot()
				return state.IsAuthenticated && !state.IsLoading
			})
			if got := store.Snapshot().User.ID; got != userID {
				t.Fatalf("expected user %s, got %s", userID, got)
			}
		})
	}
}

func TestSynchronizerSignedInFetchesProfile(t *testing.T) {
	userID := uuid.New()
	fetcher := &fakeFetcher{profile: &Profile{ID: userID}}
	provider, store, _, stop := newSyncFixture(t, fetcher)
	defer stop()

	provider.events <- Event{Type: EventSignedIn, Session: testSession(userID)}

	waitFor(t, time.Second, func() bool {
		return store.Snapshot().Profile != nil
	})
}
