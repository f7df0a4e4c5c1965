package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeProvider struct {
	mu           sync.Mutex
	session      *Session
	err          error
	delay        time.Duration
	signOutCalls int
	signOutErr   error
}

func (f *fakeProvider) Session(ctx context.Context) (*Session, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.err
}

func (f *fakeProvider) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutCalls++
	return f.signOutErr
}

func (f *fakeProvider) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event)
	return ch, func() { close(ch) }
}

func (f *fakeProvider) signOuts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOutCalls
}

type fakeFetcher struct {
	mu      sync.Mutex
	profile *Profile
	err     error
	block   chan struct{}
}

func (f *fakeFetcher) FetchProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile, f.err
}

type memPersister struct {
	mu     sync.Mutex
	state  *PersistedState
	saves  int
	failed error
}

func (m *memPersister) Load() (*PersistedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.failed
}

func (m *memPersister) Save(state PersistedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := state
	m.state = &copied
	m.saves++
	return nil
}

func (m *memPersister) last() *PersistedState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

type recordingNavigator struct {
	mu    sync.Mutex
	calls int
}

func (n *recordingNavigator) NavigateToLogin() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
}

func (n *recordingNavigator) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func testSession(userID uuid.UUID) *Session {
	return &Session{
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour),
		UserID:      userID,
		UserEmail:   "user@example.com",
	}
}

func waitFor(t *testing.T, timeout time.Duration, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestStoreBootsLoading(t *testing.T) {
	store := NewStore(&fakeProvider{}, nil, Options{})

	state := store.Snapshot()
	if !state.IsLoading {
		t.Fatalf("expected store to boot with IsLoading true")
	}
	if state.Status() != StatusBooting {
		t.Fatalf("expected booting status, got %s", state.Status())
	}
}

func TestInitializeWithSession(t *testing.T) {
	userID := uuid.New()
	provider := &fakeProvider{session: testSession(userID)}
	store := NewStore(provider, nil, Options{})

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	state := store.Snapshot()
	if state.User == nil || state.User.ID != userID {
		t.Fatalf("expected user to be set")
	}
	if !state.IsAuthenticated {
		t.Fatalf("expected authenticated state")
	}
	if state.IsLoading {
		t.Fatalf("expected loading to be cleared")
	}
	if state.Status() != StatusAuthenticated {
		t.Fatalf("expected authenticated status, got %s", state.Status())
	}
}

func TestInitializeWithoutSession(t *testing.T) {
	store := NewStore(&fakeProvider{}, nil, Options{})

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	state := store.Snapshot()
	if state.User != nil || state.IsAuthenticated {
		t.Fatalf("expected anonymous state")
	}
	if state.IsLoading {
		t.Fatalf("expected loading to be cleared")
	}
}

func TestInitializeErrorStillClearsLoading(t *testing.T) {
	// Boot from a previously persisted signed-in state; the failed restore
	// must not let it survive as authenticated.
	userID := uuid.New()
	persister := &memPersister{state: &PersistedState{
		User:            &AuthUser{ID: userID, Email: "a@example.com"},
		Profile:         &Profile{ID: userID},
		IsAuthenticated: true,
	}}
	provider := &fakeProvider{err: errors.New("network down")}
	store := NewStore(provider, nil, Options{Persister: persister})

	if err := store.Initialize(context.Background()); err == nil {
		t.Fatalf("expected initialize to report the provider error")
	}

	state := store.Snapshot()
	if state.IsLoading {
		t.Fatalf("expected loading cleared even after failure")
	}
	if state.User != nil || state.Profile != nil || state.IsAuthenticated {
		t.Fatalf("expected restored session cleared on failed restore, got %+v", state)
	}
	if saved := persister.last(); saved == nil || saved.User != nil || saved.IsAuthenticated {
		t.Fatalf("expected cleared state persisted, got %+v", saved)
	}
}

// stuckProvider ignores cancellation entirely until released.
type stuckProvider struct {
	fakeProvider
	release chan struct{}
}

func (p *stuckProvider) Session(ctx context.Context) (*Session, error) {
	<-p.release
	return nil, nil
}

func TestInitializeWatchdogUnblocksStuckProvider(t *testing.T) {
	userID := uuid.New()
	persister := &memPersister{state: &PersistedState{
		User:            &AuthUser{ID: userID},
		IsAuthenticated: true,
	}}
	provider := &stuckProvider{release: make(chan struct{})}
	defer close(provider.release)

	store := NewStore(provider, nil, Options{Persister: persister, InitTimeout: 30 * time.Millisecond})

	go func() {
		_ = store.Initialize(context.Background())
	}()

	// The provider never honors the deadline; the watchdog must settle the
	// state on its own.
	waitFor(t, time.Second, func() bool {
		state := store.Snapshot()
		return !state.IsLoading && !state.IsAuthenticated
	})
}

func TestInitializeTwiceConverges(t *testing.T) {
	userID := uuid.New()
	provider := &fakeProvider{session: testSession(userID)}
	store := NewStore(provider, nil, Options{})

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("first initialize failed: %v", err)
	}
	first := store.Snapshot()

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("second initialize failed: %v", err)
	}
	second := store.Snapshot()

	if first.User == nil || second.User == nil || first.User.ID != second.User.ID {
		t.Fatalf("expected the same user after repeated initialize: %+v vs %+v", first, second)
	}
	if first.IsAuthenticated != second.IsAuthenticated || first.IsLoading != second.IsLoading {
		t.Fatalf("expected the same terminal state: %+v vs %+v", first, second)
	}
}

func TestInitializeIsBounded(t *testing.T) {
	provider := &fakeProvider{delay: time.Second}
	store := NewStore(provider, nil, Options{InitTimeout: 20 * time.Millisecond})

	start := time.Now()
	err := store.Initialize(context.Background())
	elapsed := time.Since(start)

	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("initialize took %s; expected it bounded by the timeout", elapsed)
	}
	if store.Snapshot().IsLoading {
		t.Fatalf("expected loading cleared after timeout")
	}
}

func TestInitializeFetchesProfile(t *testing.T) {
	userID := uuid.New()
	provider := &fakeProvider{session: testSession(userID)}
	fetcher := &fakeFetcher{profile: &Profile{ID: userID, Email: "user@example.com"}}
	store := NewStore(provider, fetcher, Options{})

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return store.Snapshot().Profile != nil
	})
}

func TestProfileFailureDoesNotBlockAuth(t *testing.T) {
	userID := uuid.New()
	provider := &fakeProvider{session: testSession(userID)}
	fetcher := &fakeFetcher{err: errors.New("profile service down")}
	store := NewStore(provider, fetcher, Options{})

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	state := store.Snapshot()
	if !state.IsAuthenticated {
		t.Fatalf("expected authenticated despite profile failure")
	}
	if state.Profile != nil {
		t.Fatalf("expected no profile")
	}
}

func TestSetProfileRejectsMismatchedUser(t *testing.T) {
	store := NewStore(&fakeProvider{}, nil, Options{})
	userID := uuid.New()
	store.SetUser(&AuthUser{ID: userID, Email: "a@example.com"})

	store.SetProfile(&Profile{ID: uuid.New()})
	if store.Snapshot().Profile != nil {
		t.Fatalf("expected mismatched profile to be discarded")
	}

	store.SetProfile(&Profile{ID: userID})
	if store.Snapshot().Profile == nil {
		t.Fatalf("expected matching profile to be applied")
	}
}

func TestSetProfileRequiresUser(t *testing.T) {
	store := NewStore(&fakeProvider{}, nil, Options{})

	store.SetProfile(&Profile{ID: uuid.New()})
	if store.Snapshot().Profile != nil {
		t.Fatalf("expected profile without user to be discarded")
	}
}

func TestSetUserNilClearsProfile(t *testing.T) {
	store := NewStore(&fakeProvider{}, nil, Options{})
	userID := uuid.New()
	store.SetUser(&AuthUser{ID: userID})
	store.SetProfile(&Profile{ID: userID})

	store.SetUser(nil)

	state := store.Snapshot()
	if state.User != nil || state.Profile != nil || state.IsAuthenticated {
		t.Fatalf("expected fully cleared state, got %+v", state)
	}
}

func TestSetUserIsIdempotent(t *testing.T) {
	store := NewStore(&fakeProvider{}, nil, Options{})
	userID := uuid.New()
	user := &AuthUser{ID: userID, Email: "a@example.com"}

	store.SetUser(user)
	first := store.Snapshot()
	store.SetUser(user)
	second := store.Snapshot()

	if first.User.ID != second.User.ID || first.IsAuthenticated != second.IsAuthenticated {
		t.Fatalf("expected repeated SetUser to converge to the same state")
	}
}

func TestSignOutIsLocalFirst(t *testing.T) {
	userID := uuid.New()
	provider := &fakeProvider{session: testSession(userID), signOutErr: errors.New("server unreachable")}
	navigator := &recordingNavigator{}
	store := NewStore(provider, nil, Options{Navigator: navigator})
	store.SetUser(&AuthUser{ID: userID})

	store.SignOut(context.Background())

	state := store.Snapshot()
	if state.User != nil || state.IsAuthenticated || state.IsLoading {
		t.Fatalf("expected immediate local sign-out, got %+v", state)
	}
	if navigator.count() != 1 {
		t.Fatalf("expected one navigation, got %d", navigator.count())
	}

	// Remote revocation still happens, in the background.
	waitFor(t, time.Second, func() bool { return provider.signOuts() == 1 })
}

func TestSignOutDiscardsInFlightProfile(t *testing.T) {
	userID := uuid.New()
	provider := &fakeProvider{session: testSession(userID)}
	fetcher := &fakeFetcher{
		profile: &Profile{ID: userID},
		block:   make(chan struct{}),
	}
	store := NewStore(provider, fetcher, Options{})

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	// Sign out while the profile fetch is still in flight, then let it finish.
	store.SignOut(context.Background())
	close(fetcher.block)

	time.Sleep(50 * time.Millisecond)
	state := store.Snapshot()
	if state.Profile != nil || state.User != nil {
		t.Fatalf("expected stale profile fetch to be discarded, got %+v", state)
	}
}

func TestPersistedSubsetExcludesLoading(t *testing.T) {
	persister := &memPersister{}
	store := NewStore(&fakeProvider{}, nil, Options{Persister: persister})
	userID := uuid.New()

	store.SetUser(&AuthUser{ID: userID, Email: "a@example.com"})
	store.SetLoading(true)

	saved := persister.last()
	if saved == nil {
		t.Fatalf("expected state to be persisted")
	}
	if saved.User == nil || saved.User.ID != userID {
		t.Fatalf("expected user to be persisted")
	}
	if !saved.IsAuthenticated {
		t.Fatalf("expected isAuthenticated to be persisted")
	}
}

// firstSlowPersister stalls its first save so a later snapshot can race it.
type firstSlowPersister struct {
	memPersister
	calls int32
}

func (p *firstSlowPersister) Save(state PersistedState) error {
	if atomic.AddInt32(&p.calls, 1) == 1 {
		time.Sleep(50 * time.Millisecond)
	}
	return p.memPersister.Save(state)
}

func TestSnapshotsPersistInMutationOrder(t *testing.T) {
	persister := &firstSlowPersister{}
	store := NewStore(&fakeProvider{}, nil, Options{Persister: persister})
	userID := uuid.New()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.SetUser(&AuthUser{ID: userID})
	}()

	// Sign out while the first snapshot is still being written. The older
	// snapshot must not land on disk after the newer one.
	time.Sleep(10 * time.Millisecond)
	store.SetUser(nil)
	wg.Wait()

	saved := persister.last()
	if saved == nil || saved.User != nil || saved.IsAuthenticated {
		t.Fatalf("expected the signed-out snapshot to be the last on disk, got %+v", saved)
	}
}

func TestRestoredStateBootsLoading(t *testing.T) {
	userID := uuid.New()
	persister := &memPersister{state: &PersistedState{
		User:            &AuthUser{ID: userID, Email: "a@example.com"},
		Profile:         &Profile{ID: userID},
		IsAuthenticated: true,
	}}

	store := NewStore(&fakeProvider{}, nil, Options{Persister: persister})

	state := store.Snapshot()
	if !state.IsLoading {
		t.Fatalf("restored state must boot with IsLoading true")
	}
	if state.User == nil || state.Profile == nil || !state.IsAuthenticated {
		t.Fatalf("expected restored user and profile, got %+v", state)
	}
}

func TestRestoredMismatchedProfileIsDropped(t *testing.T) {
	persister := &memPersister{state: &PersistedState{
		User:            &AuthUser{ID: uuid.New()},
		Profile:         &Profile{ID: uuid.New()},
		IsAuthenticated: true,
	}}

	store := NewStore(&fakeProvider{}, nil, Options{Persister: persister})

	if store.Snapshot().Profile != nil {
		t.Fatalf("expected mismatched restored profile to be dropped")
	}
}

func TestSubscribeNotifiesAndUnsubscribes(t *testing.T) {
	store := NewStore(&fakeProvider{}, nil, Options{})

	var mu sync.Mutex
	var notifications int
	cancel := store.Subscribe(func(AuthState) {
		mu.Lock()
		notifications++
		mu.Unlock()
	})

	store.SetUser(&AuthUser{ID: uuid.New()})
	cancel()
	store.SetUser(nil)

	mu.Lock()
	defer mu.Unlock()
	if notifications != 1 {
		t.Fatalf("expected 1 notification, got %d", notifications)
	}
}

func TestConcurrentUpdatesConverge(t *testing.T) {
	store := NewStore(&fakeProvider{}, nil, Options{})
	userID := uuid.New()
	user := &AuthUser{ID: userID, Email: "a@example.com"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.SetUser(user)
			store.SetProfile(&Profile{ID: userID})
		}()
	}
	wg.Wait()

	state := store.Snapshot()
	if state.User == nil || state.User.ID != userID {
		t.Fatalf("expected user after concurrent updates")
	}
	if !state.IsAuthenticated {
		t.Fatalf("expected authenticated after concurrent updates")
	}
	if state.Profile == nil || state.Profile.ID != userID {
		t.Fatalf("expected profile after concurrent updates")
	}
}
