package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultInitTimeout    = 5 * time.Second
	defaultProfileTimeout = 5 * time.Second
	defaultSignOutTimeout = 5 * time.Second
)

// Options tunes a Store. Zero values fall back to defaults; Persister and
// Navigator are optional.
type Options struct {
	Persister      Persister
	Navigator      Navigator
	Logger         *slog.Logger
	InitTimeout    time.Duration
	ProfileTimeout time.Duration
	SignOutTimeout time.Duration
}

// Store holds the client's authentication state and keeps it consistent
// across concurrent updates. Every async completion is tagged with the epoch
// current when it started; sign-out bumps the epoch, so results that raced a
// sign-out are discarded instead of resurrecting a dead session.
type Store struct {
	provider Provider
	profiles ProfileFetcher

	persister Persister
	navigator Navigator
	logger    *slog.Logger

	initTimeout    time.Duration
	profileTimeout time.Duration
	signOutTimeout time.Duration

	mu      sync.Mutex
	state   AuthState
	epoch   uint64
	subs    map[int]func(AuthState)
	nextSub int

	// saveMu serializes persister writes in mutation order; it is always
	// acquired while mu is still held.
	saveMu sync.Mutex
}

// NewStore builds a Store, restoring any persisted state. Restored state
// always boots with IsLoading true; only Initialize or the synchronizer may
// declare the session settled.
func NewStore(provider Provider, profiles ProfileFetcher, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = defaultInitTimeout
	}
	if opts.ProfileTimeout <= 0 {
		opts.ProfileTimeout = defaultProfileTimeout
	}
	if opts.SignOutTimeout <= 0 {
		opts.SignOutTimeout = defaultSignOutTimeout
	}

	s := &Store{
		provider:       provider,
		profiles:       profiles,
		persister:      opts.Persister,
		navigator:      opts.Navigator,
		logger:         opts.Logger,
		initTimeout:    opts.InitTimeout,
		profileTimeout: opts.ProfileTimeout,
		signOutTimeout: opts.SignOutTimeout,
		subs:           make(map[int]func(AuthState)),
		state:          AuthState{IsLoading: true},
	}

	if s.persister != nil {
		restored, err := s.persister.Load()
		if err != nil {
			s.logger.Warn("discarding unreadable auth state", "error", err)
		} else if restored != nil {
			s.state.User = restored.User
			s.state.Profile = restored.Profile
			s.state.IsAuthenticated = restored.User != nil
			if s.state.User == nil || s.state.Profile == nil || s.state.Profile.ID != s.state.User.ID {
				s.state.Profile = nil
			}
		}
	}

	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Epoch returns the current staleness epoch.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Subscribe registers fn to be called after every state change. The returned
// func removes the subscription.
func (s *Store) Subscribe(fn func(AuthState)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SetUser replaces the signed-in user. Clearing the user also clears the
// profile; switching users drops a profile that no longer matches.
func (s *Store) SetUser(user *AuthUser) {
	s.mu.Lock()
	s.applyUserLocked(user)
	s.afterMutationLocked()
}

// SetProfile attaches a profile to the current user. A profile for a
// different user, or for no user at all, is discarded.
func (s *Store) SetProfile(p *Profile) {
	s.mu.Lock()
	if !s.applyProfileLocked(p) {
		s.mu.Unlock()
		return
	}
	s.afterMutationLocked()
}

// SetLoading flips the loading flag.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	if s.state.IsLoading == loading {
		s.mu.Unlock()
		return
	}
	s.state.IsLoading = loading
	s.afterMutationLocked()
}

// Initialize restores the session from the provider, bounded by the
// configured timeout. Failure and no-session both resolve to a signed-out
// state; a restored user never survives a failed restore. The loading flag is
// cleared on every path, including errors and a provider that ignores
// cancellation, so the client never hangs on the boot screen. The profile is
// fetched in the background; its failure does not fail initialization.
func (s *Store) Initialize(ctx context.Context) error {
	epoch := s.Epoch()

	// Last-resort watchdog: a provider that ignores cancellation must not
	// leave the client stuck booting. Firing is harmless on the normal path;
	// every transition here is idempotent and epoch-guarded.
	watchdog := time.AfterFunc(s.initTimeout, func() {
		s.logger.Warn("session restore did not settle in time; continuing signed out")
		s.setUserAt(epoch, nil)
		s.setLoadingAt(epoch, false)
	})
	defer watchdog.Stop()

	ctx, cancel := context.WithTimeout(ctx, s.initTimeout)
	defer cancel()
	defer s.setLoadingAt(epoch, false)

	sess, err := s.provider.Session(ctx)
	if err != nil {
		s.setUserAt(epoch, nil)
		return fmt.Errorf("restore session: %w", err)
	}

	if sess == nil {
		s.setUserAt(epoch, nil)
		return nil
	}

	s.setUserAt(epoch, &AuthUser{ID: sess.UserID, Email: sess.UserEmail})
	s.FetchProfileAsync(epoch, sess.UserID)
	return nil
}

// FetchProfileAsync loads the user's profile in the background and applies it
// only if the epoch is still current.
func (s *Store) FetchProfileAsync(epoch uint64, userID uuid.UUID) {
	if s.profiles == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.profileTimeout)
		defer cancel()

		p, err := s.profiles.FetchProfile(ctx, userID)
		if err != nil {
			s.logger.Warn("profile fetch failed", "error", err, "user_id", userID)
			return
		}
		s.setProfileAt(epoch, p)
	}()
}

// SignOut clears local state immediately, then revokes the remote session in
// the background. A failed or slow revocation never blocks the local
// transition; the user is signed out the moment this returns.
func (s *Store) SignOut(ctx context.Context) {
	s.mu.Lock()
	s.epoch++
	s.state = AuthState{}
	s.afterMutationLocked()

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.signOutTimeout)
		defer cancel()
		if err := s.provider.SignOut(ctx); err != nil {
			s.logger.Warn("remote sign-out failed", "error", err)
		}
	}()

	if s.navigator != nil {
		s.navigator.NavigateToLogin()
	}
}

// setUserAt applies the user only if the epoch is still current.
func (s *Store) setUserAt(epoch uint64, user *AuthUser) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.applyUserLocked(user)
	s.afterMutationLocked()
}

// setProfileAt applies the profile only if the epoch is still current.
func (s *Store) setProfileAt(epoch uint64, p *Profile) {
	s.mu.Lock()
	if s.epoch != epoch || !s.applyProfileLocked(p) {
		s.mu.Unlock()
		return
	}
	s.afterMutationLocked()
}

// setLoadingAt clears or sets loading only if the epoch is still current.
func (s *Store) setLoadingAt(epoch uint64, loading bool) {
	s.mu.Lock()
	if s.epoch != epoch || s.state.IsLoading == loading {
		s.mu.Unlock()
		return
	}
	s.state.IsLoading = loading
	s.afterMutationLocked()
}

func (s *Store) applyUserLocked(user *AuthUser) {
	s.state.User = user
	s.state.IsAuthenticated = user != nil
	if user == nil || (s.state.Profile != nil && s.state.Profile.ID != user.ID) {
		s.state.Profile = nil
	}
}

func (s *Store) applyProfileLocked(p *Profile) bool {
	if p != nil {
		if s.state.User == nil {
			s.logger.Warn("dropping profile with no signed-in user", "profile_id", p.ID)
			return false
		}
		if p.ID != s.state.User.ID {
			s.logger.Warn("dropping profile for different user", "profile_id", p.ID, "user_id", s.state.User.ID)
			return false
		}
	}
	s.state.Profile = p
	return true
}

// afterMutationLocked persists and notifies, releasing the lock. Callers must
// hold the lock and must not touch the store afterwards in the same critical
// section. Taking saveMu before releasing mu keeps snapshots on disk in
// mutation order; the write itself happens outside the state lock.
func (s *Store) afterMutationLocked() {
	state := s.state
	subs := make([]func(AuthState), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	if s.persister != nil {
		s.saveMu.Lock()
	}
	s.mu.Unlock()

	if s.persister != nil {
		err := s.persister.Save(PersistedState{
			User:            state.User,
			Profile:         state.Profile,
			IsAuthenticated: state.IsAuthenticated,
		})
		s.saveMu.Unlock()
		if err != nil {
			s.logger.Warn("persist auth state failed", "error", err)
		}
	}

	for _, fn := range subs {
		fn(state)
	}
}
