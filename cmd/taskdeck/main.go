package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"taskdeck/internal/apiclient"
	"taskdeck/internal/idp"
	"taskdeck/internal/platform/logging"
	"taskdeck/internal/session"
)

// app bundles the client core: the identity provider client, the auth state
// store, the credential cache, and the API client.
type app struct {
	provider *idp.Client
	store    *session.Store
	cache    *session.CredentialCache
	api      *apiclient.Client
	logger   *slog.Logger

	stopSync func()
}

// cliNavigator tells the user how to get back in when the session dies.
type cliNavigator struct{}

func (cliNavigator) NavigateToLogin() {
	fmt.Fprintln(os.Stderr, "You are signed out. Run `taskdeck login` to sign in again.")
}

func newApp() (*app, error) {
	_ = godotenv.Load()

	baseURL := os.Getenv("TASKDECK_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	stateDir, err := stateDirectory()
	if err != nil {
		return nil, err
	}

	logger := logging.New(strings.ToLower(envOr("TASKDECK_LOG_LEVEL", "warn")))

	provider := idp.NewClient(baseURL, idp.NewTokenFile(filepath.Join(stateDir, "credentials.json")), logger)
	cache := session.NewCredentialCache()
	api := apiclient.New(baseURL, provider, cache, logger)

	store := session.NewStore(provider, api, session.Options{
		Persister: session.NewFilePersister(filepath.Join(stateDir, "auth-state.json")),
		Navigator: cliNavigator{},
		Logger:    logger,
	})
	api.OnUnauthorized(func() {
		store.SignOut(context.Background())
	})

	a := &app{
		provider: provider,
		store:    store,
		cache:    cache,
		api:      api,
		logger:   logger,
	}

	// Mirror provider events into the store for the lifetime of the command.
	syncCtx, cancel := context.WithCancel(context.Background())
	synchronizer := session.NewSynchronizer(store, cache, logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		synchronizer.Run(syncCtx)
	}()
	a.stopSync = func() {
		cancel()
		<-done
	}

	return a, nil
}

// bootSettleTimeout bounds how long a command waits for session restore. The
// store has its own watchdog; this keeps the CLI itself from hanging on it.
const bootSettleTimeout = 6 * time.Second

// boot restores the session. A boot failure is recoverable: the command
// continues signed out and reports why.
func (a *app) boot(ctx context.Context) {
	done := make(chan error, 1)
	go func() {
		done <- a.store.Initialize(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not restore session: %v\n", err)
		}
	case <-time.After(bootSettleTimeout):
		fmt.Fprintln(os.Stderr, "warning: session restore is taking too long; continuing signed out")
	}
}

func (a *app) close() {
	if a.stopSync != nil {
		a.stopSync()
	}
}

// requireUser returns the signed-in user or an instructive error.
func (a *app) requireUser() (*session.AuthUser, error) {
	state := a.store.Snapshot()
	if state.User == nil {
		return nil, fmt.Errorf("not signed in; run `taskdeck login` first")
	}
	return state.User, nil
}

func stateDirectory() (string, error) {
	if dir := os.Getenv("TASKDECK_STATE_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "taskdeck"), nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	root := &cobra.Command{
		Use:           "taskdeck",
		Short:         "Taskdeck is a personal task manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCommand(),
		newRegisterCommand(),
		newLogoutCommand(),
		newWhoamiCommand(),
		newTaskCommand(),
		newCategoryCommand(),
		newStatsCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
