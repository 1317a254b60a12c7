package testsupport

import (
	"context"
	"testing"

	"streamcap/internal/config"
	"streamcap/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewTarget builds a minimal activated target for tests.
func NewTarget(url, name string) *store.Target {
	return &store.Target{
		URL:       url,
		Name:      name,
		Platform:  "hls",
		Activated: true,
	}
}

// MustUpsert persists a target and fails the test on error.
func MustUpsert(t testing.TB, st *store.Store, target *store.Target) *store.Target {
	t.Helper()

	if err := st.Upsert(context.Background(), target); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return target
}
