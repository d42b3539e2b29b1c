package testsupport

import (
	"context"
	"testing"

	"echosync/internal/cases"
	"echosync/internal/config"
	"echosync/internal/store"
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

// SeedCase saves a case for tests using the provided store.
func SeedCase(t testing.TB, st *store.Store, record *cases.Case) *cases.Case {
	t.Helper()

	saved, err := st.Save(context.Background(), record)
	if err != nil {
		t.Fatalf("store.Save: %v", err)
	}
	return saved
}
