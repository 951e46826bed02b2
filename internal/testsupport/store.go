package testsupport

import (
	"context"
	"fmt"
	"testing"

	"shotreel/internal/config"
	"shotreel/internal/shots"
)

// MustOpenStore opens a shots.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *shots.Store {
	t.Helper()

	store, err := shots.Open(cfg)
	if err != nil {
		t.Fatalf("shots.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedShots stores count pending shots of 60 frames each, with ids
// "shot-1".."shot-N", and returns them.
func SeedShots(t testing.TB, store *shots.Store, count int) []shots.Shot {
	t.Helper()

	seed := make([]shots.Shot, count)
	for i := range seed {
		seed[i] = shots.Shot{
			ID:             fmt.Sprintf("shot-%d", i+1),
			Description:    fmt.Sprintf("Shot %d description", i+1),
			VisualElements: []string{"title card"},
			DurationFrames: 60,
		}
	}
	stored, err := store.Replace(context.Background(), seed)
	if err != nil {
		t.Fatalf("seed shots: %v", err)
	}
	return stored
}

// MustGetShot fetches a shot and fails the test when it is missing.
func MustGetShot(t testing.TB, store *shots.Store, id string) shots.Shot {
	t.Helper()

	shot, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get shot %s: %v", id, err)
	}
	if shot == nil {
		t.Fatalf("shot %s not found", id)
	}
	return *shot
}
