package shots_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"shotreel/internal/services"
	"shotreel/internal/shots"
	"shotreel/internal/testsupport"
)

func numbersOf(t *testing.T, store *shots.Store) ([]string, []int) {
	t.Helper()
	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	ids := make([]string, len(list))
	numbers := make([]int, len(list))
	for i, shot := range list {
		ids[i] = shot.ID
		numbers[i] = shot.Number
	}
	return ids, numbers
}

func assertContiguous(t *testing.T, numbers []int) {
	t.Helper()
	for i, n := range numbers {
		if n != i+1 {
			t.Fatalf("numbers not contiguous: %v", numbers)
		}
	}
}

func TestReplaceAssignsNumbersAndIDs(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	stored, err := store.Replace(ctx, []shots.Shot{
		{Description: "intro", DurationFrames: 90, VisualElements: []string{"logo", "glow"}, NarrativeRole: "hook"},
		{Description: "outro", DurationFrames: 60},
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if len(stored) != 2 || stored[0].ID == "" || stored[0].ID == stored[1].ID {
		t.Fatalf("expected generated ids, got %+v", stored)
	}

	got := testsupport.MustGetShot(t, store, stored[0].ID)
	if got.Number != 1 || got.Status != shots.StatusPending {
		t.Fatalf("unexpected shot %+v", got)
	}
	if len(got.VisualElements) != 2 || got.VisualElements[1] != "glow" {
		t.Fatalf("visual elements not round-tripped: %v", got.VisualElements)
	}
	if got.NarrativeRole != "hook" {
		t.Fatalf("narrative role not stored: %q", got.NarrativeRole)
	}

	if _, err := store.Replace(ctx, []shots.Shot{{ID: "only", Description: "x", DurationFrames: 30}}); err != nil {
		t.Fatalf("second Replace: %v", err)
	}
	ids, numbers := numbersOf(t, store)
	if len(ids) != 1 || ids[0] != "only" || numbers[0] != 1 {
		t.Fatalf("expected replacement to discard old shots, got %v %v", ids, numbers)
	}
}

func TestReplaceRejectsInvalidShots(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := store.Replace(context.Background(), []shots.Shot{{ID: "a", Description: "x", DurationFrames: 0}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = store.Replace(context.Background(), []shots.Shot{
		{ID: "a", Description: "x", DurationFrames: 30},
		{ID: "a", Description: "y", DurationFrames: 30},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedShots(t, store, 1)
	ctx := context.Background()

	if _, err := store.MarkGenerating(ctx, "shot-1"); err != nil {
		t.Fatalf("MarkGenerating: %v", err)
	}
	if _, err := store.MarkCodeReady(ctx, "shot-1", "export default () => null;"); err != nil {
		t.Fatalf("MarkCodeReady: %v", err)
	}
	if _, err := store.MarkRendering(ctx, "shot-1"); err != nil {
		t.Fatalf("MarkRendering: %v", err)
	}
	if _, err := store.MarkError(ctx, "shot-1", "TypeError: boom"); err != nil {
		t.Fatalf("MarkError: %v", err)
	}
	errored := testsupport.MustGetShot(t, store, "shot-1")
	if errored.Error != "TypeError: boom" || errored.Code == "" {
		t.Fatalf("unexpected errored shot %+v", errored)
	}

	regen, err := store.MarkGenerating(ctx, "shot-1")
	if err != nil {
		t.Fatalf("MarkGenerating after error: %v", err)
	}
	if regen.Error != "" {
		t.Fatalf("expected error cleared, got %q", regen.Error)
	}
	if regen.Code == "" {
		t.Fatal("expected prior code kept as revision base")
	}

	if _, err := store.MarkCodeReady(ctx, "shot-1", "fixed"); err != nil {
		t.Fatalf("MarkCodeReady: %v", err)
	}
	if _, err := store.MarkRendering(ctx, "shot-1"); err != nil {
		t.Fatalf("MarkRendering: %v", err)
	}
	done, err := store.MarkComplete(ctx, "shot-1", "https://cdn/shot-1.mp4")
	if err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	if done.Status != shots.StatusComplete || done.VideoURL == "" {
		t.Fatalf("unexpected completed shot %+v", done)
	}
}

func TestUpdateRejectsInvalidTransition(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedShots(t, store, 1)

	_, err := store.MarkComplete(context.Background(), "shot-1", "https://cdn/x.mp4")
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "invalid transition") {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
	if got := testsupport.MustGetShot(t, store, "shot-1"); got.Status != shots.StatusPending {
		t.Fatalf("expected shot unchanged, got %s", got.Status)
	}
}

func TestUpdateRejectsRenderingWithoutCode(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedShots(t, store, 1)
	ctx := context.Background()
	if _, err := store.MarkGenerating(ctx, "shot-1"); err != nil {
		t.Fatalf("MarkGenerating: %v", err)
	}
	if _, err := store.MarkCodeReady(ctx, "shot-1", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty code, got %v", err)
	}
}

func TestUpdateMissingShot(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if _, err := store.MarkGenerating(context.Background(), "ghost"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteRenumbers(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedShots(t, store, 4)

	if err := store.Delete(context.Background(), "shot-2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ids, numbers := numbersOf(t, store)
	if strings.Join(ids, ",") != "shot-1,shot-3,shot-4" {
		t.Fatalf("unexpected order %v", ids)
	}
	assertContiguous(t, numbers)

	if err := store.Delete(context.Background(), "shot-2"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestReorderRenumbers(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedShots(t, store, 3)
	ctx := context.Background()

	if err := store.Reorder(ctx, []string{"shot-3", "shot-1", "shot-2"}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	ids, numbers := numbersOf(t, store)
	if strings.Join(ids, ",") != "shot-3,shot-1,shot-2" {
		t.Fatalf("unexpected order %v", ids)
	}
	assertContiguous(t, numbers)

	cases := [][]string{
		{"shot-1", "shot-2"},
		{"shot-1", "shot-1", "shot-2"},
		{"shot-1", "shot-2", "ghost"},
	}
	for _, ids := range cases {
		if err := store.Reorder(ctx, ids); err == nil {
			t.Fatalf("expected Reorder(%v) to fail", ids)
		}
	}
	_, numbers = numbersOf(t, store)
	assertContiguous(t, numbers)
}

func TestThemesRoundTrip(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	empty, err := store.Themes(ctx)
	if err != nil || empty.Visual != nil {
		t.Fatalf("expected empty themes, got %+v %v", empty, err)
	}

	visual := json.RawMessage(`{"colors":["#000"]}`)
	if err := store.SaveThemes(ctx, shots.Themes{Prompt: "launch video", Title: "Launch", Visual: visual}); err != nil {
		t.Fatalf("SaveThemes: %v", err)
	}
	if err := store.SaveThemes(ctx, shots.Themes{Prompt: "launch video v2", Visual: visual}); err != nil {
		t.Fatalf("SaveThemes overwrite: %v", err)
	}
	got, err := store.Themes(ctx)
	if err != nil {
		t.Fatalf("Themes: %v", err)
	}
	if got.Prompt != "launch video v2" || string(got.Visual) != string(visual) || got.Narrative != nil {
		t.Fatalf("unexpected themes %+v", got)
	}
}

func TestCounts(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedShots(t, store, 3)
	if _, err := store.MarkGenerating(context.Background(), "shot-1"); err != nil {
		t.Fatalf("MarkGenerating: %v", err)
	}
	counts, err := store.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[shots.StatusPending] != 2 || counts[shots.StatusGenerating] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if _, err := store.List(context.Background()); err != nil {
		t.Fatalf("List: %v", err)
	}
	_ = store.Close()

	reopened, err := shots.OpenPath(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.List(context.Background()); err != nil {
		t.Fatalf("List after reopen: %v", err)
	}
}

func TestResetStuckMovesInFlightShotsToError(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedShots(t, store, 3)
	ctx := context.Background()

	// shot-1 mid-generation, shot-2 mid-render, shot-3 untouched.
	if _, err := store.MarkGenerating(ctx, "shot-1"); err != nil {
		t.Fatalf("MarkGenerating: %v", err)
	}
	if _, err := store.MarkGenerating(ctx, "shot-2"); err != nil {
		t.Fatalf("MarkGenerating: %v", err)
	}
	if _, err := store.MarkCodeReady(ctx, "shot-2", "export const A = 1;"); err != nil {
		t.Fatalf("MarkCodeReady: %v", err)
	}
	if _, err := store.MarkRendering(ctx, "shot-2"); err != nil {
		t.Fatalf("MarkRendering: %v", err)
	}

	reset, err := store.ResetStuck(ctx)
	if err != nil {
		t.Fatalf("ResetStuck: %v", err)
	}
	if reset != 2 {
		t.Fatalf("expected 2 shots reset, got %d", reset)
	}
	for _, id := range []string{"shot-1", "shot-2"} {
		got := testsupport.MustGetShot(t, store, id)
		if got.Status != shots.StatusError || got.Error != shots.InterruptedMessage {
			t.Fatalf("%s: unexpected shot after reset %+v", id, got)
		}
	}
	if got := testsupport.MustGetShot(t, store, "shot-2"); got.Code == "" {
		t.Fatal("expected generated code kept for a manual retry")
	}
	if got := testsupport.MustGetShot(t, store, "shot-3"); got.Status != shots.StatusPending {
		t.Fatalf("expected idle shot untouched, got %s", got.Status)
	}

	// Reset shots accept a manual retry.
	if _, err := store.MarkRendering(ctx, "shot-2"); err != nil {
		t.Fatalf("MarkRendering after reset: %v", err)
	}

	again, err := store.ResetStuck(ctx)
	if err != nil || again != 1 {
		t.Fatalf("expected the re-rendering shot reset, got %d err=%v", again, err)
	}
}

func TestUpdateDescription(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedShots(t, store, 2)
	ctx := context.Background()

	updated, err := store.UpdateDescription(ctx, "shot-1", "  Logo spins into view  ")
	if err != nil {
		t.Fatalf("UpdateDescription: %v", err)
	}
	if updated.Description != "Logo spins into view" || updated.Status != shots.StatusPending {
		t.Fatalf("unexpected shot %+v", updated)
	}
	if got := testsupport.MustGetShot(t, store, "shot-1"); got.Description != "Logo spins into view" {
		t.Fatalf("description not persisted: %q", got.Description)
	}

	if _, err := store.UpdateDescription(ctx, "shot-1", "   "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty description, got %v", err)
	}

	if _, err := store.MarkGenerating(ctx, "shot-2"); err != nil {
		t.Fatalf("MarkGenerating: %v", err)
	}
	if _, err := store.UpdateDescription(ctx, "shot-2", "new text"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected in-flight shot to be rejected, got %v", err)
	}
	if _, err := store.UpdateDescription(ctx, "ghost", "new text"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
