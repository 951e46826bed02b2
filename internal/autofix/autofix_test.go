package autofix_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"shotreel/internal/autofix"
	"shotreel/internal/codegen"
	"shotreel/internal/shots"
	"shotreel/internal/testsupport"
)

type stubGenerator struct {
	mu    sync.Mutex
	calls []codegen.ShotContext
	code  string
	err   error
}

func (g *stubGenerator) Generate(_ context.Context, sc codegen.ShotContext) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, sc)
	if g.err != nil {
		return "", g.err
	}
	return g.code, nil
}

type recordingResubmitter struct {
	mu    sync.Mutex
	shots []shots.Shot
	err   error
}

func (r *recordingResubmitter) Resubmit(_ context.Context, shot shots.Shot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shots = append(r.shots, shot)
	return r.err
}

// failedShot seeds a storyboard and drives shot-2 into the error state with code.
func failedShot(t *testing.T) *shots.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedShots(t, store, 3)

	ctx := context.Background()
	steps := []func() (*shots.Shot, error){
		func() (*shots.Shot, error) { return store.MarkGenerating(ctx, "shot-2") },
		func() (*shots.Shot, error) { return store.MarkCodeReady(ctx, "shot-2", "const broken = true;") },
		func() (*shots.Shot, error) { return store.MarkRendering(ctx, "shot-2") },
		func() (*shots.Shot, error) { return store.MarkError(ctx, "shot-2", "TypeError: x is not a function") },
	}
	for _, step := range steps {
		if _, err := step(); err != nil {
			t.Fatalf("prepare shot: %v", err)
		}
	}
	return store
}

func TestFixRegeneratesAndResubmits(t *testing.T) {
	store := failedShot(t)
	gen := &stubGenerator{code: "const fixed = true;"}
	resub := &recordingResubmitter{}
	ctrl := autofix.New(store, gen, resub)

	if err := ctrl.Fix(context.Background(), "shot-2", "TypeError: x is not a function"); err != nil {
		t.Fatalf("Fix: %v", err)
	}

	got := testsupport.MustGetShot(t, store, "shot-2")
	if got.Status != shots.StatusCodeReady || got.Code != "const fixed = true;" || got.Error != "" {
		t.Fatalf("unexpected shot after fix: %+v", got)
	}
	if ctrl.Ledger().Count("shot-2") != 1 {
		t.Fatalf("expected one recorded attempt, got %d", ctrl.Ledger().Count("shot-2"))
	}
	if len(resub.shots) != 1 || resub.shots[0].ID != "shot-2" || resub.shots[0].Code != "const fixed = true;" {
		t.Fatalf("unexpected resubmissions %+v", resub.shots)
	}

	sc := gen.calls[0]
	if sc.PreviousCode != "const broken = true;" {
		t.Fatalf("expected prior code as revision base, got %q", sc.PreviousCode)
	}
	if sc.Previous == nil || sc.Previous.Number != 1 || sc.Next == nil || sc.Next.Number != 3 {
		t.Fatalf("expected neighbour context, got %+v %+v", sc.Previous, sc.Next)
	}
	if !strings.HasPrefix(sc.Description, "Shot 2 description") ||
		!strings.Contains(sc.Description, "\"TypeError: x is not a function\"") {
		t.Fatalf("unexpected repair description %q", sc.Description)
	}
}

func TestFixExhaustsBudget(t *testing.T) {
	store := failedShot(t)
	gen := &stubGenerator{code: "const fixed = true;"}
	ctrl := autofix.New(store, gen, &recordingResubmitter{})
	ctrl.Ledger().Increment("shot-2")
	ctrl.Ledger().Increment("shot-2")

	err := ctrl.Fix(context.Background(), "shot-2", "ReferenceError: foo is not defined")
	if !errors.Is(err, autofix.ErrBudgetExhausted) {
		t.Fatalf("expected budget exhaustion, got %v", err)
	}
	got := testsupport.MustGetShot(t, store, "shot-2")
	want := "Code error after 2 attempts: ReferenceError: foo is not defined"
	if got.Status != shots.StatusError || got.Error != want {
		t.Fatalf("unexpected shot %+v", got)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("generator must not run once the budget is spent")
	}
	if ctrl.Ledger().Count("shot-2") != 2 {
		t.Fatalf("ledger should be left in place, got %d", ctrl.Ledger().Count("shot-2"))
	}
}

func TestFixRecordsGenerationFailure(t *testing.T) {
	store := failedShot(t)
	gen := &stubGenerator{err: &codegen.StreamError{Message: "model overloaded"}}
	resub := &recordingResubmitter{}
	ctrl := autofix.New(store, gen, resub)

	if err := ctrl.Fix(context.Background(), "shot-2", "SyntaxError: Unexpected token"); err == nil {
		t.Fatal("expected generation error")
	}
	got := testsupport.MustGetShot(t, store, "shot-2")
	if got.Status != shots.StatusError || got.Error != "model overloaded" {
		t.Fatalf("unexpected shot %+v", got)
	}
	if len(resub.shots) != 0 {
		t.Fatal("failed generation must not resubmit")
	}
}

func TestFixRecordsResubmitFailure(t *testing.T) {
	store := failedShot(t)
	ctrl := autofix.New(store, &stubGenerator{code: "ok"}, &recordingResubmitter{err: errors.New("queue closed")})

	if err := ctrl.Fix(context.Background(), "shot-2", "SyntaxError"); err == nil {
		t.Fatal("expected resubmit error")
	}
	got := testsupport.MustGetShot(t, store, "shot-2")
	if got.Status != shots.StatusError || got.Error != "queue closed" {
		t.Fatalf("unexpected shot %+v", got)
	}
}

func TestFixUnknownShot(t *testing.T) {
	store := failedShot(t)
	ctrl := autofix.New(store, &stubGenerator{code: "ok"}, nil)
	if err := ctrl.Fix(context.Background(), "missing", "SyntaxError"); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestAttemptFixRunsInBackground(t *testing.T) {
	store := failedShot(t)
	resub := &recordingResubmitter{}
	ctrl := autofix.New(store, &stubGenerator{code: "const fixed = 1;"}, resub, autofix.WithMaxRetries(1))

	ctrl.AttemptFix(context.Background(), "shot-2", "TypeError: x is not a function")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctrl.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if ctrl.Active() != 0 {
		t.Fatalf("expected no active repairs, got %d", ctrl.Active())
	}
	if got := testsupport.MustGetShot(t, store, "shot-2"); got.Status != shots.StatusCodeReady {
		t.Fatalf("expected code_ready, got %s", got.Status)
	}
	if len(resub.shots) != 1 {
		t.Fatalf("expected one resubmission, got %d", len(resub.shots))
	}
}

func TestExhaustedMessageUsesBudget(t *testing.T) {
	if got := autofix.ExhaustedMessage(3, "boom"); got != "Code error after 3 attempts: boom" {
		t.Fatalf("unexpected message %q", got)
	}
}

// failingStore fails the named store writes and passes everything else through.
type failingStore struct {
	*shots.Store
	failGenerating bool
	failCodeReady  bool
}

var errStoreWrite = errors.New("database is locked")

func (s *failingStore) MarkGenerating(ctx context.Context, id string) (*shots.Shot, error) {
	if s.failGenerating {
		return nil, errStoreWrite
	}
	return s.Store.MarkGenerating(ctx, id)
}

func (s *failingStore) MarkCodeReady(ctx context.Context, id, code string) (*shots.Shot, error) {
	if s.failCodeReady {
		return nil, errStoreWrite
	}
	return s.Store.MarkCodeReady(ctx, id, code)
}

func TestFixRecordsErrorWhenStoreWritesFail(t *testing.T) {
	cases := []struct {
		name           string
		failGenerating bool
		failCodeReady  bool
		wantMessage    string
	}{
		{name: "mark generating", failGenerating: true, wantMessage: "TypeError: x is not a function"},
		{name: "store repaired code", failCodeReady: true, wantMessage: "store repaired code"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := failedShot(t)
			wrapped := &failingStore{Store: store, failGenerating: tc.failGenerating, failCodeReady: tc.failCodeReady}
			resub := &recordingResubmitter{}
			ctrl := autofix.New(wrapped, &stubGenerator{code: "const fixed = true;"}, resub)

			err := ctrl.Fix(context.Background(), "shot-2", "TypeError: x is not a function")
			if !errors.Is(err, errStoreWrite) {
				t.Fatalf("expected store write error, got %v", err)
			}

			got := testsupport.MustGetShot(t, store, "shot-2")
			if got.Status != shots.StatusError || !strings.Contains(got.Error, tc.wantMessage) {
				t.Fatalf("expected shot left in error with %q, got %+v", tc.wantMessage, got)
			}
			if n := ctrl.Ledger().Count("shot-2"); n != 1 {
				t.Fatalf("expected one attempt recorded, got %d", n)
			}
			if len(resub.shots) != 0 {
				t.Fatalf("expected no resubmission, got %d", len(resub.shots))
			}
		})
	}
}

func TestFixRecordsErrorAfterCancellation(t *testing.T) {
	store := failedShot(t)
	ctx, cancel := context.WithCancel(context.Background())
	gen := &cancellingGenerator{cancel: cancel}
	ctrl := autofix.New(store, gen, &recordingResubmitter{})

	if err := ctrl.Fix(ctx, "shot-2", "TypeError: x is not a function"); err == nil {
		t.Fatal("expected cancelled repair to fail")
	}
	got := testsupport.MustGetShot(t, store, "shot-2")
	if got.Status != shots.StatusError || got.Error == "" {
		t.Fatalf("expected shot recorded as error after cancellation, got %+v", got)
	}
}

// cancellingGenerator cancels the repair mid-generation.
type cancellingGenerator struct {
	cancel context.CancelFunc
}

func (g *cancellingGenerator) Generate(ctx context.Context, _ codegen.ShotContext) (string, error) {
	g.cancel()
	<-ctx.Done()
	return "", ctx.Err()
}
