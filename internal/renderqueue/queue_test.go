package renderqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shotreel/internal/classify"
	"shotreel/internal/render"
	"shotreel/internal/shots"
)

type fakeRenderer struct {
	mu       sync.Mutex
	order    []string
	failures map[string]string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	block    chan struct{}
	started  chan string
	panicOn  string
}

func (f *fakeRenderer) SubmitAndAwait(_ context.Context, code string, _ int, onProgress render.ProgressFunc) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.order = append(f.order, code)
	msg, fail := f.failures[code]
	f.mu.Unlock()

	if f.started != nil {
		f.started <- code
	}
	if f.block != nil {
		<-f.block
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if code == f.panicOn {
		panic("renderer exploded")
	}
	if onProgress != nil {
		onProgress(0)
		onProgress(0.5)
		onProgress(1)
	}
	if fail {
		return "", &render.Failure{Message: msg}
	}
	return "https://cdn/" + code + ".mp4", nil
}

func (f *fakeRenderer) submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

func makeShots(n int) []shots.Shot {
	out := make([]shots.Shot, n)
	for i := range out {
		id := fmt.Sprintf("s%d", i+1)
		out[i] = shots.Shot{ID: id, Number: i + 1, Code: id, DurationFrames: 60, Status: shots.StatusRendering}
	}
	return out
}

func newTestQueue(r Renderer, sleeps *atomic.Int32) *Queue {
	return New(r, WithSleeper(func(context.Context, time.Duration) error {
		if sleeps != nil {
			sleeps.Add(1)
		}
		return nil
	}))
}

func waitBatch(t *testing.T, b *Batch) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Wait(ctx); err != nil {
		t.Fatalf("batch did not complete: %v", err)
	}
}

func TestBatchRendersInFIFOOrderWithSpacing(t *testing.T) {
	renderer := &fakeRenderer{}
	var sleeps atomic.Int32
	q := newTestQueue(renderer, &sleeps)

	var mu sync.Mutex
	var completed []string
	urls := map[string]string{}
	var allCalls atomic.Int32
	b := q.EnqueueBatch(makeShots(3), func() {
		allCalls.Add(1)
	}, func(id, url string) {
		mu.Lock()
		completed = append(completed, id)
		urls[id] = url
		mu.Unlock()
	}, nil)
	waitBatch(t, b)

	if got := renderer.submitted(); fmt.Sprint(got) != "[s1 s2 s3]" {
		t.Fatalf("unexpected submission order %v", got)
	}
	if fmt.Sprint(completed) != "[s1 s2 s3]" {
		t.Fatalf("unexpected completion order %v", completed)
	}
	if len(urls) != 3 || urls["s1"] == urls["s2"] {
		t.Fatalf("expected distinct urls, got %v", urls)
	}
	if allCalls.Load() != 1 {
		t.Fatalf("expected onAllComplete once, got %d", allCalls.Load())
	}
	if sleeps.Load() != 2 {
		t.Fatalf("expected spacing between the 3 jobs only, got %d sleeps", sleeps.Load())
	}
	if p, ok := q.Progress("s2"); !ok || p != 1 {
		t.Fatalf("expected final progress 1 for s2, got %v %v", p, ok)
	}
}

func TestBatchCompletesWithMixedOutcomes(t *testing.T) {
	renderer := &fakeRenderer{failures: map[string]string{
		"s2": "TypeError: x is not a function",
		"s3": "Rate Exceeded",
	}}
	q := newTestQueue(renderer, nil)

	var mu sync.Mutex
	verdicts := map[string]classify.Verdict{}
	var successes atomic.Int32
	var allCalls atomic.Int32
	var terminalBeforeAll atomic.Int32
	b := q.EnqueueBatch(makeShots(3), func() {
		allCalls.Add(1)
		mu.Lock()
		terminalBeforeAll.Store(int32(len(verdicts)) + successes.Load())
		mu.Unlock()
	}, func(string, string) {
		successes.Add(1)
	}, func(id, msg string, verdict classify.Verdict) {
		mu.Lock()
		verdicts[id] = verdict
		mu.Unlock()
	})
	waitBatch(t, b)

	if allCalls.Load() != 1 || terminalBeforeAll.Load() != 3 {
		t.Fatalf("expected onAllComplete once after 3 outcomes, got calls=%d outcomes=%d", allCalls.Load(), terminalBeforeAll.Load())
	}
	if verdicts["s2"] != classify.CodeDefect || verdicts["s3"] != classify.InfrastructureFault {
		t.Fatalf("unexpected verdicts %v", verdicts)
	}
	if msg, ok := q.LastError("s3"); !ok || msg != "Rate Exceeded" {
		t.Fatalf("expected last error to be verbatim, got %q", msg)
	}
}

func TestEmptyBatchCompletesImmediately(t *testing.T) {
	q := newTestQueue(&fakeRenderer{}, nil)
	var called atomic.Bool
	b := q.EnqueueBatch(nil, func() { called.Store(true) }, nil, nil)
	waitBatch(t, b)
	if !called.Load() {
		t.Fatal("expected onAllComplete for empty batch")
	}
	if q.IsRendering() {
		t.Fatal("empty batch must not start the worker")
	}
}

func TestSingleFlightAcrossConcurrentBatches(t *testing.T) {
	renderer := &fakeRenderer{delay: 2 * time.Millisecond}
	q := newTestQueue(renderer, nil)

	var wg sync.WaitGroup
	batches := make([]*Batch, 5)
	for i := range batches {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			shotsForBatch := makeShots(3)
			for j := range shotsForBatch {
				shotsForBatch[j].Code = fmt.Sprintf("b%d-%d", i, j)
				shotsForBatch[j].ID = shotsForBatch[j].Code
			}
			batches[i] = q.EnqueueBatch(shotsForBatch, nil, nil, nil)
		}(i)
	}
	wg.Wait()
	for _, b := range batches {
		waitBatch(t, b)
	}
	if renderer.maxSeen.Load() != 1 {
		t.Fatalf("expected at most one job in flight, saw %d", renderer.maxSeen.Load())
	}
	if len(renderer.submitted()) != 15 {
		t.Fatalf("expected 15 renders, got %d", len(renderer.submitted()))
	}
}

func TestEnqueueDuringProcessingJoinsRunningLoop(t *testing.T) {
	renderer := &fakeRenderer{block: make(chan struct{}), started: make(chan string, 10)}
	q := newTestQueue(renderer, nil)

	first := q.EnqueueBatch(makeShots(1), nil, nil, nil)
	if got := <-renderer.started; got != "s1" {
		t.Fatalf("unexpected first render %q", got)
	}
	if q.CurrentShotID() != "s1" || !q.IsRendering() {
		t.Fatalf("expected s1 in flight, current=%q", q.CurrentShotID())
	}

	late := makeShots(2)[1:]
	second := q.EnqueueBatch(late, nil, nil, nil)
	if q.Len() != 2 {
		t.Fatalf("expected in-flight plus queued entry, got %d", q.Len())
	}
	close(renderer.block)
	waitBatch(t, first)
	waitBatch(t, second)
	if renderer.maxSeen.Load() != 1 {
		t.Fatalf("expected single flight, saw %d", renderer.maxSeen.Load())
	}
	if err := q.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if q.IsRendering() || q.Len() != 0 {
		t.Fatal("expected idle queue")
	}
}

func TestEnqueueDoesNotStartProcessing(t *testing.T) {
	renderer := &fakeRenderer{}
	q := newTestQueue(renderer, nil)
	done := make(chan string, 1)
	q.Enqueue(makeShots(1)[0], Callbacks{OnComplete: func(url string) { done <- url }})
	if q.IsRendering() || len(renderer.submitted()) != 0 {
		t.Fatal("Enqueue must not start the worker")
	}
	q.Process()
	select {
	case url := <-done:
		if url != "https://cdn/s1.mp4" {
			t.Fatalf("unexpected url %q", url)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("entry never completed")
	}
}

func TestClearResolvesDroppedEntries(t *testing.T) {
	renderer := &fakeRenderer{block: make(chan struct{}), started: make(chan string, 10)}
	q := newTestQueue(renderer, nil)

	var mu sync.Mutex
	errs := map[string]string{}
	b := q.EnqueueBatch(makeShots(3), nil, nil, func(id, msg string, _ classify.Verdict) {
		mu.Lock()
		errs[id] = msg
		mu.Unlock()
	})
	<-renderer.started
	if dropped := q.Clear(); dropped != 2 {
		t.Fatalf("expected 2 dropped entries, got %d", dropped)
	}
	close(renderer.block)
	waitBatch(t, b)

	if len(renderer.submitted()) != 1 {
		t.Fatalf("expected only the in-flight job to render, got %v", renderer.submitted())
	}
	mu.Lock()
	defer mu.Unlock()
	if errs["s2"] != CancelledMessage || errs["s3"] != CancelledMessage {
		t.Fatalf("expected dropped entries cancelled, got %v", errs)
	}
	if _, ok := errs["s1"]; ok {
		t.Fatal("in-flight entry must not be cancelled")
	}
}

func TestPanicsDoNotStopTheLoop(t *testing.T) {
	renderer := &fakeRenderer{panicOn: "s1"}
	q := newTestQueue(renderer, nil)

	var mu sync.Mutex
	var errMsg string
	b := q.EnqueueBatch(makeShots(2), nil, func(id, _ string) {
		if id == "s2" {
			panic("callback exploded")
		}
	}, func(id, msg string, _ classify.Verdict) {
		mu.Lock()
		errMsg = msg
		mu.Unlock()
	})
	waitBatch(t, b)
	mu.Lock()
	defer mu.Unlock()
	if errMsg == "" {
		t.Fatal("expected renderer panic to surface as an error")
	}
	if len(renderer.submitted()) != 2 {
		t.Fatalf("expected loop to continue after panic, got %v", renderer.submitted())
	}
}

func TestCancelledContextResolvesRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	renderer := &fakeRenderer{block: make(chan struct{}), started: make(chan string, 10)}
	q := New(renderer, WithContext(ctx), WithSpacing(0))

	var cancelled atomic.Int32
	b := q.EnqueueBatch(makeShots(3), nil, nil, func(_, msg string, _ classify.Verdict) {
		if msg == CancelledMessage {
			cancelled.Add(1)
		}
	})
	<-renderer.started
	cancel()
	close(renderer.block)
	waitBatch(t, b)
	if cancelled.Load() != 2 {
		t.Fatalf("expected 2 cancelled entries, got %d", cancelled.Load())
	}
}

func TestWaitHonoursContext(t *testing.T) {
	renderer := &fakeRenderer{block: make(chan struct{}), started: make(chan string, 1)}
	q := newTestQueue(renderer, nil)
	q.EnqueueBatch(makeShots(1), nil, nil, nil)
	<-renderer.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	close(renderer.block)
}

type unconfiguredRenderer struct{}

func (unconfiguredRenderer) SubmitAndAwait(context.Context, string, int, render.ProgressFunc) (string, error) {
	return "", &render.ConfigError{Message: "TypeError: credentials missing"}
}

func TestConfigErrorIsReportedAsInfrastructure(t *testing.T) {
	q := newTestQueue(unconfiguredRenderer{}, nil)

	var (
		gotMsg     string
		gotVerdict = classify.CodeDefect
	)
	b := q.EnqueueBatch(makeShots(1), nil, nil, func(_, msg string, verdict classify.Verdict) {
		gotMsg = msg
		gotVerdict = verdict
	})
	waitBatch(t, b)

	if gotVerdict != classify.InfrastructureFault {
		t.Fatalf("expected infrastructure verdict, got %s", gotVerdict)
	}
	if !render.IsNotConfiguredMessage(gotMsg) {
		t.Fatalf("expected not-configured message, got %q", gotMsg)
	}
	if msg, ok := q.LastError("s1"); !ok || msg != gotMsg {
		t.Fatalf("expected last error %q, got %q", gotMsg, msg)
	}
}
