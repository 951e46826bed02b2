package workflow_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"shotreel/internal/codegen"
	"shotreel/internal/config"
	"shotreel/internal/render"
	"shotreel/internal/shots"
	"shotreel/internal/testsupport"
	"shotreel/internal/workflow"
)

// versionedGenerator returns "<shot id>-v<n>" for the n-th generation of a shot.
type versionedGenerator struct {
	mu       sync.Mutex
	calls    map[string]int
	contexts []codegen.ShotContext
	failWith map[string]error
	onCall   func(sc codegen.ShotContext, n int)
}

func newGenerator() *versionedGenerator {
	return &versionedGenerator{calls: make(map[string]int), failWith: make(map[string]error)}
}

func (g *versionedGenerator) Generate(_ context.Context, sc codegen.ShotContext) (string, error) {
	g.mu.Lock()
	g.calls[sc.ShotID]++
	n := g.calls[sc.ShotID]
	g.contexts = append(g.contexts, sc)
	hook := g.onCall
	err := g.failWith[sc.ShotID]
	g.mu.Unlock()

	if hook != nil {
		hook(sc, n)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-v%d", sc.ShotID, n), nil
}

func (g *versionedGenerator) count(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[id]
}

// codeRenderer fails codes listed in failures and renders everything else
// to "https://cdn/<code>.mp4".
type codeRenderer struct {
	mu       sync.Mutex
	order    []string
	failures map[string]string
	onRender func(code string)
}

func newRenderer() *codeRenderer {
	return &codeRenderer{failures: make(map[string]string)}
}

func (r *codeRenderer) SubmitAndAwait(_ context.Context, code string, _ int, onProgress render.ProgressFunc) (string, error) {
	r.mu.Lock()
	r.order = append(r.order, code)
	msg, fail := r.failures[code]
	hook := r.onRender
	r.mu.Unlock()

	if hook != nil {
		hook(code)
	}
	if onProgress != nil {
		onProgress(0)
		onProgress(1)
	}
	if fail {
		return "", &render.Failure{Message: msg}
	}
	return "https://cdn/" + code + ".mp4", nil
}

func (r *codeRenderer) submitted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []int
	failed    []string
	finished  int
	videos    []string
	errors    []string
}

func (n *recordingNotifier) NotifyShotCompleted(_ context.Context, number int, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, number)
	return nil
}

func (n *recordingNotifier) NotifyShotFailed(_ context.Context, number int, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, fmt.Sprintf("%d:%s", number, message))
	return nil
}

func (n *recordingNotifier) NotifyRenderFinished(context.Context, int, int, time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished++
	return nil
}

func (n *recordingNotifier) NotifyVideoReady(_ context.Context, _ string, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.videos = append(n.videos, url)
	return nil
}

func (n *recordingNotifier) NotifyError(_ context.Context, err error, label string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, label+": "+err.Error())
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

type stubStitcher struct {
	url   string
	err   error
	shots []shots.Shot
}

func (s *stubStitcher) Stitch(_ context.Context, list []shots.Shot, onProgress render.ProgressFunc) (string, error) {
	s.shots = list
	if onProgress != nil {
		onProgress(1)
	}
	return s.url, s.err
}

type harness struct {
	cfg      *config.Config
	store    *shots.Store
	gen      *versionedGenerator
	renderer *codeRenderer
	notifier *recordingNotifier
	stitcher *stubStitcher
	mgr      *workflow.Manager
}

func newHarness(t *testing.T, shotCount int, renderer workflowRenderer) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedShots(t, store, shotCount)

	h := &harness{
		cfg:      cfg,
		store:    store,
		gen:      newGenerator(),
		notifier: &recordingNotifier{},
		stitcher: &stubStitcher{url: "https://cdn/final.mp4"},
	}
	if renderer == nil {
		h.renderer = newRenderer()
		renderer = h.renderer
	}
	h.mgr = workflow.NewManager(cfg, workflow.Dependencies{
		Store:     store,
		Generator: h.gen,
		Renderer:  renderer,
		Stitcher:  h.stitcher,
		Notifier:  h.notifier,
	}, nil)
	return h
}

type workflowRenderer interface {
	SubmitAndAwait(ctx context.Context, code string, durationFrames int, onProgress render.ProgressFunc) (string, error)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
