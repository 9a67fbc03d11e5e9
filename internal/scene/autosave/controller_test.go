package autosave

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scene-store/internal/scene"
	apperrors "scene-store/internal/shared/errors"
	"scene-store/internal/shared/logger"
)

// fakeScenes is an in-memory SceneAccess with an injectable save failure.
type fakeScenes struct {
	mu       sync.Mutex
	current  *scene.Scene
	failWith error
	saves    int
}

func (f *fakeScenes) LoadScene(ctx context.Context, id string) (*scene.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return nil, nil
	}
	snapshot := *f.current
	return &snapshot, nil
}

func (f *fakeScenes) SaveScene(ctx context.Context, req scene.SaveRequest) (*scene.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.saves++
	f.current = &scene.Scene{
		SceneMeta: scene.SceneMeta{ID: req.ID, Name: req.Name, Etag: req.Etag + 1},
		Elements:  req.Elements,
	}
	snapshot := *f.current
	return &snapshot, nil
}

func (f *fakeScenes) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func (f *fakeScenes) setFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

// fakeNotifier records toasts and keeps their actions invocable.
type fakeNotifier struct {
	mu     sync.Mutex
	toasts []toast
}

type toast struct {
	message     string
	actionLabel string
	action      func()
}

func (n *fakeNotifier) PromptInput(ctx context.Context, title, label, initialValue string) (string, bool, error) {
	return "", false, nil
}

func (n *fakeNotifier) OpenToast(ctx context.Context, message string, duration time.Duration, actionLabel string, action func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, toast{message: message, actionLabel: actionLabel, action: action})
}

func (n *fakeNotifier) last() (toast, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.toasts) == 0 {
		return toast{}, false
	}
	return n.toasts[len(n.toasts)-1], true
}

// gatedScenes blocks each save until released, to hold a save in flight.
type gatedScenes struct {
	fakeScenes
	started chan struct{}
	release chan struct{}
}

func (g *gatedScenes) SaveScene(ctx context.Context, req scene.SaveRequest) (*scene.Scene, error) {
	g.started <- struct{}{}
	<-g.release
	return g.fakeScenes.SaveScene(ctx, req)
}

func newTestController(t *testing.T, scenes SceneAccess, notify *fakeNotifier) *Controller {
	t.Helper()
	log := logger.NewLoggerWithConfig("error", "text")
	c := New(scenes, notify, nil, log, "s1", 20*time.Millisecond)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(c.Close)
	return c
}

func TestStart_UnsavedSceneYieldsDefault(t *testing.T) {
	c := newTestController(t, &fakeScenes{}, &fakeNotifier{})

	assert.Equal(t, StateReady, c.State())
	snapshot := c.Scene()
	require.NotNil(t, snapshot)
	assert.Equal(t, "s1", snapshot.ID)
	assert.Empty(t, snapshot.Elements)
	assert.Empty(t, c.Elements())
}

func TestEditBurst_CoalescesIntoOneSave(t *testing.T) {
	scenes := &fakeScenes{}
	c := newTestController(t, scenes, &fakeNotifier{})

	for i := 0; i < 10; i++ {
		c.SetElements([]scene.Element{{"id": "e1", "version": i}})
	}

	require.Eventually(t, func() bool {
		return scenes.saveCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	// No further edits, no further saves.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, scenes.saveCount())
	assert.Equal(t, StateReady, c.State())

	snapshot := c.Scene()
	require.NotNil(t, snapshot)
	require.Len(t, snapshot.Elements, 1)
	assert.Equal(t, 9, snapshot.Elements[0]["version"])
}

func TestUnchangedElements_NotSaved(t *testing.T) {
	scenes := &fakeScenes{
		current: &scene.Scene{
			SceneMeta: scene.SceneMeta{ID: "s1", Etag: 1},
			Elements:  []scene.Element{{"id": "e1", "type": "rectangle"}},
		},
	}
	c := newTestController(t, scenes, &fakeNotifier{})

	c.SetElements([]scene.Element{{"id": "e1", "type": "rectangle"}})
	c.Flush(context.Background())

	assert.Equal(t, 0, scenes.saveCount())
}

func TestSoftDeletedOnlyChange_NotSaved(t *testing.T) {
	scenes := &fakeScenes{
		current: &scene.Scene{
			SceneMeta: scene.SceneMeta{ID: "s1", Etag: 1},
			Elements:  []scene.Element{{"id": "e1", "type": "rectangle"}},
		},
	}
	c := newTestController(t, scenes, &fakeNotifier{})

	// A tombstone appearing alongside unchanged live elements is not an edit.
	c.SetElements([]scene.Element{
		{"id": "e1", "type": "rectangle"},
		{"id": "e2", "type": "ellipse", "isDeleted": true},
	})
	c.Flush(context.Background())

	assert.Equal(t, 0, scenes.saveCount())
}

func TestFlush_SavesPendingEditImmediately(t *testing.T) {
	scenes := &fakeScenes{}
	c := newTestController(t, scenes, &fakeNotifier{})

	c.SetElements([]scene.Element{{"id": "e1"}})
	c.Flush(context.Background())

	assert.Equal(t, 1, scenes.saveCount())
	assert.Equal(t, StateReady, c.State())
}

func TestFlush_WaitsForInFlightSave(t *testing.T) {
	scenes := &gatedScenes{
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	log := logger.NewLoggerWithConfig("error", "text")
	c := New(scenes, &fakeNotifier{}, nil, log, "s1", time.Hour)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(c.Close)

	c.SetElements([]scene.Element{{"id": "e1"}})
	go c.Flush(context.Background())
	<-scenes.started

	// The tail edit arrives while the first save is still in flight.
	c.SetElements([]scene.Element{{"id": "e1"}, {"id": "e2"}})

	done := make(chan struct{})
	go func() {
		c.Flush(context.Background())
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("flush returned while a save was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(scenes.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("flush did not settle after the in-flight save finished")
	}

	assert.Equal(t, 2, scenes.saveCount())
	snapshot := c.Scene()
	require.NotNil(t, snapshot)
	assert.Len(t, snapshot.Elements, 2)
}

func TestConflict_FreezesSessionUntilReload(t *testing.T) {
	scenes := &fakeScenes{
		current: &scene.Scene{SceneMeta: scene.SceneMeta{ID: "s1", Etag: 1}},
	}
	notify := &fakeNotifier{}
	c := newTestController(t, scenes, notify)

	scenes.setFailure(apperrors.NewVersionMismatchError(scene.ElementsCollection, "s1"))
	c.SetElements([]scene.Element{{"id": "e1"}})
	c.Flush(context.Background())

	assert.Equal(t, StateConflicted, c.State())
	last, ok := notify.last()
	require.True(t, ok)
	assert.Equal(t, conflictNotice, last.message)
	assert.Equal(t, "Reload", last.actionLabel)
	require.NotNil(t, last.action)

	// Edits keep accumulating in memory but nothing is persisted.
	c.SetElements([]scene.Element{{"id": "e1"}, {"id": "e2"}})
	c.Flush(context.Background())
	assert.Equal(t, 0, scenes.saveCount())
	assert.Len(t, c.Elements(), 2)

	// The toast's Reload action recovers the session.
	scenes.setFailure(nil)
	last.action()
	assert.Equal(t, StateReady, c.State())

	snapshot := c.Scene()
	require.NotNil(t, snapshot)
	assert.Equal(t, int64(1), snapshot.Etag)
}

func TestGenericSaveFailure_StaysReady(t *testing.T) {
	scenes := &fakeScenes{
		current: &scene.Scene{SceneMeta: scene.SceneMeta{ID: "s1", Etag: 1}},
	}
	notify := &fakeNotifier{}
	c := newTestController(t, scenes, notify)

	scenes.setFailure(apperrors.NewUnavailableError("backend down"))
	c.SetElements([]scene.Element{{"id": "e1"}})
	c.Flush(context.Background())

	assert.Equal(t, StateReady, c.State())
	last, ok := notify.last()
	require.True(t, ok)
	assert.Equal(t, genericNotice, last.message)
	assert.Empty(t, last.actionLabel)

	// The next save attempt succeeds once the backend is back.
	scenes.setFailure(nil)
	c.Flush(context.Background())
	assert.Equal(t, 1, scenes.saveCount())
}

func TestReload_DiscardsPendingEdits(t *testing.T) {
	scenes := &fakeScenes{
		current: &scene.Scene{
			SceneMeta: scene.SceneMeta{ID: "s1", Etag: 3},
			Elements:  []scene.Element{{"id": "persisted"}},
		},
	}
	c := newTestController(t, scenes, &fakeNotifier{})

	scenes.setFailure(apperrors.NewUnavailableError("backend down"))
	c.SetElements([]scene.Element{{"id": "local-only"}})

	scenes.setFailure(nil)
	require.NoError(t, c.Reload(context.Background()))

	elements := c.Elements()
	require.Len(t, elements, 1)
	assert.Equal(t, "persisted", elements[0]["id"])
	assert.Equal(t, StateReady, c.State())
}
