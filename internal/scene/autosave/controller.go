// Package autosave drives the save loop of one open editing session. It
// observes live edits to the in-memory element list, coalesces them over a
// quiet window, compares against the last persisted snapshot and saves when
// they differ. A version conflict freezes further writes and asks the user
// to reload; edits stay in memory throughout.
package autosave

import (
	"context"
	"sync"
	"time"

	"scene-store/internal/platform"
	"scene-store/internal/scene"
	apperrors "scene-store/internal/shared/errors"
	"scene-store/internal/shared/eventbus"
	"scene-store/internal/shared/logger"
	"scene-store/internal/shared/utils"
)

// State is the lifecycle state of an editing session.
type State int32

const (
	StateLoading State = iota
	StateReady
	StateSaving
	StateConflicted
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	case StateConflicted:
		return "conflicted"
	default:
		return "unknown"
	}
}

// DefaultDebounce is the quiet window over which edits are coalesced before
// a save is considered.
const DefaultDebounce = 500 * time.Millisecond

const (
	noticeDuration = 15 * time.Second

	conflictNotice = "Your changes could not be saved because someone else updated this document. Please reload to get the latest version."
	genericNotice  = "An unexpected error occurred. Please reload."
)

// SceneAccess is the slice of the scene repository the controller needs.
type SceneAccess interface {
	LoadScene(ctx context.Context, id string) (*scene.Scene, error)
	SaveScene(ctx context.Context, req scene.SaveRequest) (*scene.Scene, error)
}

// Controller runs the autosave state machine for one scene.
// Loading -> Ready -> (Saving <-> Ready) -> Conflicted; Conflicted persists
// until an explicit Reload re-enters Loading.
type Controller struct {
	scenes   SceneAccess
	notify   platform.Notifier
	bus      *eventbus.Bus
	log      logger.Logger
	sceneID  string
	debounce time.Duration

	mu        sync.Mutex
	settled   *sync.Cond
	state     State
	persisted *scene.Scene
	pending   []scene.Element
	timer     *time.Timer

	kick     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a controller for the given scene. bus is optional; a
// non-positive debounce falls back to DefaultDebounce.
func New(scenes SceneAccess, notify platform.Notifier, bus *eventbus.Bus, log logger.Logger, sceneID string, debounce time.Duration) *Controller {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	c := &Controller{
		scenes:   scenes,
		notify:   notify,
		bus:      bus,
		log:      log.WithComponent("autosave").WithFields(map[string]interface{}{"scene_id": sceneID}),
		sceneID:  sceneID,
		debounce: debounce,
		state:    StateLoading,
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	c.settled = sync.NewCond(&c.mu)
	return c
}

// Start loads the scene and begins observing edits. An id that has never
// been saved yields the default empty scene.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.load(ctx); err != nil {
		return err
	}
	go c.run(ctx)
	return nil
}

// SetElements records the editor's current element list. Edits are retained
// in memory unconditionally; persistence is scheduled only while the session
// is not conflicted.
func (c *Controller) SetElements(elements []scene.Element) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = cloneElements(elements)
	if c.state == StateConflicted {
		return
	}
	if c.timer == nil {
		c.timer = time.AfterFunc(c.debounce, c.requestSave)
	} else {
		c.timer.Reset(c.debounce)
	}
}

// Elements returns the current in-memory element list.
func (c *Controller) Elements() []scene.Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneElements(c.pending)
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Scene returns the last persisted snapshot.
func (c *Controller) Scene() *scene.Scene {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persisted
}

// Reload discards the session's persisted snapshot and in-memory edits and
// reloads the scene from the store. It is the explicit user action that
// leaves the conflicted state. On a load failure the session stays in
// Loading and Reload may be retried.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateLoading
	c.mu.Unlock()
	return c.load(ctx)
}

// Flush evaluates pending edits immediately, bypassing the quiet window.
// Called on shutdown so the tail edit is not lost to the debounce. A save
// already in flight is awaited first, so an edit arriving mid-save is still
// evaluated before Flush returns.
func (c *Controller) Flush(ctx context.Context) {
	c.mu.Lock()
	for c.state == StateSaving {
		c.settled.Wait()
	}
	c.mu.Unlock()
	c.saveIfChanged(ctx)
}

// Close stops the controller. In-memory edits are left untouched.
func (c *Controller) Close() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		if c.timer != nil {
			c.timer.Stop()
		}
		c.mu.Unlock()
		close(c.stop)
	})
}

func (c *Controller) load(ctx context.Context) error {
	loaded, err := c.scenes.LoadScene(ctx, c.sceneID)
	if err != nil {
		return err
	}
	if loaded == nil {
		loaded = scene.DefaultScene(c.sceneID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.persisted = loaded
	c.pending = cloneElements(loaded.Elements)
	c.state = StateReady
	return nil
}

// requestSave queues one save evaluation, coalescing with any already
// queued. The worker picks it up after an in-flight save settles, so writes
// for the same scene never interleave on the version token.
func (c *Controller) requestSave() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Controller) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-c.kick:
			c.saveIfChanged(ctx)
		}
	}
}

func (c *Controller) saveIfChanged(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return
	}
	base := c.persisted
	snapshot := cloneElements(c.pending)
	if utils.JSONEqual(scene.ActiveElements(base.Elements), scene.ActiveElements(snapshot)) {
		c.mu.Unlock()
		return
	}
	c.state = StateSaving
	req := scene.SaveRequest{
		ID:       c.sceneID,
		Name:     base.Name,
		Elements: snapshot,
		Etag:     base.Etag,
	}
	c.mu.Unlock()

	saved, err := c.scenes.SaveScene(ctx, req)

	var notice func()
	c.mu.Lock()
	switch {
	case err == nil:
		c.persisted = saved
		c.state = StateReady

	case apperrors.IsVersionMismatch(err):
		c.state = StateConflicted
		c.log.WithContext(ctx).Warnf("save conflicted, suspending autosave: %v", err)
		notice = func() {
			c.notify.OpenToast(ctx, conflictNotice, noticeDuration, "Reload", func() {
				if err := c.Reload(ctx); err != nil {
					c.log.Errorf("reload after conflict failed: %v", err)
				}
			})
			c.publishConflict(ctx)
		}

	default:
		c.state = StateReady
		c.log.WithContext(ctx).Errorf("save failed: %v", err)
		notice = func() {
			c.notify.OpenToast(ctx, genericNotice, noticeDuration, "", nil)
		}
	}
	c.settled.Broadcast()
	c.mu.Unlock()

	if notice != nil {
		notice()
	}
}

func (c *Controller) publishConflict(ctx context.Context) {
	if c.bus == nil {
		return
	}
	c.bus.PublishAndForget(ctx, eventbus.Event{
		Type:    eventbus.EventSceneConflict,
		SceneID: c.sceneID,
	})
}

func cloneElements(elements []scene.Element) []scene.Element {
	if elements == nil {
		return []scene.Element{}
	}
	out := make([]scene.Element, len(elements))
	for i, element := range elements {
		cloned := make(scene.Element, len(element))
		for k, v := range element {
			cloned[k] = v
		}
		out[i] = cloned
	}
	return out
}
