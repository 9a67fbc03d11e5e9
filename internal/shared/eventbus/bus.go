// Package eventbus provides an in-memory publish/subscribe bus for scene
// lifecycle events so listing surfaces can refresh without polling the store.
package eventbus

import (
	"context"
	"sync"
	"time"

	"scene-store/internal/shared/logger"
)

// Well-known event types published by the scene layer.
const (
	EventSceneSaved    = "scene.saved"
	EventSceneDeleted  = "scene.deleted"
	EventSceneConflict = "scene.conflict"
)

// Event describes something that happened to a scene.
type Event struct {
	Type      string      `json:"type"`
	SceneID   string      `json:"sceneId"`
	ProjectID string      `json:"projectId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Handler is the callback invoked for each published event.
type Handler func(ctx context.Context, event Event) error

// Bus is an in-memory event bus. Handlers for one event type run in
// registration order; a handler error stops synchronous delivery.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      logger.Logger
}

// NewBus creates a new event bus instance.
func NewBus(log logger.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe adds a handler for a specific event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logDebugf("subscribed handler for event type %s", eventType)
}

// Publish delivers an event synchronously to all registered handlers.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Type]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logWarnf("event handler failed for %s: %v", event.Type, err)
			return err
		}
	}
	return nil
}

// PublishAndForget delivers an event in the background, logging failures
// instead of returning them. Used on hot paths where delivery must not block.
// The context is detached: handlers keep its values but outlive the
// originating request's cancellation.
func (b *Bus) PublishAndForget(ctx context.Context, event Event) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := b.Publish(ctx, event); err != nil {
			b.logWarnf("fire-and-forget publish failed for %s: %v", event.Type, err)
		}
	}()
}

// SubscriberCount returns the number of handlers for an event type.
func (b *Bus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Unsubscribe removes all handlers for an event type.
func (b *Bus) Unsubscribe(eventType string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, eventType)
}

func (b *Bus) logDebugf(format string, args ...interface{}) {
	if b.log != nil {
		b.log.Debugf(format, args...)
	}
}

func (b *Bus) logWarnf(format string, args ...interface{}) {
	if b.log != nil {
		b.log.Warnf(format, args...)
	}
}
