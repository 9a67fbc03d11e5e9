// Package platform declares the interfaces of the host platform this
// service collaborates with but does not implement: workspace/project
// identity and the notification/dialog surface. Production deployments plug
// in the real host integrations; the implementations here cover development
// and tests.
package platform

import (
	"context"
	"time"

	"scene-store/internal/shared/logger"
	"scene-store/internal/shared/utils"
)

// ProjectProvider resolves the caller's current project/workspace identity.
type ProjectProvider interface {
	CurrentProjectID(ctx context.Context) (string, error)
}

// Notifier is the host's notification and dialog surface.
type Notifier interface {
	// PromptInput asks the user for a string. ok is false when the dialog
	// was dismissed.
	PromptInput(ctx context.Context, title, label, initialValue string) (value string, ok bool, err error)

	// OpenToast shows a transient message. actionLabel and action are
	// optional; when set the toast offers the action to the user.
	OpenToast(ctx context.Context, message string, duration time.Duration, actionLabel string, action func())
}

// ContextProjectProvider reads the project ID from the request context,
// falling back to a fixed ID when the context carries none. The fallback
// mirrors the development mode of the host, which pins a mock project.
type ContextProjectProvider struct {
	Fallback string
}

func (p ContextProjectProvider) CurrentProjectID(ctx context.Context) (string, error) {
	if projectID, err := utils.GetProjectIDFromContext(ctx); err == nil && projectID != "" {
		return projectID, nil
	}
	return p.Fallback, nil
}

// StaticProjectProvider always returns the same project ID. Used in tests.
type StaticProjectProvider string

func (p StaticProjectProvider) CurrentProjectID(ctx context.Context) (string, error) {
	return string(p), nil
}

// LogNotifier is a headless Notifier that writes notifications to the log
// and never invokes toast actions. It stands in when no host dialog surface
// is wired.
type LogNotifier struct {
	Log logger.Logger
}

func (n LogNotifier) PromptInput(ctx context.Context, title, label, initialValue string) (string, bool, error) {
	n.Log.WithContext(ctx).Infof("prompt suppressed (headless): %s / %s", title, label)
	return "", false, nil
}

func (n LogNotifier) OpenToast(ctx context.Context, message string, duration time.Duration, actionLabel string, action func()) {
	if actionLabel != "" {
		n.Log.WithContext(ctx).Warnf("toast: %s [action: %s]", message, actionLabel)
		return
	}
	n.Log.WithContext(ctx).Warnf("toast: %s", message)
}
