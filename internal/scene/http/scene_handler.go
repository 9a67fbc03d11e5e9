// Package http exposes the scene repository over a REST API. It is the
// transport the canvas editor talks to; pages, menus and the editor itself
// live outside this service.
package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"scene-store/internal/scene"
	"scene-store/internal/scene/autosave"
	apperrors "scene-store/internal/shared/errors"
	"scene-store/internal/shared/logger"
)

const defaultSceneName = "Untitled drawing"

// SceneService is the slice of the scene repository served over HTTP.
type SceneService interface {
	ListScenes(ctx context.Context) ([]scene.SceneMeta, error)
	LoadScene(ctx context.Context, id string) (*scene.Scene, error)
	SaveScene(ctx context.Context, req scene.SaveRequest) (*scene.Scene, error)
	CreateScene(ctx context.Context, name string) (*scene.Scene, error)
	RenameScene(ctx context.Context, id, name string) (*scene.SceneMeta, error)
	DeleteScene(ctx context.Context, id string) error
}

// Handler serves the scene API.
type Handler struct {
	scenes   SceneService
	sessions *autosave.Manager
	log      logger.Logger
}

// NewHandler creates a scene API handler.
func NewHandler(scenes SceneService, sessions *autosave.Manager, log logger.Logger) *Handler {
	return &Handler{
		scenes:   scenes,
		sessions: sessions,
		log:      log.WithComponent("scene-http"),
	}
}

// RegisterRoutes mounts the scene API on the given router.
func (h *Handler) RegisterRoutes(router fiber.Router) {
	router.Get("/scenes", h.ListScenes)
	router.Post("/scenes", h.CreateScene)
	router.Get("/scenes/:id", h.GetScene)
	router.Put("/scenes/:id", h.SaveScene)
	router.Patch("/scenes/:id/name", h.RenameScene)
	router.Delete("/scenes/:id", h.DeleteScene)

	router.Put("/scenes/:id/elements", h.SetElements)
	router.Get("/scenes/:id/session", h.GetSession)
	router.Delete("/scenes/:id/session", h.CloseSession)
}

// ListScenes returns the meta records visible in the caller's project.
func (h *Handler) ListScenes(c *fiber.Ctx) error {
	metas, err := h.scenes.ListScenes(c.UserContext())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"scenes": metas})
}

type createSceneRequest struct {
	Name string `json:"name"`
}

// CreateScene saves a fresh empty scene under a generated id.
func (h *Handler) CreateScene(c *fiber.Ctx) error {
	var req createSceneRequest
	if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return h.writeError(c, apperrors.NewValidationError("invalid request body").WithCause(err))
	}
	if req.Name == "" {
		req.Name = defaultSceneName
	}

	created, err := h.scenes.CreateScene(c.UserContext(), req.Name)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetScene returns the composite scene.
func (h *Handler) GetScene(c *fiber.Ctx) error {
	loaded, err := h.scenes.LoadScene(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	if loaded == nil {
		return h.writeError(c, apperrors.NewNotFoundError("scene"))
	}
	return c.JSON(loaded)
}

// SaveScene writes a scene under the caller's version token. A stale token
// answers 409 and the stored data stays untouched.
func (h *Handler) SaveScene(c *fiber.Ctx) error {
	var req scene.SaveRequest
	if err := c.BodyParser(&req); err != nil {
		return h.writeError(c, apperrors.NewValidationError("invalid request body").WithCause(err))
	}
	req.ID = c.Params("id")

	saved, err := h.scenes.SaveScene(c.UserContext(), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(saved)
}

type renameSceneRequest struct {
	Name string `json:"name"`
}

// RenameScene updates only the scene's name.
func (h *Handler) RenameScene(c *fiber.Ctx) error {
	var req renameSceneRequest
	if err := c.BodyParser(&req); err != nil {
		return h.writeError(c, apperrors.NewValidationError("invalid request body").WithCause(err))
	}
	if req.Name == "" {
		return h.writeError(c, apperrors.NewValidationError("name is required"))
	}

	renamed, err := h.scenes.RenameScene(c.UserContext(), c.Params("id"), req.Name)
	if err != nil {
		return h.writeError(c, err)
	}
	if renamed == nil {
		return h.writeError(c, apperrors.NewNotFoundError("scene"))
	}
	return c.JSON(renamed)
}

// DeleteScene removes a scene. Deleting a missing scene, or one scoped to
// another project, answers 204 as well.
func (h *Handler) DeleteScene(c *fiber.Ctx) error {
	if err := h.scenes.DeleteScene(c.UserContext(), c.Params("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type setElementsRequest struct {
	Elements []scene.Element `json:"elements"`
}

// SetElements feeds the editor's current element list into the scene's
// autosave session. The edit is acknowledged immediately; persistence
// happens after the quiet window.
func (h *Handler) SetElements(c *fiber.Ctx) error {
	var req setElementsRequest
	if err := c.BodyParser(&req); err != nil {
		return h.writeError(c, apperrors.NewValidationError("invalid request body").WithCause(err))
	}

	session, err := h.sessions.Session(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	session.SetElements(req.Elements)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"state": session.State().String()})
}

// GetSession reports the session's state and in-memory elements.
func (h *Handler) GetSession(c *fiber.Ctx) error {
	session, err := h.sessions.Session(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"state":    session.State().String(),
		"elements": session.Elements(),
	})
}

// CloseSession flushes pending edits and ends the scene's session.
func (h *Handler) CloseSession(c *fiber.Ctx) error {
	h.sessions.CloseSession(c.UserContext(), c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) writeError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPCode >= fiber.StatusInternalServerError {
			h.log.WithContext(c.UserContext()).Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
		}
		return c.Status(appErr.HTTPCode).JSON(fiber.Map{
			"type":    appErr.Type,
			"message": appErr.Message,
		})
	}

	h.log.WithContext(c.UserContext()).Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"type":    apperrors.ErrorTypeInternal,
		"message": "internal server error",
	})
}
