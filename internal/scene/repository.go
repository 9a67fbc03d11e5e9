package scene

import (
	"context"
	"time"

	"scene-store/internal/platform"
	apperrors "scene-store/internal/shared/errors"
	"scene-store/internal/shared/eventbus"
	"scene-store/internal/shared/logger"
	"scene-store/internal/store"

	"github.com/google/uuid"
)

// Repository persists scenes against a document store, splitting each scene
// into its meta and elements records and scoping visibility to the caller's
// current project.
type Repository struct {
	store    store.Store
	projects platform.ProjectProvider
	bus      *eventbus.Bus
	cache    *ListCache
	log      logger.Logger
}

// NewRepository creates a scene repository. bus and cache are optional.
func NewRepository(st store.Store, projects platform.ProjectProvider, bus *eventbus.Bus, cache *ListCache, log logger.Logger) *Repository {
	return &Repository{
		store:    st,
		projects: projects,
		bus:      bus,
		cache:    cache,
		log:      log.WithComponent("scene-repository"),
	}
}

// ListScenes returns the meta records of all scenes visible in the current
// project: scenes scoped to it plus legacy scenes with no project at all.
func (r *Repository) ListScenes(ctx context.Context) ([]SceneMeta, error) {
	projectID, err := r.projects.CurrentProjectID(ctx)
	if err != nil {
		return nil, apperrors.WrapError(err, "cannot resolve current project")
	}

	if cached, ok := r.cache.Get(ctx, projectID); ok {
		return cached, nil
	}

	metas, err := store.ReadDocuments[SceneMeta](ctx, r.store, MetaCollection)
	if err != nil {
		return nil, err
	}

	visible := make([]SceneMeta, 0, len(metas))
	for _, meta := range metas {
		if meta.ProjectID == "" || meta.ProjectID == projectID {
			visible = append(visible, meta)
		}
	}

	r.cache.Set(ctx, projectID, visible)
	return visible, nil
}

// LoadScene returns the composite scene, or nil when the scene is missing
// or belongs to another project. A missing elements record yields an empty
// element list: the two records are written without a transaction, so the
// combining read must tolerate one lagging the other.
func (r *Repository) LoadScene(ctx context.Context, id string) (*Scene, error) {
	meta, err := store.ReadDocument[SceneMeta](ctx, r.store, MetaCollection, id)
	if err != nil || meta == nil {
		return nil, err
	}

	projectID, err := r.projects.CurrentProjectID(ctx)
	if err != nil {
		return nil, apperrors.WrapError(err, "cannot resolve current project")
	}
	if meta.ProjectID != "" && meta.ProjectID != projectID {
		r.log.WithContext(ctx).Warnf("scene %s belongs to project %s, hiding", id, meta.ProjectID)
		return nil, nil
	}

	elements := []Element{}
	if record, err := store.ReadDocument[SceneElements](ctx, r.store, ElementsCollection, id); err != nil {
		return nil, err
	} else if record != nil && record.Elements != nil {
		elements = record.Elements
	}

	return &Scene{SceneMeta: *meta, Elements: elements}, nil
}

// SaveScene writes the elements record first, then the meta record, both
// with the caller's version token. Either write may fail with a version
// mismatch, which is propagated untouched: no retry, no merge. The returned
// composite carries the advanced token.
func (r *Repository) SaveScene(ctx context.Context, req SaveRequest) (*Scene, error) {
	if req.ID == "" {
		return nil, apperrors.NewValidationError("scene id is required")
	}

	projectID, err := r.projects.CurrentProjectID(ctx)
	if err != nil {
		return nil, apperrors.WrapError(err, "cannot resolve current project")
	}

	elements := req.Elements
	if elements == nil {
		elements = []Element{}
	}

	savedElements, err := store.CreateOrUpdateDocument(ctx, r.store, ElementsCollection, SceneElements{
		ID:       req.ID,
		Elements: elements,
		Etag:     req.Etag,
	})
	if err != nil {
		return nil, err
	}
	if savedElements == nil {
		return nil, apperrors.NewInternalError("scene elements write was not accepted")
	}

	savedMeta, err := store.CreateOrUpdateDocument(ctx, r.store, MetaCollection, SceneMeta{
		ID:        req.ID,
		Name:      req.Name,
		UpdatedAt: time.Now().UTC(),
		ProjectID: projectID,
		Etag:      req.Etag,
	})
	if err != nil {
		return nil, err
	}
	if savedMeta == nil {
		return nil, apperrors.NewInternalError("scene meta write was not accepted")
	}

	r.cache.Invalidate(ctx, projectID)
	r.publish(ctx, eventbus.EventSceneSaved, req.ID, projectID)

	return &Scene{SceneMeta: *savedMeta, Elements: savedElements.Elements}, nil
}

// CreateScene saves a fresh empty scene under a generated id.
func (r *Repository) CreateScene(ctx context.Context, name string) (*Scene, error) {
	return r.SaveScene(ctx, SaveRequest{
		ID:       uuid.NewString(),
		Name:     name,
		Elements: []Element{},
	})
}

// RenameScene rewrites the scene under its current token with only the name
// changed. It goes through the full save path so the meta and elements
// tokens advance together; a meta-only write would leave the elements token
// behind and make every later save conflict. Returns nil when the scene is
// missing or outside the current project.
func (r *Repository) RenameScene(ctx context.Context, id, name string) (*SceneMeta, error) {
	scene, err := r.LoadScene(ctx, id)
	if err != nil || scene == nil {
		return nil, err
	}

	saved, err := r.SaveScene(ctx, SaveRequest{
		ID:       id,
		Name:     name,
		Elements: scene.Elements,
		Etag:     scene.Etag,
	})
	if err != nil || saved == nil {
		return nil, err
	}
	return &saved.SceneMeta, nil
}

// DeleteScene removes both records of a scene. A scene scoped to another
// project is left untouched and the call is a silent no-op; deleting a
// missing scene is not an error.
func (r *Repository) DeleteScene(ctx context.Context, id string) error {
	projectID, err := r.projects.CurrentProjectID(ctx)
	if err != nil {
		return apperrors.WrapError(err, "cannot resolve current project")
	}

	meta, err := store.ReadDocument[SceneMeta](ctx, r.store, MetaCollection, id)
	if err != nil {
		return err
	}
	if meta != nil && meta.ProjectID != "" && meta.ProjectID != projectID {
		r.log.WithContext(ctx).Warnf("scene %s belongs to project %s, delete skipped", id, meta.ProjectID)
		return nil
	}

	if err := r.store.DeleteDocument(ctx, MetaCollection, id); err != nil {
		return err
	}
	if err := r.store.DeleteDocument(ctx, ElementsCollection, id); err != nil {
		return err
	}

	r.cache.Invalidate(ctx, projectID)
	r.publish(ctx, eventbus.EventSceneDeleted, id, projectID)
	return nil
}

func (r *Repository) publish(ctx context.Context, eventType, sceneID, projectID string) {
	if r.bus == nil {
		return
	}
	r.bus.PublishAndForget(ctx, eventbus.Event{
		Type:      eventType,
		SceneID:   sceneID,
		ProjectID: projectID,
	})
}
