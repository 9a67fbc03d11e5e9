// Package scene is the domain layer for persisted drawings. A scene is
// stored as two independently versioned records: a small meta document used
// by listings and a larger elements document carrying the drawing payload.
// The split keeps gallery listings cheap; the combining reads tolerate the
// two records being briefly out of sync since no transaction spans them.
package scene

import "time"

// Collections used in the document store.
const (
	// MetaCollection holds one SceneMeta per scene.
	MetaCollection = "excalidraw-scenes"
	// ElementsCollection holds one SceneElements per scene, same ids.
	ElementsCollection = "excalidraw-scene-elements"
)

// Element is one drawing element. The element schema belongs to the canvas
// editor; the persistence layer treats it as opaque JSON and only inspects
// the soft-deletion flag.
type Element map[string]interface{}

// Deleted reports whether the canvas editor has soft-deleted this element.
func (e Element) Deleted() bool {
	deleted, _ := e["isDeleted"].(bool)
	return deleted
}

// SceneMeta is the listing/identity record of a scene.
type SceneMeta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
	ProjectID string    `json:"projectId,omitempty"`
	Etag      int64     `json:"__etag"`
}

// SceneElements is the payload record of a scene.
type SceneElements struct {
	ID       string    `json:"id"`
	Elements []Element `json:"elements"`
	Etag     int64     `json:"__etag"`
}

// Scene is the composite the editor works with. It is never stored as one
// unit; SaveRequest/Repository recompose it from the two records.
type Scene struct {
	SceneMeta
	Elements []Element `json:"elements"`
}

// SaveRequest carries one save of a scene. Etag is the version token of the
// last load or save observed by the caller; both underlying writes use it.
type SaveRequest struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	Elements []Element `json:"elements"`
	Etag     int64     `json:"__etag"`
}

// DefaultScene returns the empty scene used when an id has never been saved.
func DefaultScene(id string) *Scene {
	return &Scene{
		SceneMeta: SceneMeta{ID: id},
		Elements:  []Element{},
	}
}

// ActiveElements filters out soft-deleted elements. Save comparisons run on
// the filtered list so purging deleted elements alone does not count as an
// edit.
func ActiveElements(elements []Element) []Element {
	active := make([]Element, 0, len(elements))
	for _, element := range elements {
		if !element.Deleted() {
			active = append(active, element)
		}
	}
	return active
}

