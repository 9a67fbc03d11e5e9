package contextkeys

// contextKey is an unexported type to prevent collisions with context keys
// defined in other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "scene-store context key " + string(c)
}

// ProjectIDKey is the key for the current project ID in context.Context.
// Scene visibility is scoped to this project.
const ProjectIDKey = contextKey("projectID")

// UserIDKey is the key for the current user ID in context.Context.
const UserIDKey = contextKey("userID")

// RequestIDKey is the key for the request ID in context.Context.
const RequestIDKey = contextKey("requestID")

// ComponentKey is the key for the emitting component in context.Context.
const ComponentKey = contextKey("component")

// OperationKey is the key for the current operation in context.Context.
const OperationKey = contextKey("operation")
