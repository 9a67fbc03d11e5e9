package utils

import (
	"bytes"
	"encoding/json"
)

// JSONEqual reports whether two values serialize to the same canonical JSON.
// encoding/json emits map keys in sorted order, so structurally equal
// documents compare equal regardless of construction order. Values that fail
// to serialize are never considered equal.
func JSONEqual(a, b interface{}) bool {
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
