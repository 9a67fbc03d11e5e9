package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONEqual(t *testing.T) {
	a := map[string]interface{}{"id": "e1", "x": 10, "y": 20}
	b := map[string]interface{}{"y": 20, "x": 10, "id": "e1"}
	assert.True(t, JSONEqual(a, b), "key order must not matter")

	c := map[string]interface{}{"id": "e1", "x": 10, "y": 21}
	assert.False(t, JSONEqual(a, c))

	assert.True(t, JSONEqual(nil, nil))
	assert.False(t, JSONEqual(a, nil))

	assert.True(t, JSONEqual(
		[]map[string]interface{}{{"id": "e1"}, {"id": "e2"}},
		[]map[string]interface{}{{"id": "e1"}, {"id": "e2"}},
	))
	assert.False(t, JSONEqual(
		[]map[string]interface{}{{"id": "e1"}, {"id": "e2"}},
		[]map[string]interface{}{{"id": "e2"}, {"id": "e1"}},
	), "element order is significant")
}
