package ir

import (
	"fmt"
	"strings"
)

// FieldKey is a typed "node.field" reference used in tree-spec wiring
// and diagnostics.
type FieldKey string

// Key builds a FieldKey from node and field names.
func Key(node, field string) FieldKey {
	return FieldKey(node + "." + field)
}

// Split returns the node and field halves of the key.
// Errors on anything that is not exactly "node.field".
func (k FieldKey) Split() (node, field string, err error) {
	parts := strings.SplitN(string(k), ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid field key %q: want \"node.field\"", string(k))
	}
	return parts[0], parts[1], nil
}
