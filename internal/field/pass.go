package field

import "github.com/google/uuid"

// PassTokenGenerator produces tokens identifying recompute passes.
// Tokens group trace events in the journal and in golden traces.
type PassTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 pass tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so journaled
// passes sort by creation time - helpful when eyeballing a trace dump.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7 string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
