package app

import "github.com/google/uuid"

// IDFunc produces unique string identifiers for entities. Production code uses
// NewID; tests inject a deterministic sequence.
type IDFunc func() string

// NewID is the default identifier generator.
func NewID() string {
	return uuid.NewString()
}
