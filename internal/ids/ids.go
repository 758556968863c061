package ids

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// New returns a random identifier for persisted records.
func New() string {
	return uuid.NewString()
}

// NewSortable returns a time-ordered identifier. Token ids use it so that
// two tokens minted in the same second still differ.
func NewSortable() string {
	return ksuid.New().String()
}
