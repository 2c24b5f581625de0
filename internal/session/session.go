// Package session tags one ingestion run (one recorded skydive) with a
// stable identifier for log correlation across the adapters that consume
// an engine's output.
package session

import "github.com/google/uuid"

// ID identifies a single run of the detection engine over one recording.
type ID string

// New mints a fresh run identifier.
func New() ID {
	return ID(uuid.New().String())
}

func (id ID) String() string { return string(id) }
