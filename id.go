package handoff

import "github.com/xraph/handoff/id"

// ID is the primary identifier type for all Handoff entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
