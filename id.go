package wallet

import "github.com/reachly/wallet/id"

// ID is the primary identifier type for all wallet entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
