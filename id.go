package paymarket

import "github.com/xraph/paymarket/id"

// ID is the identifier type for settlement and audit records.
type ID = id.ID

// Prefix identifies the record type encoded in a TypeID.
type Prefix = id.Prefix
