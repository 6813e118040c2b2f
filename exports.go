package paymarket

import (
	"github.com/xraph/paymarket/settlement"
	"github.com/xraph/paymarket/types"
)

// Re-export common types for convenience so users don't have to import the
// types and settlement packages.

// Entity is re-exported from types package.
type Entity = types.Entity

// Purchase is re-exported from settlement package.
type Purchase = settlement.Purchase

// NativeToken marks native-currency payments in Purchase.Token.
var NativeToken = types.NativeToken

// Re-export amount helpers
var (
	ParseAmount = types.ParseAmount
	FormatUnits = types.FormatUnits
	Units       = types.Units
)
