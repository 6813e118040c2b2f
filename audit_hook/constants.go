package audithook

// Action constants for audit events.
const (
	// Access control actions
	ActionOwnershipTransferred = "ownership.transferred"
	ActionMarketPaused         = "market.paused"
	ActionMarketUnpaused       = "market.unpaused"

	// Whitelist actions
	ActionTokenWhitelisted = "token.whitelisted"
	ActionTokenRemoved     = "token.removed"

	// Vendor actions
	ActionVendorRegistered = "vendor.registered"
	ActionVendorUpdated    = "vendor.updated"

	// Fee actions
	ActionFeeRateUpdated      = "fee.rate_updated"
	ActionFeeRecipientUpdated = "fee.recipient_updated"

	// Settlement actions
	ActionPurchaseSettled  = "purchase.settled"
	ActionPurchaseRejected = "purchase.rejected"
)

// Resource constants for audit events.
const (
	ResourceMarket     = "market"
	ResourceToken      = "token"
	ResourceVendor     = "vendor"
	ResourceFee        = "fee"
	ResourceSettlement = "settlement"
)

// Category constants for audit events.
const (
	CategoryAccess     = "access"
	CategoryConfig     = "config"
	CategoryRegistry   = "registry"
	CategorySettlement = "settlement"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
