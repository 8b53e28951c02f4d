package domain

import "errors"

// Error kinds. Every specific error below wraps exactly one of these so the
// handler layer can classify with errors.Is without knowing each case.
var (
	ErrNotFound        = errors.New("not_found")
	ErrConflict        = errors.New("conflict")
	ErrQuotaExceeded   = errors.New("quota_exceeded")
	ErrPaymentMismatch = errors.New("payment_mismatch")
	ErrUnauthorized    = errors.New("unauthorized")
)

// Sentinel errors for domain-level error handling.
var (
	ErrListingNotFound    = newError("listing_not_found", ErrNotFound)
	ErrAssetNotFound      = newError("asset_not_found", ErrNotFound)
	ErrPlayerNotFound     = newError("player_not_found", ErrNotFound)
	ErrWebhookNotFound    = newError("webhook_not_found", ErrNotFound)
	ErrAlreadyOnSale      = newError("already_on_sale", ErrConflict)
	ErrEquippedItem       = newError("equipped_item_not_for_sale", ErrConflict)
	ErrOwnListing         = newError("own_listing", ErrConflict)
	ErrListingExists      = newError("listing_already_exists", ErrConflict)
	ErrPlayerExists       = newError("player_already_exists", ErrConflict)
	ErrSaleLimit          = newError("sale_limit_reached", ErrQuotaExceeded)
	ErrInventoryFull      = newError("inventory_full", ErrQuotaExceeded)
	ErrSequenceExhausted  = newError("sequence_exhausted", ErrQuotaExceeded)
	ErrPriceMismatch      = newError("price_mismatch", ErrPaymentMismatch)
	ErrNotListingOwner    = newError("not_listing_owner", ErrUnauthorized)
	ErrNotController      = newError("not_controller", ErrUnauthorized)
	ErrMissingCaller      = newError("missing_caller", ErrUnauthorized)
	ErrInvalidCredentials = newError("invalid_credentials", ErrUnauthorized)
)

// Error is a domain error with a stable machine-readable code and a kind.
type Error struct {
	Code string
	Kind error
}

func newError(code string, kind error) *Error {
	return &Error{Code: code, Kind: kind}
}

func (e *Error) Error() string {
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
