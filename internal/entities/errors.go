package entities

import "errors"

// Domain error taxonomy. Handlers map these onto HTTP responses; the
// services return them wrapped with context so callers can react with
// errors.Is without parsing message text.
var (
	// ErrAccountNotFound / ErrTransactionNotFound: the referenced row is absent.
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrAccountNotPurchasable: the account is not approved, or is held by
	// an active purchase, or was already sold.
	ErrAccountNotPurchasable = errors.New("account is not in a purchasable state")

	// ErrActiveTransactionExists: a concurrent buyer already holds the
	// account with a non-terminal transaction.
	ErrActiveTransactionExists = errors.New("account already has a non-terminal purchase transaction")

	// ErrSelfPurchase: the buyer is the account's seller.
	ErrSelfPurchase = errors.New("sellers cannot purchase their own account")

	// ErrInvalidTransition: the requested lifecycle transition is not valid
	// from the transaction's current status.
	ErrInvalidTransition = errors.New("invalid transaction status transition")

	// ErrNotParticipant: the acting user is neither the buyer nor the
	// seller of the transaction.
	ErrNotParticipant = errors.New("user is not a participant of this transaction")

	// ErrInvalidCursor: the pagination token is malformed or tampered.
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)
