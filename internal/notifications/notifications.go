// Package notifications fans out typed lifecycle events to the
// configured delivery channels. Dispatch is fire-and-forget: a
// delivery failure never fails or rolls back the state transition
// that produced the event, and there is no durable retry queue.
package notifications

import (
	"context"
	"time"
)

// Kind is the fixed set of notification event kinds.
type Kind string

const (
	KindAccountApproved Kind = "ACCOUNT_APPROVED"
	KindAccountRejected Kind = "ACCOUNT_REJECTED"
	KindAccountSold     Kind = "ACCOUNT_SOLD"
	KindNewTransaction  Kind = "NEW_TRANSACTION"
	KindPaymentReceived Kind = "PAYMENT_RECEIVED"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindAccountApproved, KindAccountRejected, KindAccountSold, KindNewTransaction, KindPaymentReceived:
		return true
	}
	return false
}

// Event is an ephemeral record of a state change. PayloadRef is the
// id of the account or transaction the event is about.
type Event struct {
	Kind        Kind      `json:"kind"`
	RecipientID string    `json:"recipientId"`
	PayloadRef  string    `json:"payloadRef"`
	EmittedAt   time.Time `json:"emittedAt"`
}

// Sink is a delivery channel for events. Implementations perform no
// business logic; they are a pure mapping from event to delivery call.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event Event) error
}
