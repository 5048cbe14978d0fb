package entities

import (
	"time"

	"github.com/guregu/null"
	"github.com/lib/pq"
)

// ApprovalStatus is the moderation state of a listed account.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

func (s ApprovalStatus) IsValid() bool {
	return s == ApprovalStatusPending || s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

// TransactionStatus is the lifecycle state of a purchase transaction.
// PENDING is the only non-terminal status; no transition leaves a
// terminal status.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
	TransactionStatusExpired   TransactionStatus = "EXPIRED"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusCancelled, TransactionStatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s TransactionStatus) IsTerminal() bool {
	return s != TransactionStatusPending
}

// Account is a game account listed for sale.
type Account struct {
	ID          string         `db:"id"          json:"id"`
	SellerID    string         `db:"seller_id"   json:"sellerId"`
	Game        string         `db:"game"        json:"game"`
	Title       string         `db:"title"       json:"title"`
	Description string         `db:"description" json:"description"`
	LevelRank   string         `db:"level_rank"  json:"levelRank"`
	AmountCents int64          `db:"amount_cents" json:"amountCents"`
	ImageURLs   pq.StringArray `db:"image_urls"  json:"imageUrls"`
	// Credentials are only rendered to the seller and, after a completed
	// sale, to the buyer. Redaction happens at the transport layer.
	Credentials    string         `db:"credentials"     json:"credentials,omitempty"`
	ApprovalStatus ApprovalStatus `db:"approval_status" json:"approvalStatus"`
	Available      bool           `db:"available"       json:"available"`
	BuyerID        null.String    `db:"buyer_id"        json:"buyerId,omitempty"`
	SoldAt         null.Time      `db:"sold_at"         json:"soldAt,omitempty"`
	CreatedAt      time.Time      `db:"created_at"      json:"createdAt"`
}

// Purchasable reports whether a new purchase transaction may be opened
// against the account.
func (a *Account) Purchasable() bool {
	return a.ApprovalStatus == ApprovalStatusApproved && a.Available && !a.BuyerID.Valid
}

// Transaction is a single purchase attempt against an account.
type Transaction struct {
	ID                string            `db:"id"              json:"id"`
	AccountID         string            `db:"account_id"      json:"accountId"`
	BuyerID           string            `db:"buyer_id"        json:"buyerId"`
	SellerID          string            `db:"seller_id"       json:"sellerId"`
	Status            TransactionStatus `db:"status"          json:"status"`
	Reason            null.String       `db:"reason"          json:"reason,omitempty"`
	AmountCents       int64             `db:"amount_cents"    json:"amountCents"`
	PaymentReceivedAt null.Time         `db:"payment_received_at" json:"paymentReceivedAt,omitempty"`
	CreatedAt         time.Time         `db:"created_at"      json:"createdAt"`
	UpdatedAt         time.Time         `db:"updated_at"      json:"updatedAt"`
}

// AccountWithCursor carries the keyset-pagination cursor fields along
// with the account row so a page scan can be resumed from any row.
type AccountWithCursor struct {
	Account
	CursorCreatedAt time.Time `db:"cursor_created_at" json:"-"`
	CursorID        string    `db:"cursor_id"         json:"-"`
}
