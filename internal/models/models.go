package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// RequestField names a mutable content field of a request. Values outside
// this set are rejected by the store.
type RequestField string

const (
	FieldPrivateTitle RequestField = "private_title"
	FieldItemTitle    RequestField = "item_title"
	FieldDescription  RequestField = "description"
	FieldPhoto        RequestField = "photo_file_id"
)

// DeliveryContact is the pickup-point contact bundle. The three fields are
// written together; a bundle is either fully set or absent.
type DeliveryContact struct {
	FullName string
	Phone    string
	Address  string
}

// PayoutContact is the payout-details bundle, same all-or-nothing rule.
type PayoutContact struct {
	FullName string
	Card     string
	Bank     string
}

// UserProfile is created lazily on first contact and never deleted.
type UserProfile struct {
	UserID    int64
	Accepted  bool
	FirstSeen *time.Time
	Delivery  *DeliveryContact
	Payout    *PayoutContact
}

func (p *UserProfile) HasDelivery() bool {
	return p != nil && p.Delivery != nil
}

func (p *UserProfile) HasPayout() bool {
	return p != nil && p.Payout != nil
}

// Request is a buyer's purchase request. PrivateTitle is visible to the
// owner only. Status moves pending->approved or pending->rejected, once.
type Request struct {
	ID           int64
	UserID       int64
	PrivateTitle string
	ItemTitle    string
	Description  string
	PhotoFileID  string // empty means no photo attached
	Status       RequestStatus
	CreatedAt    time.Time
	ModeratedAt  *time.Time
	RejectReason string
}

// Offer is a seller's response to a published request. Offers are never
// mutated or deleted after insertion.
type Offer struct {
	ID          int64
	RequestID   int64
	SellerID    int64
	Price       decimal.Decimal
	Days        int
	Condition   int // 1..10
	PhotoFileID string
	CreatedAt   time.Time
}
