package models

import "time"

// Payment purposes and statuses mirrored from the payment gateway service.
const (
	PaymentPurposeEntryFee = "ENTRY_FEE"
	PaymentPurposeClaimFee = "CLAIM_FEE"

	PaymentStatusCreated = "created"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// PaymentRecord mirrors one gateway order. Rows are upserted by the payment
// sync worker and flipped to paid either by the worker or by the signed
// gateway callback; the core never talks to the gateway directly.
type PaymentRecord struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	OrderID    string     `json:"order_id" gorm:"uniqueIndex;not null"`
	UserID     string     `json:"user_id" gorm:"index;not null"`
	AuctionID  string     `json:"hourly_auction_id" gorm:"index"`
	Purpose    string     `json:"purpose" gorm:"default:'ENTRY_FEE'"`
	Amount     float64    `json:"amount"` // rupees
	Status     string     `json:"status" gorm:"default:'created';index"`
	PaymentRef string     `json:"payment_ref,omitempty"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}
