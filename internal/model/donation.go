package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Donation represents a recorded in-kind contribution with a total quantity
// and a lifecycle status. QuantityDistributed and QuantityRemaining are
// derived from the distribution ledger and never stored.
type Donation struct {
	ID             int64            `json:"id"`
	CategoryID     int64            `json:"category_id"`
	DonorName      string           `json:"donor_name"`
	DonorContact   string           `json:"donor_contact,omitempty"`
	Quantity       decimal.Decimal  `json:"quantity"`
	Unit           string           `json:"unit"`
	EstimatedValue *decimal.Decimal `json:"estimated_value,omitempty"`
	Description    string           `json:"description,omitempty"`
	Status         string           `json:"status"`
	ReceivedDate   time.Time        `json:"received_date"`
	RecordedBy     *int64           `json:"recorded_by,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DeletedAt      *time.Time       `json:"deleted_at,omitempty"`

	QuantityDistributed decimal.Decimal `json:"quantity_distributed"`
	QuantityRemaining   decimal.Decimal `json:"quantity_remaining"`

	// Resolved category view, populated only on request.
	Category *Category `json:"category,omitempty"`
}

// Donation statuses.
const (
	DonationStatusPending     = "pending"
	DonationStatusReceived    = "received"
	DonationStatusDistributed = "distributed"
	DonationStatusExpired     = "expired"
)

// ValidDonationStatus reports whether s is a known donation status.
func ValidDonationStatus(s string) bool {
	switch s {
	case DonationStatusPending, DonationStatusReceived, DonationStatusDistributed, DonationStatusExpired:
		return true
	}
	return false
}

// allowedTransitions is the status transition allow-list. Status is
// independent of allocation: marking a donation distributed does not require
// the remaining quantity to be zero, and allocation never changes status.
var allowedTransitions = map[string][]string{
	DonationStatusPending:     {DonationStatusReceived, DonationStatusExpired},
	DonationStatusReceived:    {DonationStatusDistributed, DonationStatusExpired},
	DonationStatusDistributed: {DonationStatusReceived},
}

// CanTransition reports whether a donation may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
