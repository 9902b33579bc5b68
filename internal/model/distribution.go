package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Distribution represents an allocation of part of a donation's quantity to a
// beneficiary family. The family is an external reference; this service only
// stores its identifier.
type Distribution struct {
	ID               int64           `json:"id"`
	DonationID       int64           `json:"donation_id"`
	FamilyID         string          `json:"family_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	Notes            string          `json:"notes,omitempty"`
	DistributionDate time.Time       `json:"distribution_date"`
	DistributedBy    *int64          `json:"distributed_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        *time.Time      `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	DonorName string `json:"donor_name,omitempty"`
	Unit      string `json:"unit,omitempty"`
}
