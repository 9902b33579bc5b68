package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/donacije/internal/model"
)

// Default and maximum page sizes for donation listings.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// DonationFilter narrows a donation listing. All fields are optional and
// conjunctive, except Search which matches donor name OR description.
type DonationFilter struct {
	Search     string
	CategoryID int64
	Status     string
	Donor      string
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}

// DonationPage is one page of a donation listing.
type DonationPage struct {
	Items      []model.Donation `json:"items"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
	Page       int              `json:"page"`
}

// ListDonations returns a filtered, paginated donation listing ordered most
// recently received first. A page beyond range yields an empty page, not an
// error. Tombstoned donations are excluded.
func ListDonations(ctx context.Context, db *sql.DB, filter DonationFilter) (*DonationPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	where := `WHERE deleted_at IS NULL`
	var args []any

	if filter.Search != "" {
		where += ` AND (LOWER(donor_name) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)`
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if filter.CategoryID > 0 {
		where += ` AND category_id = ?`
		args = append(args, filter.CategoryID)
	}
	if filter.Status != "" {
		where += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Donor != "" {
		where += ` AND donor_name = ?`
		args = append(args, filter.Donor)
	}
	if filter.From != nil {
		where += ` AND received_date >= ?`
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where += ` AND received_date <= ?`
		args = append(args, *filter.To)
	}

	var total int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM donations `+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("counting donations: %w", err)
	}

	query := `SELECT id, category_id, donor_name, donor_contact, quantity, unit, estimated_value, description,
	                 status, received_date, recorded_by, created_at, updated_at, deleted_at
	          FROM donations ` + where + `
	          ORDER BY received_date DESC, created_at DESC
	          LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing donations: %w", err)
	}
	defer rows.Close()

	items, err := scanDonations(rows)
	if err != nil {
		return nil, err
	}

	for i := range items {
		distributed, err := sumDistributed(ctx, db, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].QuantityDistributed = distributed
		items[i].QuantityRemaining = items[i].Quantity.Sub(distributed)
	}

	totalPages := (total + limit - 1) / limit
	if items == nil {
		items = []model.Donation{}
	}
	return &DonationPage{
		Items:      items,
		Total:      total,
		TotalPages: totalPages,
		Page:       page,
	}, nil
}

func scanDonations(rows *sql.Rows) ([]model.Donation, error) {
	var donations []model.Donation
	for rows.Next() {
		d, err := scanDonationRow(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, *d)
	}
	return donations, rows.Err()
}

func scanDonationRow(rows *sql.Rows) (*model.Donation, error) {
	d := &model.Donation{}
	var donorContact, estimated, description sql.NullString
	var quantity string
	if err := rows.Scan(&d.ID, &d.CategoryID, &d.DonorName, &donorContact, &quantity, &d.Unit, &estimated, &description,
		&d.Status, &d.ReceivedDate, &d.RecordedBy, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt); err != nil {
		return nil, fmt.Errorf("scanning donation: %w", err)
	}

	d.DonorContact = donorContact.String
	d.Description = description.String

	var err error
	if d.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("parsing donation quantity: %w", err)
	}
	if estimated.Valid {
		v, err := decimal.NewFromString(estimated.String)
		if err != nil {
			return nil, fmt.Errorf("parsing estimated value: %w", err)
		}
		d.EstimatedValue = &v
	}
	return d, nil
}
