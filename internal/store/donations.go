package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/donacije/internal/model"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so ledger sums can run inside
// the allocation transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DonationParams holds caller-supplied donation fields for create and update.
type DonationParams struct {
	CategoryID     int64
	DonorName      string
	DonorContact   string
	Quantity       decimal.Decimal
	Unit           string
	EstimatedValue *decimal.Decimal
	Description    string
	Status         string
	ReceivedDate   time.Time // zero value defaults to now
	RecordedBy     *int64
}

func validateDonationParams(ctx context.Context, db dbtx, p DonationParams) error {
	if p.DonorName == "" {
		return &ValidationError{Field: "donor_name", Reason: "must not be empty"}
	}
	if p.Unit == "" {
		return &ValidationError{Field: "unit", Reason: "must not be empty"}
	}
	if !p.Quantity.IsPositive() {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if p.EstimatedValue != nil && p.EstimatedValue.IsNegative() {
		return &ValidationError{Field: "estimated_value", Reason: "must not be negative"}
	}
	if !model.ValidDonationStatus(p.Status) {
		return &ValidationError{Field: "status", Reason: "must be one of pending, received, distributed, expired"}
	}

	// The category must exist and be active. Deactivation only blocks new
	// references, it never touches existing donations.
	var isActive bool
	err := db.QueryRowContext(ctx,
		`SELECT is_active FROM categories WHERE id = ? AND deleted_at IS NULL`, p.CategoryID,
	).Scan(&isActive)
	if err == sql.ErrNoRows {
		return &ValidationError{Field: "category_id", Reason: "category does not exist"}
	}
	if err != nil {
		return fmt.Errorf("checking category: %w", err)
	}
	if !isActive {
		return &ValidationError{Field: "category_id", Reason: "category is inactive"}
	}
	return nil
}

// CreateDonation validates and persists a new donation. The initial status is
// caller-supplied and must be pending or received.
func CreateDonation(ctx context.Context, db *sql.DB, p DonationParams) (*model.Donation, error) {
	if err := validateDonationParams(ctx, db, p); err != nil {
		return nil, err
	}
	if p.Status != model.DonationStatusPending && p.Status != model.DonationStatusReceived {
		return nil, &ValidationError{Field: "status", Reason: "new donations must be pending or received"}
	}

	received := p.ReceivedDate
	if received.IsZero() {
		received = time.Now().UTC()
	}

	var estimated any
	if p.EstimatedValue != nil {
		estimated = p.EstimatedValue.String()
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO donations (category_id, donor_name, donor_contact, quantity, unit, estimated_value, description, status, received_date, recorded_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CategoryID, p.DonorName, p.DonorContact, p.Quantity.String(), p.Unit,
		estimated, p.Description, p.Status, received, p.RecordedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("creating donation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting donation id: %w", err)
	}

	return GetDonation(ctx, db, id)
}

// GetDonation returns a non-deleted donation by ID with its derived
// distributed and remaining quantities.
func GetDonation(ctx context.Context, db *sql.DB, id int64) (*model.Donation, error) {
	d, err := getDonation(ctx, db, id)
	if err != nil {
		return nil, err
	}

	distributed, err := sumDistributed(ctx, db, id)
	if err != nil {
		return nil, err
	}
	d.QuantityDistributed = distributed
	d.QuantityRemaining = d.Quantity.Sub(distributed)
	return d, nil
}

func getDonation(ctx context.Context, db dbtx, id int64) (*model.Donation, error) {
	d := &model.Donation{}
	var donorContact, estimated, description sql.NullString
	var quantity string
	err := db.QueryRowContext(ctx,
		`SELECT id, category_id, donor_name, donor_contact, quantity, unit, estimated_value, description,
		        status, received_date, recorded_by, created_at, updated_at, deleted_at
		 FROM donations WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&d.ID, &d.CategoryID, &d.DonorName, &donorContact, &quantity, &d.Unit, &estimated, &description,
		&d.Status, &d.ReceivedDate, &d.RecordedBy, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting donation: %w", err)
	}

	d.DonorContact = donorContact.String
	d.Description = description.String
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

// sumDistributed computes the total quantity of a donation's active
// distributions. The sum is always recomputed from the ledger, never cached.
func sumDistributed(ctx context.Context, db dbtx, donationID int64) (decimal.Decimal, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT quantity FROM distributions WHERE donation_id = ? AND deleted_at IS NULL`,
		donationID,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing distributions: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var quantity string
		if err := rows.Scan(&quantity); err != nil {
			return decimal.Zero, fmt.Errorf("scanning distribution quantity: %w", err)
		}
		q, err := decimal.NewFromString(quantity)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parsing distribution quantity: %w", err)
		}
		total = total.Add(q)
	}
	return total, rows.Err()
}

// UpdateDonation validates and updates a donation's caller-settable fields.
// Derived quantities and status are not updatable here; status changes go
// through SetDonationStatus. The new quantity may not fall below the sum
// already distributed, so the remaining quantity can never go negative.
func UpdateDonation(ctx context.Context, db *sql.DB, id int64, p DonationParams) (*model.Donation, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Acquire the write lock up front so a concurrent allocation cannot slip
	// between the ledger check and the update.
	if _, err := tx.ExecContext(ctx, `UPDATE donations SET id = id WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}

	current, err := getDonation(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == "" {
		p.Status = current.Status
	}
	if err := validateDonationParams(ctx, tx, p); err != nil {
		return nil, err
	}
	if p.Status != current.Status {
		return nil, &ValidationError{Field: "status", Reason: "status changes must use the status endpoint"}
	}

	allocated, err := sumDistributed(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p.Quantity.LessThan(allocated) {
		return nil, &ValidationError{
			Field:  "quantity",
			Reason: fmt.Sprintf("cannot be reduced below the %s already distributed", allocated),
		}
	}

	received := p.ReceivedDate
	if received.IsZero() {
		received = current.ReceivedDate
	}

	var estimated any
	if p.EstimatedValue != nil {
		estimated = p.EstimatedValue.String()
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE donations
		 SET category_id = ?, donor_name = ?, donor_contact = ?, quantity = ?, unit = ?,
		     estimated_value = ?, description = ?, received_date = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		p.CategoryID, p.DonorName, p.DonorContact, p.Quantity.String(), p.Unit,
		estimated, p.Description, received, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating donation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing donation update: %w", err)
	}

	return GetDonation(ctx, db, id)
}

// DeleteDonation soft-deletes a donation. The row is kept so existing
// distributions stay referentially valid.
func DeleteDonation(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE donations SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting donation: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDonationStatus moves a donation to a new status, validated against the
// transition allow-list. Status and allocation are independent facts: this
// never inspects the remaining quantity.
func SetDonationStatus(ctx context.Context, db *sql.DB, id int64, newStatus string) (*model.Donation, error) {
	if !model.ValidDonationStatus(newStatus) {
		return nil, &ValidationError{Field: "status", Reason: "unknown status"}
	}

	current, err := getDonation(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(current.Status, newStatus) {
		return nil, &InvalidStatusTransitionError{From: current.Status, To: newStatus}
	}

	_, err = db.ExecContext(ctx,
		`UPDATE donations SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		newStatus, id,
	)
	if err != nil {
		return nil, fmt.Errorf("setting donation status: %w", err)
	}

	return GetDonation(ctx, db, id)
}
