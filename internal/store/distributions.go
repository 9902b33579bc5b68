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

// allocationRetries bounds how often an allocation retries its
// read-check-insert cycle against a locked database before giving up.
const allocationRetries = 3

// CreateDistribution allocates part of a donation's quantity to a family.
// The remaining-quantity check and the insert run in a single transaction so
// concurrent allocations against the same donation cannot overallocate.
// Nothing is persisted when any check fails.
func CreateDistribution(ctx context.Context, db *sql.DB, donationID int64, familyID string, quantity decimal.Decimal, notes string, distributedBy *int64) (*model.Distribution, error) {
	if familyID == "" {
		return nil, &ValidationError{Field: "family_id", Reason: "must not be empty"}
	}
	if !quantity.IsPositive() {
		return nil, &ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	var lastErr error
	for attempt := 0; attempt < allocationRetries; attempt++ {
		id, err := allocate(ctx, db, donationID, familyID, quantity, notes, distributedBy)
		if err == nil {
			return GetDistribution(ctx, db, id)
		}
		if !isBusy(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, lastErr)
}

// allocate runs one check-and-insert cycle and returns the new distribution ID.
func allocate(ctx context.Context, db *sql.DB, donationID int64, familyID string, quantity decimal.Decimal, notes string, distributedBy *int64) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Acquire the write lock up front so the ledger sum and the insert see
	// the same state.
	if _, err := tx.ExecContext(ctx, `UPDATE donations SET id = id WHERE id = ?`, donationID); err != nil {
		return 0, fmt.Errorf("acquiring lock: %w", err)
	}

	donation, err := getDonation(ctx, tx, donationID)
	if err != nil {
		return 0, err
	}

	allocated, err := sumDistributed(ctx, tx, donationID)
	if err != nil {
		return 0, err
	}

	remaining := donation.Quantity.Sub(allocated)
	if quantity.GreaterThan(remaining) {
		return 0, &InsufficientQuantityError{Requested: quantity, Remaining: remaining}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO distributions (donation_id, family_id, quantity, notes, distribution_date, distributed_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		donationID, familyID, quantity.String(), notes, time.Now().UTC(), distributedBy,
	)
	if err != nil {
		return 0, fmt.Errorf("recording distribution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing distribution: %w", err)
	}

	id, _ := result.LastInsertId()
	return id, nil
}

// isBusy reports whether an error is a transient sqlite contention failure
// worth retrying.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// GetDistribution returns a non-deleted distribution by ID.
func GetDistribution(ctx context.Context, db *sql.DB, id int64) (*model.Distribution, error) {
	t := &model.Distribution{}
	var notes sql.NullString
	var quantity string
	err := db.QueryRowContext(ctx,
		`SELECT dist.id, dist.donation_id, dist.family_id, dist.quantity, dist.notes,
		        dist.distribution_date, dist.distributed_by, dist.created_at, dist.updated_at, dist.deleted_at,
		        don.donor_name, don.unit
		 FROM distributions dist
		 JOIN donations don ON don.id = dist.donation_id
		 WHERE dist.id = ? AND dist.deleted_at IS NULL`, id,
	).Scan(&t.ID, &t.DonationID, &t.FamilyID, &quantity, &notes,
		&t.DistributionDate, &t.DistributedBy, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
		&t.DonorName, &t.Unit)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting distribution: %w", err)
	}
	t.Notes = notes.String
	if t.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("parsing distribution quantity: %w", err)
	}
	return t, nil
}

// DeleteDistribution soft-deletes a distribution, returning its quantity to
// the donation's available pool. Deleting the same distribution twice fails
// with ErrNotFound on the second call; the repeat signals a client bug.
func DeleteDistribution(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE distributions SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting distribution: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDistributions returns active distributions, optionally filtered by
// donation or family.
func ListDistributions(ctx context.Context, db *sql.DB, donationID int64, familyID string) ([]model.Distribution, error) {
	query := `SELECT dist.id, dist.donation_id, dist.family_id, dist.quantity, dist.notes,
	                 dist.distribution_date, dist.distributed_by, dist.created_at, dist.updated_at, dist.deleted_at,
	                 don.donor_name, don.unit
	          FROM distributions dist
	          JOIN donations don ON don.id = dist.donation_id
	          WHERE dist.deleted_at IS NULL`
	var args []any

	if donationID > 0 {
		query += ` AND dist.donation_id = ?`
		args = append(args, donationID)
	}
	if familyID != "" {
		query += ` AND dist.family_id = ?`
		args = append(args, familyID)
	}

	query += ` ORDER BY dist.distribution_date DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing distributions: %w", err)
	}
	defer rows.Close()

	var distributions []model.Distribution
	for rows.Next() {
		var t model.Distribution
		var notes sql.NullString
		var quantity string
		if err := rows.Scan(&t.ID, &t.DonationID, &t.FamilyID, &quantity, &notes,
			&t.DistributionDate, &t.DistributedBy, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
			&t.DonorName, &t.Unit); err != nil {
			return nil, fmt.Errorf("scanning distribution: %w", err)
		}
		t.Notes = notes.String
		if t.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("parsing distribution quantity: %w", err)
		}
		distributions = append(distributions, t)
	}
	return distributions, rows.Err()
}
