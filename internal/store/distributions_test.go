package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/donacije/internal/db"
)

func TestCreateDistributionBasic(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	category, _ := CreateCategory(ctx, database, "Food", "kg", "", "")
	donation, _ := CreateDonation(ctx, database, testDonationParams(category.ID))

	dist, err := CreateDistribution(ctx, database, donation.ID, "family-1", decimal.NewFromInt(4), "weekly box", nil)
	if err != nil {
		t.Fatalf("CreateDistribution: %v", err)
	}
	if !dist.Quantity.Equal(decimal.NewFromInt(4)) {
		t.Errorf("expected quantity 4, got %s", dist.Quantity)
	}
	if dist.FamilyID != "family-1" {
		t.Errorf("expected family 'family-1', got %q", dist.FamilyID)
	}
	if dist.DistributionDate.IsZero() {
		t.Error("expected distribution date to be stamped")
	}

	got, _ := GetDonation(ctx, database, donation.ID)
	if !got.QuantityDistributed.Equal(decimal.NewFromInt(4)) {
		t.Errorf("expected 4 distributed, got %s", got.QuantityDistributed)
	}
	if !got.QuantityRemaining.Equal(decimal.NewFromInt(6)) {
		t.Errorf("expected 6 remaining, got %s", got.QuantityRemaining)
	}
}

func TestCreateDistributionValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	category, _ := CreateCategory(ctx, database, "Food", "kg", "", "")
	donation, _ := CreateDonation(ctx, database, testDonationParams(category.ID))

	var verr *ValidationError
	if _, err := CreateDistribution(ctx, database, donation.ID, "", decimal.NewFromInt(1), "", nil); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for empty family, got %v", err)
	}
	if _, err := CreateDistribution(ctx, database, donation.ID, "f-1", decimal.Zero, "", nil); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for zero quantity, got %v", err)
	}
	if _, err := CreateDistribution(ctx, database, 42, "f-1", decimal.NewFromInt(1), "", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing donation, got %v", err)
	}
}

func TestCreateDistributionAgainstDeletedDonation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	category, _ := CreateCategory(ctx, database, "Food", "kg", "", "")
	donation, _ := CreateDonation(ctx, database, testDonationParams(category.ID))
	DeleteDonation(ctx, database, donation.ID)

	_, err := CreateDistribution(ctx, database, donation.ID, "f-1", decimal.NewFromInt(1), "", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for tombstoned donation, got %v", err)
	}
}

// Exercises the scenario: quantity 10, allocate 4, reject 7, allocate 6,
// delete the first allocation.
func TestAllocationScenario(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	category, _ := CreateCategory(ctx, database, "Food", "kg", "", "")
	donation, _ := CreateDonation(ctx, database, testDonationParams(category.ID))

	distA, err := CreateDistribution(ctx, database, donation.ID, "family-1", decimal.NewFromInt(4), "", nil)
	if err != nil {
		t.Fatalf("distribution A: %v", err)
	}

	var qerr *InsufficientQuantityError
	_, err = CreateDistribution(ctx, database, donation.ID, "family-2", decimal.NewFromInt(7), "", nil)
	if !errors.As(err, &qerr) {
		t.Fatalf("expected InsufficientQuantityError for B, got %v", err)
	}
	if !qerr.Remaining.Equal(decimal.NewFromInt(6)) {
		t.Errorf("expected remaining 6 in error, got %s", qerr.Remaining)
	}

	// The rejected call persisted nothing.
	got, _ := GetDonation(ctx, database, donation.ID)
	if !got.QuantityRemaining.Equal(decimal.NewFromInt(6)) {
		t.Errorf("expected remaining 6 after rejection, got %s", got.QuantityRemaining)
	}
	ledger, _ := ListDistributions(ctx, database, donation.ID, "")
	if len(ledger) != 1 {
		t.Fatalf("expected 1 active distribution after rejection, got %d", len(ledger))
	}

	if _, err := CreateDistribution(ctx, database, donation.ID, "family-3", decimal.NewFromInt(6), "", nil); err != nil {
		t.Fatalf("distribution C: %v", err)
	}
	got, _ = GetDonation(ctx, database, donation.ID)
	if !got.QuantityRemaining.IsZero() {
		t.Errorf("expected 0 remaining, got %s", got.QuantityRemaining)
	}

	if err := DeleteDistribution(ctx, database, distA.ID); err != nil {
		t.Fatalf("deleting distribution A: %v", err)
	}
	got, _ = GetDonation(ctx, database, donation.ID)
	if !got.QuantityRemaining.Equal(decimal.NewFromInt(4)) {
		t.Errorf("expected 4 remaining after deleting A, got %s", got.QuantityRemaining)
	}
}

func TestDeleteDistributionNotIdempotent(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	category, _ := CreateCategory(ctx, database, "Food", "kg", "", "")
	donation, _ := CreateDonation(ctx, database, testDonationParams(category.ID))
	dist, _ := CreateDistribution(ctx, database, donation.ID, "f-1", decimal.NewFromInt(2), "", nil)

	if err := DeleteDistribution(ctx, database, dist.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}

	// The second delete is an error: the repeat signals a client bug.
	if err := DeleteDistribution(ctx, database, dist.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListDistributionsFiltered(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	category, _ := CreateCategory(ctx, database, "Food", "kg", "", "")
	d1, _ := CreateDonation(ctx, database, testDonationParams(category.ID))
	d2, _ := CreateDonation(ctx, database, testDonationParams(category.ID))

	CreateDistribution(ctx, database, d1.ID, "family-1", decimal.NewFromInt(2), "", nil)
	CreateDistribution(ctx, database, d1.ID, "family-2", decimal.NewFromInt(3), "", nil)
	CreateDistribution(ctx, database, d2.ID, "family-1", decimal.NewFromInt(1), "", nil)

	all, _ := ListDistributions(ctx, database, 0, "")
	if len(all) != 3 {
		t.Errorf("expected 3 distributions, got %d", len(all))
	}

	byDonation, _ := ListDistributions(ctx, database, d1.ID, "")
	if len(byDonation) != 2 {
		t.Errorf("expected 2 distributions for donation 1, got %d", len(byDonation))
	}

	byFamily, _ := ListDistributions(ctx, database, 0, "family-1")
	if len(byFamily) != 2 {
		t.Errorf("expected 2 distributions for family-1, got %d", len(byFamily))
	}
}

func TestDecimalQuantitiesStayExact(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	category, _ := CreateCategory(ctx, database, "Food", "kg", "", "")

	p := testDonationParams(category.ID)
	p.Quantity = decimal.RequireFromString("0.3")
	donation, _ := CreateDonation(ctx, database, p)

	// 0.1 + 0.2 must consume exactly 0.3, with no float residue either way.
	if _, err := CreateDistribution(ctx, database, donation.ID, "f-1", decimal.RequireFromString("0.1"), "", nil); err != nil {
		t.Fatalf("first allocation: %v", err)
	}
	if _, err := CreateDistribution(ctx, database, donation.ID, "f-2", decimal.RequireFromString("0.2"), "", nil); err != nil {
		t.Fatalf("second allocation: %v", err)
	}

	got, _ := GetDonation(ctx, database, donation.ID)
	if !got.QuantityRemaining.IsZero() {
		t.Errorf("expected exactly 0 remaining, got %s", got.QuantityRemaining)
	}

	var qerr *InsufficientQuantityError
	if _, err := CreateDistribution(ctx, database, donation.ID, "f-3", decimal.RequireFromString("0.01"), "", nil); !errors.As(err, &qerr) {
		t.Errorf("expected InsufficientQuantityError on exhausted donation, got %v", err)
	}
}

// Hammers one donation with concurrent allocations whose requested quantities
// sum to more than the donation's total. However the attempts interleave, the
// set that succeeds must never overallocate.
func TestConcurrentAllocationsNeverOverallocate(t *testing.T) {
	// A file-backed database is required here: every pooled connection to
	// ":memory:" would open its own empty database.
	path := filepath.Join(t.TempDir(), "donacije.sqlite3")
	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	defer database.Close()
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	ctx := context.Background()
	category, _ := CreateCategory(ctx, database, "Food", "kg", "", "")

	const total = 50
	p := testDonationParams(category.ID)
	p.Quantity = decimal.NewFromInt(total)
	donation, err := CreateDonation(ctx, database, p)
	if err != nil {
		t.Fatalf("CreateDonation: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	results := make([]error, workers)
	quantities := make([]decimal.Decimal, workers)

	for i := 0; i < workers; i++ {
		// Randomized requests summing well past the donation total.
		quantities[i] = decimal.NewFromInt(rand.Int63n(10) + 1)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = CreateDistribution(ctx, database, donation.ID,
				fmt.Sprintf("family-%d", i), quantities[i], "", nil)
		}(i)
	}
	wg.Wait()

	succeeded := decimal.Zero
	for i, err := range results {
		switch {
		case err == nil:
			succeeded = succeeded.Add(quantities[i])
		case errors.As(err, new(*InsufficientQuantityError)):
		case errors.Is(err, ErrConcurrencyConflict):
		default:
			t.Errorf("worker %d: unexpected error: %v", i, err)
		}
	}

	if succeeded.GreaterThan(decimal.NewFromInt(total)) {
		t.Errorf("conservation violated: %s allocated of %d available", succeeded, total)
	}

	got, err := GetDonation(ctx, database, donation.ID)
	if err != nil {
		t.Fatalf("GetDonation: %v", err)
	}
	if got.QuantityRemaining.IsNegative() {
		t.Errorf("remaining went negative: %s", got.QuantityRemaining)
	}
	if !got.QuantityDistributed.Equal(succeeded) {
		t.Errorf("ledger disagrees with successful calls: %s != %s", got.QuantityDistributed, succeeded)
	}
}
