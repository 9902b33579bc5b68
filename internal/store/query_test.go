package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/donacije/internal/db"
	"github.com/erazemk/donacije/internal/model"
)

func TestListDonationsSearch(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	category, _ := CreateCategory(ctx, database, "Food", "kg", "", "")

	p := testDonationParams(category.ID)
	p.DonorName = "Alice Baker"
	CreateDonation(ctx, database, p)

	p = testDonationParams(category.ID)
	p.DonorName = "Bob"
	p.Description = "canned BAKED beans"
	CreateDonation(ctx, database, p)

	p = testDonationParams(category.ID)
	p.DonorName = "Carol"
	CreateDonation(ctx, database, p)

	// Case-insensitive substring match over donor name OR description.
	page, err := ListDonations(ctx, database, DonationFilter{Search: "bake"})
	if err != nil {
		t.Fatalf("ListDonations: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("expected 2 matches for 'bake', got %d", page.Total)
	}
}

func TestListDonationsConjunctiveFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	food, _ := CreateCategory(ctx, database, "Food", "kg", "", "")
	clothing, _ := CreateCategory(ctx, database, "Clothing", "pcs", "", "")

	p := testDonationParams(food.ID)
	p.Status = model.DonationStatusPending
	CreateDonation(ctx, database, p)

	p = testDonationParams(food.ID)
	p.Status = model.DonationStatusReceived
	CreateDonation(ctx, database, p)

	p = testDonationParams(clothing.ID)
	p.Unit = "pcs"
	p.Status = model.DonationStatusPending
	CreateDonation(ctx, database, p)

	// Both conditions must hold.
	page, _ := ListDonations(ctx, database, DonationFilter{
		Status:     model.DonationStatusPending,
		CategoryID: food.ID,
	})
	if page.Total != 1 {
		t.Errorf("expected 1 pending food donation, got %d", page.Total)
	}

	byDonor, _ := ListDonations(ctx, database, DonationFilter{
		Donor:  "Alice",
		Status: model.DonationStatusReceived,
	})
	if byDonor.Total != 1 {
		t.Errorf("expected 1 received donation by Alice, got %d", byDonor.Total)
	}
}

func TestListDonationsDateRange(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	category, _ := CreateCategory(ctx, database, "Food", "kg", "", "")

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		p := testDonationParams(category.ID)
		p.ReceivedDate = base.AddDate(0, 0, i*7)
		CreateDonation(ctx, database, p)
	}

	from := base.AddDate(0, 0, 3)
	to := base.AddDate(0, 0, 10)
	page, _ := ListDonations(ctx, database, DonationFilter{From: &from, To: &to})
	if page.Total != 1 {
		t.Errorf("expected 1 donation in range, got %d", page.Total)
	}
}

func TestListDonationsExcludesTombstones(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	category, _ := CreateCategory(ctx, database, "Food", "kg", "", "")
	donation, _ := CreateDonation(ctx, database, testDonationParams(category.ID))
	CreateDonation(ctx, database, testDonationParams(category.ID))

	DeleteDonation(ctx, database, donation.ID)

	page, _ := ListDonations(ctx, database, DonationFilter{})
	if page.Total != 1 {
		t.Errorf("expected 1 donation after soft delete, got %d", page.Total)
	}
}

func TestListDonationsPagination(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	category, _ := CreateCategory(ctx, database, "Food", "kg", "", "")

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		p := testDonationParams(category.ID)
		p.ReceivedDate = base.AddDate(0, 0, i)
		CreateDonation(ctx, database, p)
	}

	page1, err := ListDonations(ctx, database, DonationFilter{Page: 1, Limit: 3})
	if err != nil {
		t.Fatalf("ListDonations: %v", err)
	}
	if len(page1.Items) != 3 {
		t.Errorf("expected 3 items on page 1, got %d", len(page1.Items))
	}
	if page1.Total != 7 || page1.TotalPages != 3 {
		t.Errorf("expected total 7 over 3 pages, got %d over %d", page1.Total, page1.TotalPages)
	}

	// Most recently received first.
	if !page1.Items[0].ReceivedDate.After(page1.Items[1].ReceivedDate) {
		t.Error("expected newest donation first")
	}

	page3, _ := ListDonations(ctx, database, DonationFilter{Page: 3, Limit: 3})
	if len(page3.Items) != 1 {
		t.Errorf("expected 1 item on last page, got %d", len(page3.Items))
	}

	// A page beyond range is empty, not an error.
	page9, err := ListDonations(ctx, database, DonationFilter{Page: 9, Limit: 3})
	if err != nil {
		t.Fatalf("out-of-range page: %v", err)
	}
	if len(page9.Items) != 0 {
		t.Errorf("expected empty page beyond range, got %d items", len(page9.Items))
	}
	if page9.Total != 7 {
		t.Errorf("expected total still 7, got %d", page9.Total)
	}
}

func TestListDonationsIncludesDerivedQuantities(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	category, _ := CreateCategory(ctx, database, "Food", "kg", "", "")
	donation, _ := CreateDonation(ctx, database, testDonationParams(category.ID))
	CreateDistribution(ctx, database, donation.ID, "f-1", decimal.NewFromInt(3), "", nil)

	page, _ := ListDonations(ctx, database, DonationFilter{})
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(page.Items))
	}
	if !page.Items[0].QuantityRemaining.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected 7 remaining in listing, got %s", page.Items[0].QuantityRemaining)
	}
}
