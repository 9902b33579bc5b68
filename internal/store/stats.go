package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/donacije/internal/model"
)

// StatsFilter scopes the aggregate projections to a received-date range
// and/or a category.
type StatsFilter struct {
	From       *time.Time
	To         *time.Time
	CategoryID int64
}

// Summary is the top-level donation rollup.
type Summary struct {
	TotalDonations   int             `json:"total_donations"`
	TotalValue       decimal.Decimal `json:"total_value"`
	TotalQuantity    decimal.Decimal `json:"total_quantity"`
	AvgDonationValue decimal.Decimal `json:"avg_donation_value"`
	TotalDonors      int             `json:"total_donors"`
}

// StatusStat is a per-status rollup. Percentage is a ratio of the donation
// count; formatting is a presentation concern.
type StatusStat struct {
	Status     string          `json:"status"`
	Count      int             `json:"count"`
	TotalValue decimal.Decimal `json:"total_value"`
	Percentage float64         `json:"percentage"`
}

// CategoryStat is a per-category rollup joined with category display metadata.
type CategoryStat struct {
	CategoryID int64           `json:"category_id"`
	Name       string          `json:"name"`
	Icon       string          `json:"icon,omitempty"`
	Color      string          `json:"color,omitempty"`
	Count      int             `json:"count"`
	TotalValue decimal.Decimal `json:"total_value"`
	Percentage float64         `json:"percentage"`
}

// DonorStat ranks a donor by contributed value.
type DonorStat struct {
	DonorName      string          `json:"donor_name"`
	TotalDonations int             `json:"total_donations"`
	TotalValue     decimal.Decimal `json:"total_value"`
}

// Stats bundles all dashboard projections. Everything is recomputed from the
// donation and distribution tables on each call; there is no cached state to
// drift.
type Stats struct {
	Summary           Summary          `json:"summary"`
	StatusBreakdown   []StatusStat     `json:"status_breakdown"`
	CategoryBreakdown []CategoryStat   `json:"category_breakdown"`
	TopDonors         []DonorStat      `json:"top_donors"`
	RecentActivity    []model.Donation `json:"recent_activity"`
}

// ComputeStats builds all projections in one pass over the non-deleted
// donations matching the filter. An empty dataset yields zeroed structures.
func ComputeStats(ctx context.Context, db *sql.DB, filter StatsFilter, topN int) (*Stats, error) {
	donations, err := statsDonations(ctx, db, filter)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		StatusBreakdown:   []StatusStat{},
		CategoryBreakdown: []CategoryStat{},
		TopDonors:         []DonorStat{},
		RecentActivity:    []model.Donation{},
	}
	stats.Summary.TotalValue = decimal.Zero
	stats.Summary.TotalQuantity = decimal.Zero
	stats.Summary.AvgDonationValue = decimal.Zero

	total := len(donations)
	stats.Summary.TotalDonations = total

	donors := make(map[string]*DonorStat)
	byStatus := make(map[string]*StatusStat)
	byCategory := make(map[int64]*CategoryStat)

	for i := range donations {
		d := &donations[i]

		value := decimal.Zero
		if d.EstimatedValue != nil {
			value = *d.EstimatedValue
		}

		stats.Summary.TotalValue = stats.Summary.TotalValue.Add(value)
		stats.Summary.TotalQuantity = stats.Summary.TotalQuantity.Add(d.Quantity)

		if _, ok := donors[d.DonorName]; !ok {
			donors[d.DonorName] = &DonorStat{DonorName: d.DonorName, TotalValue: decimal.Zero}
		}
		donors[d.DonorName].TotalDonations++
		donors[d.DonorName].TotalValue = donors[d.DonorName].TotalValue.Add(value)

		if _, ok := byStatus[d.Status]; !ok {
			byStatus[d.Status] = &StatusStat{Status: d.Status, TotalValue: decimal.Zero}
		}
		byStatus[d.Status].Count++
		byStatus[d.Status].TotalValue = byStatus[d.Status].TotalValue.Add(value)

		if _, ok := byCategory[d.CategoryID]; !ok {
			byCategory[d.CategoryID] = &CategoryStat{CategoryID: d.CategoryID, TotalValue: decimal.Zero}
		}
		byCategory[d.CategoryID].Count++
		byCategory[d.CategoryID].TotalValue = byCategory[d.CategoryID].TotalValue.Add(value)
	}

	stats.Summary.TotalDonors = len(donors)
	if total > 0 {
		stats.Summary.AvgDonationValue = stats.Summary.TotalValue.DivRound(decimal.NewFromInt(int64(total)), 4)
	}

	for _, s := range byStatus {
		if total > 0 {
			s.Percentage = float64(s.Count) / float64(total)
		}
		stats.StatusBreakdown = append(stats.StatusBreakdown, *s)
	}
	sort.Slice(stats.StatusBreakdown, func(i, j int) bool {
		return stats.StatusBreakdown[i].Status < stats.StatusBreakdown[j].Status
	})

	// Join category display metadata.
	categories, err := ListCategories(ctx, db, false)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]model.Category, len(categories))
	for _, c := range categories {
		names[c.ID] = c
	}
	for _, c := range byCategory {
		if meta, ok := names[c.CategoryID]; ok {
			c.Name = meta.Name
			c.Icon = meta.Icon
			c.Color = meta.Color
		}
		if total > 0 {
			c.Percentage = float64(c.Count) / float64(total)
		}
		stats.CategoryBreakdown = append(stats.CategoryBreakdown, *c)
	}
	sort.Slice(stats.CategoryBreakdown, func(i, j int) bool {
		return stats.CategoryBreakdown[i].Name < stats.CategoryBreakdown[j].Name
	})

	for _, d := range donors {
		stats.TopDonors = append(stats.TopDonors, *d)
	}
	sort.Slice(stats.TopDonors, func(i, j int) bool {
		a, b := stats.TopDonors[i], stats.TopDonors[j]
		if !a.TotalValue.Equal(b.TotalValue) {
			return a.TotalValue.GreaterThan(b.TotalValue)
		}
		if a.TotalDonations != b.TotalDonations {
			return a.TotalDonations > b.TotalDonations
		}
		return a.DonorName < b.DonorName
	})
	if topN > 0 && len(stats.TopDonors) > topN {
		stats.TopDonors = stats.TopDonors[:topN]
	}

	// Donations arrive ordered received_date DESC, so recent activity is a
	// prefix of the working set.
	recent := donations
	if topN > 0 && len(recent) > topN {
		recent = recent[:topN]
	}
	stats.RecentActivity = append(stats.RecentActivity, recent...)

	return stats, nil
}

// statsDonations loads the non-deleted donations in scope, most recently
// received first.
func statsDonations(ctx context.Context, db *sql.DB, filter StatsFilter) ([]model.Donation, error) {
	query := `SELECT id, category_id, donor_name, donor_contact, quantity, unit, estimated_value, description,
	                 status, received_date, recorded_by, created_at, updated_at, deleted_at
	          FROM donations WHERE deleted_at IS NULL`
	var args []any

	if filter.CategoryID > 0 {
		query += ` AND category_id = ?`
		args = append(args, filter.CategoryID)
	}
	if filter.From != nil {
		query += ` AND received_date >= ?`
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += ` AND received_date <= ?`
		args = append(args, *filter.To)
	}

	query += ` ORDER BY received_date DESC, created_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading donations for stats: %w", err)
	}
	defer rows.Close()

	return scanDonations(rows)
}
