package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/donacije/internal/store"
)

// Default number of donors in the top-donor ranking.
const defaultTopDonors = 5

// StatsHandler serves the aggregate dashboard projections.
type StatsHandler struct {
	DB *sql.DB
}

// Get handles GET /api/stats/summary. The from/to/category_id parameters scope every
// projection in the response to the same subset of donations.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter store.StatsFilter
	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		filter.CategoryID = id
	}

	from, to, err := dateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.From = from
	filter.To = to

	topN := defaultTopDonors
	if v := q.Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, http.StatusBadRequest, "invalid top")
			return
		}
		topN = n
	}

	stats, err := store.ComputeStats(r.Context(), h.DB, filter, topN)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, stats)
}
