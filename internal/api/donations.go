package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/donacije/internal/model"
	"github.com/erazemk/donacije/internal/store"
)

// DonationsHandler handles donation lifecycle endpoints.
type DonationsHandler struct {
	DB *sql.DB
}

type donationRequest struct {
	CategoryID     int64   `json:"category_id"`
	DonorName      string  `json:"donor_name"`
	DonorContact   string  `json:"donor_contact"`
	Quantity       string  `json:"quantity"`
	Unit           string  `json:"unit"`
	EstimatedValue *string `json:"estimated_value"`
	Description    string  `json:"description"`
	Status         string  `json:"status"`
	ReceivedDate   string  `json:"received_date"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// donationParams converts the wire request into store parameters, parsing the
// decimal and date strings. Malformed numbers are rejected here so the store
// only ever sees valid decimals.
func donationParams(req donationRequest, recordedBy *int64) (store.DonationParams, error) {
	p := store.DonationParams{
		CategoryID:   req.CategoryID,
		DonorName:    req.DonorName,
		DonorContact: req.DonorContact,
		Unit:         req.Unit,
		Description:  req.Description,
		Status:       req.Status,
		RecordedBy:   recordedBy,
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return p, &store.ValidationError{Field: "quantity", Reason: "must be a decimal number"}
	}
	p.Quantity = quantity

	if req.EstimatedValue != nil && *req.EstimatedValue != "" {
		value, err := decimal.NewFromString(*req.EstimatedValue)
		if err != nil {
			return p, &store.ValidationError{Field: "estimated_value", Reason: "must be a decimal number"}
		}
		p.EstimatedValue = &value
	}

	if req.ReceivedDate != "" {
		date, err := time.Parse(time.RFC3339, req.ReceivedDate)
		if err != nil {
			if date, err = time.Parse("2006-01-02", req.ReceivedDate); err != nil {
				return p, &store.ValidationError{Field: "received_date", Reason: "must be an RFC 3339 timestamp or YYYY-MM-DD date"}
			}
		}
		p.ReceivedDate = date
	}

	return p, nil
}

// List handles GET /api/donations with filtering and pagination. Search
// matches donor name or description; the remaining filters are conjunctive.
func (h *DonationsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.DonationFilter{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Donor:  q.Get("donor"),
	}

	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		filter.CategoryID = id
	}
	if filter.Status != "" && !model.ValidDonationStatus(filter.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	from, to, err := dateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.From = from
	filter.To = to

	if v := q.Get("page"); v != "" {
		filter.Page, _ = strconv.Atoi(v)
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}

	page, err := store.ListDonations(r.Context(), h.DB, filter)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, page)
}

// Create handles POST /api/donations.
func (h *DonationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var recordedBy *int64
	if claims := GetClaims(r.Context()); claims != nil {
		recordedBy = &claims.UserID
	}

	params, err := donationParams(req, recordedBy)
	if err != nil {
		storeError(w, err)
		return
	}

	donation, err := store.CreateDonation(r.Context(), h.DB, params)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, donation)
}

// Get handles GET /api/donations/{id}. With ?expand=category the resolved
// category is embedded in the response.
func (h *DonationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid donation id")
		return
	}

	donation, err := store.GetDonation(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}

	if r.URL.Query().Get("expand") == "category" {
		category, err := store.GetCategory(r.Context(), h.DB, donation.CategoryID)
		if err != nil {
			storeError(w, err)
			return
		}
		donation.Category = category
	}

	jsonResponse(w, http.StatusOK, donation)
}

// Update handles PUT /api/donations/{id}. Status changes go through the
// dedicated status endpoint, never through updates.
func (h *DonationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid donation id")
		return
	}

	var req donationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params, err := donationParams(req, nil)
	if err != nil {
		storeError(w, err)
		return
	}

	donation, err := store.UpdateDonation(r.Context(), h.DB, id, params)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, donation)
}

// Delete handles DELETE /api/donations/{id}. Soft delete; the record and its
// distribution history stay queryable by ID for auditing.
func (h *DonationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid donation id")
		return
	}

	if err := store.DeleteDonation(r.Context(), h.DB, id); err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "donation deleted"})
}

// SetStatus handles PUT /api/donations/{id}/status, validated against the
// lifecycle transition rules.
func (h *DonationsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid donation id")
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	donation, err := store.SetDonationStatus(r.Context(), h.DB, id, req.Status)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, donation)
}

// ListDistributions handles GET /api/donations/{id}/distributions.
func (h *DonationsHandler) ListDistributions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid donation id")
		return
	}

	// Resolve the donation first so a bogus ID is a 404, not an empty list.
	if _, err := store.GetDonation(r.Context(), h.DB, id); err != nil {
		storeError(w, err)
		return
	}

	distributions, err := store.ListDistributions(r.Context(), h.DB, id, "")
	if err != nil {
		storeError(w, err)
		return
	}
	if distributions == nil {
		distributions = []model.Distribution{}
	}

	jsonResponse(w, http.StatusOK, distributions)
}

// dateRange parses optional from/to query parameters. Either bound accepts an
// RFC 3339 timestamp or a plain date; a plain "to" date covers its whole day.
func dateRange(fromStr, toStr string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if fromStr != "" {
		t, err := parseDateParam(fromStr, false)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if toStr != "" {
		t, err := parseDateParam(toStr, true)
		if err != nil {
			return nil, nil, err
		}
		to = &t
	}
	return from, to, nil
}

func parseDateParam(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, &store.ValidationError{Field: "date", Reason: "must be an RFC 3339 timestamp or YYYY-MM-DD date"}
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
