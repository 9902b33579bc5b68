package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erazemk/donacije/internal/model"
	"github.com/erazemk/donacije/internal/store"
)

// DistributionsHandler handles distribution allocation endpoints.
type DistributionsHandler struct {
	DB *sql.DB
}

type createDistributionRequest struct {
	DonationID int64  `json:"donation_id"`
	FamilyID   string `json:"family_id"`
	Quantity   string `json:"quantity"`
	Notes      string `json:"notes"`
}

// List handles GET /api/distributions, optionally filtered by donation or family.
func (h *DistributionsHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID := r.URL.Query().Get("family_id")
	if familyID != "" {
		if _, err := uuid.Parse(familyID); err != nil {
			jsonError(w, http.StatusBadRequest, "family_id must be a UUID")
			return
		}
	}

	var donationID int64
	if v := r.URL.Query().Get("donation_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid donation_id")
			return
		}
		donationID = id
	}

	distributions, err := store.ListDistributions(r.Context(), h.DB, donationID, familyID)
	if err != nil {
		storeError(w, err)
		return
	}
	if distributions == nil {
		distributions = []model.Distribution{}
	}

	jsonResponse(w, http.StatusOK, distributions)
}

// Create handles POST /api/distributions. The allocation is atomic: the
// quantity check and the ledger insert commit together or not at all.
func (h *DistributionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDistributionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := uuid.Parse(req.FamilyID); err != nil {
		jsonError(w, http.StatusBadRequest, "family_id must be a UUID")
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "quantity must be a decimal number")
		return
	}

	var distributedBy *int64
	if claims := GetClaims(r.Context()); claims != nil {
		distributedBy = &claims.UserID
	}

	distribution, err := store.CreateDistribution(r.Context(), h.DB, req.DonationID, req.FamilyID, quantity, req.Notes, distributedBy)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, distribution)
}

// Get handles GET /api/distributions/{id}.
func (h *DistributionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid distribution id")
		return
	}

	distribution, err := store.GetDistribution(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, distribution)
}

// Delete handles DELETE /api/distributions/{id}, returning the allocated
// quantity to the donation's available pool.
func (h *DistributionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid distribution id")
		return
	}

	if err := store.DeleteDistribution(r.Context(), h.DB, id); err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "distribution deleted"})
}
