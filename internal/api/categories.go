package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/donacije/internal/model"
	"github.com/erazemk/donacije/internal/store"
)

// CategoriesHandler handles category CRUD endpoints.
type CategoriesHandler struct {
	DB *sql.DB
}

type categoryRequest struct {
	Name        string `json:"name"`
	DefaultUnit string `json:"default_unit"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	IsActive    *bool  `json:"is_active"`
}

// List handles GET /api/categories. By default inactive categories are
// included so existing donations keep resolving; ?active=true narrows the
// listing to categories usable for new donations.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	categories, err := store.ListCategories(r.Context(), h.DB, activeOnly)
	if err != nil {
		storeError(w, err)
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	jsonResponse(w, http.StatusOK, categories)
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := store.CreateCategory(r.Context(), h.DB, req.Name, req.DefaultUnit, req.Icon, req.Color)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, category)
}

// Get handles GET /api/categories/{id}.
func (h *CategoriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, category)
}

// Update handles PUT /api/categories/{id}.
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Fields omitted from the request keep their stored values.
	current, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if req.Name == "" {
		req.Name = current.Name
	}
	if req.DefaultUnit == "" {
		req.DefaultUnit = current.DefaultUnit
	}
	if req.Icon == "" {
		req.Icon = current.Icon
	}
	if req.Color == "" {
		req.Color = current.Color
	}
	isActive := current.IsActive
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	category, err := store.UpdateCategory(r.Context(), h.DB, id, req.Name, req.DefaultUnit, req.Icon, req.Color, isActive)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, category)
}

// Deactivate handles DELETE /api/categories/{id}. The category stops
// accepting new donations but stays resolvable for existing ones.
func (h *CategoriesHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := store.DeactivateCategory(r.Context(), h.DB, id); err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "category deactivated"})
}
