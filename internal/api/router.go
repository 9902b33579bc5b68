package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/donacije/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	categoriesHandler := &CategoriesHandler{DB: db}
	donationsHandler := &DonationsHandler{DB: db}
	distributionsHandler := &DistributionsHandler{DB: db}
	statsHandler := &StatsHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Categories: read (all roles), write (manager+).
	mux.Handle("GET /api/categories", authMW(http.HandlerFunc(categoriesHandler.List)))
	mux.Handle("POST /api/categories", authMW(requireManager(http.HandlerFunc(categoriesHandler.Create))))
	mux.Handle("GET /api/categories/{id}", authMW(http.HandlerFunc(categoriesHandler.Get)))
	mux.Handle("PUT /api/categories/{id}", authMW(requireManager(http.HandlerFunc(categoriesHandler.Update))))
	mux.Handle("DELETE /api/categories/{id}", authMW(requireManager(http.HandlerFunc(categoriesHandler.Deactivate))))

	// Donations: read and record (all roles), destructive ops (manager+).
	mux.Handle("GET /api/donations", authMW(http.HandlerFunc(donationsHandler.List)))
	mux.Handle("POST /api/donations", authMW(http.HandlerFunc(donationsHandler.Create)))
	mux.Handle("GET /api/donations/{id}", authMW(http.HandlerFunc(donationsHandler.Get)))
	mux.Handle("PUT /api/donations/{id}", authMW(http.HandlerFunc(donationsHandler.Update)))
	mux.Handle("DELETE /api/donations/{id}", authMW(requireManager(http.HandlerFunc(donationsHandler.Delete))))
	mux.Handle("PUT /api/donations/{id}/status", authMW(http.HandlerFunc(donationsHandler.SetStatus)))
	mux.Handle("GET /api/donations/{id}/distributions", authMW(http.HandlerFunc(donationsHandler.ListDistributions)))

	// Distributions: allocate and read (all roles), delete (manager+).
	mux.Handle("GET /api/distributions", authMW(http.HandlerFunc(distributionsHandler.List)))
	mux.Handle("POST /api/distributions", authMW(http.HandlerFunc(distributionsHandler.Create)))
	mux.Handle("GET /api/distributions/{id}", authMW(http.HandlerFunc(distributionsHandler.Get)))
	mux.Handle("DELETE /api/distributions/{id}", authMW(requireManager(http.HandlerFunc(distributionsHandler.Delete))))

	// Stats (all roles).
	mux.Handle("GET /api/stats/summary", authMW(http.HandlerFunc(statsHandler.Get)))

	return mux
}
