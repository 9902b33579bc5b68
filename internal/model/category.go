package model

import "time"

// Category classifies a donation type and carries its display metadata.
type Category struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	DefaultUnit string     `json:"default_unit"`
	Icon        string     `json:"icon,omitempty"`
	Color       string     `json:"color,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
