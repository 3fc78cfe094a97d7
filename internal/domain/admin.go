package domain

import "time"

// AdminRole scopes what an operator account may do.
type AdminRole string

const (
	AdminRoleAdmin  AdminRole = "ADMIN"
	AdminRoleViewer AdminRole = "VIEWER"
)

// Admin is an operator account for event and code management.
type Admin struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AdminRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
