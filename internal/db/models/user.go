package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleStaff UserRole = "STAFF"
	RoleAdmin UserRole = "ADMIN"
)

type User struct {
	gorm.Model
	Username     string   `gorm:"unique;not null"`
	Email        string   `gorm:"unique;not null"`
	PasswordHash string   `gorm:"not null"` // Bcrypt hash of password
	Role         UserRole `gorm:"not null;default:'STAFF'"`
	FullName     string
	Position     string
	Department   string
	ActiveStatus bool `gorm:"not null;default:true"`
	LastLogin    time.Time
	Documents    []Document  `gorm:"foreignKey:CreatedBy"`
	Signatories  []Signatory `gorm:"foreignKey:UserID"`
}
