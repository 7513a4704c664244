package models

import "time"

type UserRole string

const (
	RoleAdmin   UserRole = "Admin"
	RoleGarson  UserRole = "Garson"
	RoleKasiyer UserRole = "Kasiyer"
)

// AllowedRoles kullanıcıya atanabilecek sabit rol listesi
var AllowedRoles = []UserRole{RoleAdmin, RoleGarson, RoleKasiyer}

func (r UserRole) Valid() bool {
	for _, a := range AllowedRoles {
		if a == r {
			return true
		}
	}
	return false
}

type User struct {
	ID            uint     `gorm:"primaryKey"`
	Username      string   `gorm:"size:50;uniqueIndex;not null"`
	FullName      string   `gorm:"size:100;not null"`
	Email         string   `gorm:"size:100"`
	Phone         string   `gorm:"size:20"`
	PasswordHash  string   `gorm:"size:255;not null"`
	Role          UserRole `gorm:"size:20;not null"`
	SecurityStamp string   `gorm:"size:64;not null"` // her giriş / rol / şifre değişiminde yenilenir
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
