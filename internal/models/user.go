package models

import (
	"time"
)

// Global roles. admin_bp and analyst_bp belong to the platform operator and
// are not tied to a tenant membership.
const (
	RoleAdminBP   = "admin_bp"
	RoleAnalystBP = "analyst_bp"
	RoleMember    = "member"
)

// User represents the users table
// DB: users
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	OpenID       string     `gorm:"column:open_id;size:64;not null;uniqueIndex:users_open_id_key" json:"open_id"`
	Name         string     `gorm:"column:name;size:255;not null" json:"name"`
	Email        string     `gorm:"column:email;size:320;not null;uniqueIndex:users_email_key" json:"email"`
	Password     string     `gorm:"column:password;size:255;not null" json:"-"`
	LoginMethod  string     `gorm:"column:login_method;size:64;not null;default:password" json:"login_method"`
	Role         string     `gorm:"column:role;size:20;not null;default:member" json:"role"`
	LastSignedIn *time.Time `gorm:"column:last_signed_in" json:"last_signed_in,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`

	// Relations
	Memberships []Membership `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
}

func (User) TableName() string {
	return "users"
}
