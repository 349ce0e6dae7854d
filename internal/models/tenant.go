package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Membership roles inside a tenant
const (
	MembershipRoleAdmin  = "tenant_admin"
	MembershipRoleMember = "member"
)

// Plan tiers
const (
	PlanStart     = "start"
	PlanEssencial = "essencial"
	PlanPro       = "pro"
)

// TenantLimits is the per-plan limit set stored as JSONB on the tenant
type TenantLimits struct {
	QuickQueriesPerMonth int `json:"quickQueriesPerMonth"`
	SimultaneousStudies  int `json:"simultaneousStudies"`
	MaxAttachmentSizeMB  int `json:"maxAttachmentSizeMB"`
}

func (l TenantLimits) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *TenantLimits) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = TenantLimits{}
		return nil
	default:
		return errors.New("unsupported type for TenantLimits")
	}
}

// Tenant represents an isolated franchise organization account
// DB: tenants
type Tenant struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"column:name;size:255;not null" json:"name"`
	Slug         string       `gorm:"column:slug;size:255;not null;uniqueIndex:tenants_slug_key" json:"slug"`
	LogoURL      *string      `gorm:"column:logo_url;type:text" json:"logo_url,omitempty"`
	ColorPrimary string       `gorm:"column:color_primary;size:7;default:#0F172A" json:"color_primary"`
	ColorDark    string       `gorm:"column:color_dark;size:7;default:#020617" json:"color_dark"`
	Plan         string       `gorm:"column:plan;size:20;not null;default:start" json:"plan"`
	Limits       TenantLimits `gorm:"column:limits_json;type:jsonb;not null" json:"limits"`
	CreatedAt    time.Time    `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"column:updated_at;not null" json:"updated_at"`

	// Relations
	Memberships []Membership `gorm:"foreignKey:TenantID" json:"memberships,omitempty"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// Membership links a user to a tenant with a role
// DB: memberships
type Membership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:memberships_user_tenant_key,priority:1" json:"user_id"`
	TenantID  uint      `gorm:"column:tenant_id;not null;uniqueIndex:memberships_user_tenant_key,priority:2;index:idx_memberships_tenant" json:"tenant_id"`
	Role      string    `gorm:"column:role;size:20;not null;default:member" json:"role"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`

	// Relations
	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

func (Membership) TableName() string {
	return "memberships"
}

// PlanUsage tracks monthly consumption per tenant. One row per tenant per
// calendar-month period, created lazily on first access.
// DB: plan_usage
type PlanUsage struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	TenantID         uint      `gorm:"column:tenant_id;not null;uniqueIndex:plan_usage_tenant_period_key,priority:1" json:"tenant_id"`
	PeriodStart      time.Time `gorm:"column:period_start;not null;uniqueIndex:plan_usage_tenant_period_key,priority:2" json:"period_start"`
	PeriodEnd        time.Time `gorm:"column:period_end;not null" json:"period_end"`
	QuickQueriesUsed int       `gorm:"column:quick_queries_used;not null;default:0" json:"quick_queries_used"`
	StudiesOpened    int       `gorm:"column:studies_opened;not null;default:0" json:"studies_opened"`
	CreatedAt        time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (PlanUsage) TableName() string {
	return "plan_usage"
}
