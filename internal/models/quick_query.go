package models

import (
	"time"
)

// QuickQuery is the persisted record of one point+radius demographic lookup,
// counted against the tenant's monthly quota. Immutable after creation.
// DB: quick_queries
type QuickQuery struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TenantID      uint      `gorm:"column:tenant_id;not null;index:idx_quick_queries_tenant" json:"tenant_id"`
	UserID        uint      `gorm:"column:user_id;not null" json:"user_id"`
	Lat           float64   `gorm:"column:lat;type:double precision;not null" json:"lat"`
	Lng           float64   `gorm:"column:lng;type:double precision;not null" json:"lng"`
	RadiusM       int       `gorm:"column:radius_m;not null" json:"radius_m"`
	Segment       *string   `gorm:"column:segment;size:255" json:"segment,omitempty"`
	LayersEnabled JSONMap   `gorm:"column:layers_enabled_json;type:jsonb;not null" json:"layers_enabled"`
	ResultSummary JSONMap   `gorm:"column:result_summary_json;type:jsonb" json:"result_summary"`
	CostUnits     int       `gorm:"column:cost_units;not null;default:1" json:"cost_units"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;index:idx_quick_queries_created,sort:desc" json:"created_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (QuickQuery) TableName() string {
	return "quick_queries"
}

// AuditLog records critical actions for traceability
// DB: audit_logs
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TenantID   *uint     `gorm:"column:tenant_id;index:idx_audit_logs_tenant" json:"tenant_id,omitempty"`
	ActorID    *uint     `gorm:"column:actor_id" json:"actor_id,omitempty"`
	Action     string    `gorm:"column:action;size:100;not null" json:"action"`
	TargetType *string   `gorm:"column:target_type;size:100" json:"target_type,omitempty"`
	TargetID   *uint     `gorm:"column:target_id" json:"target_id,omitempty"`
	Meta       JSONMap   `gorm:"column:meta_json;type:jsonb" json:"meta,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
