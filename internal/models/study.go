package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Study statuses
const (
	StudyStatusOpen       = "aberto"
	StudyStatusInAnalysis = "em_analise"
	StudyStatusReturned   = "devolvido"
	StudyStatusDone       = "concluido"
)

// Study priorities
const (
	StudyPriorityLow    = "baixa"
	StudyPriorityMedium = "media"
	StudyPriorityHigh   = "alta"
)

// StudyReportItem is one section of a delivered market study
type StudyReportItem struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// StudyReport is the curated final report attached to a concluded study
type StudyReport struct {
	Items []StudyReportItem `json:"items"`
}

func (r StudyReport) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *StudyReport) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	case nil:
		*r = StudyReport{}
		return nil
	default:
		return errors.New("unsupported type for StudyReport")
	}
}

// Study represents a manually-curated market study requested by a tenant
// DB: studies
type Study struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	TenantID         uint         `gorm:"column:tenant_id;not null;index:idx_studies_tenant" json:"tenant_id"`
	Title            string       `gorm:"column:title;size:255;not null" json:"title"`
	Segment          string       `gorm:"column:segment;size:255;not null" json:"segment"`
	Address          string       `gorm:"column:address;type:text;not null" json:"address"`
	Lat              float64      `gorm:"column:lat;type:double precision;not null" json:"lat"`
	Lng              float64      `gorm:"column:lng;type:double precision;not null" json:"lng"`
	RadiusM          int          `gorm:"column:radius_m;not null" json:"radius_m"`
	Objectives       *string      `gorm:"column:objectives;type:text" json:"objectives,omitempty"`
	Status           string       `gorm:"column:status;size:20;not null;default:aberto;index:idx_studies_status" json:"status"`
	Priority         string       `gorm:"column:priority;size:20;not null;default:media" json:"priority"`
	DueAt            *time.Time   `gorm:"column:due_at" json:"due_at,omitempty"`
	CreatedBy        uint         `gorm:"column:created_by;not null" json:"created_by"`
	AssignedBPUserID *uint        `gorm:"column:assigned_bp_user_id" json:"assigned_bp_user_id,omitempty"`
	FinalReport      *StudyReport `gorm:"column:final_report_json;type:jsonb" json:"final_report,omitempty"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null;index:idx_studies_created,sort:desc" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"column:updated_at;not null" json:"updated_at"`

	// Relations
	Tenant  *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Creator *User   `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
}

func (Study) TableName() string {
	return "studies"
}
