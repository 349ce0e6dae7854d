package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lucasgodgig/busca-ponto-saas/internal/config"
	"github.com/lucasgodgig/busca-ponto-saas/internal/database"
	"github.com/lucasgodgig/busca-ponto-saas/internal/logger"
	"github.com/lucasgodgig/busca-ponto-saas/internal/models"
)

// StudyService manages manually-curated market studies.
type StudyService struct {
	db     *database.DB
	cfg    *config.Config
	tenant *TenantService
}

func NewStudyService(db *database.DB, cfg *config.Config, tenant *TenantService) *StudyService {
	return &StudyService{db: db, cfg: cfg, tenant: tenant}
}

type CreateStudyInput struct {
	Title      string     `json:"title"`
	Segment    string     `json:"segment"`
	Address    string     `json:"address"`
	Lat        float64    `json:"lat"`
	Lng        float64    `json:"lng"`
	RadiusM    int        `json:"radius_m"`
	Objectives *string    `json:"objectives"`
	Priority   string     `json:"priority"`
	DueAt      *time.Time `json:"due_at"`
}

// activeStudyStatuses are the statuses counted against the simultaneous
// studies limit.
var activeStudyStatuses = []string{models.StudyStatusOpen, models.StudyStatusInAnalysis}

// Create opens a study request, enforcing the tenant's simultaneous-studies
// limit.
func (s *StudyService) Create(actorID, tenantID uint, input CreateStudyInput) (*models.Study, error) {
	log := logger.GetLogger("services.study")

	if _, err := s.tenant.ValidateAccess(actorID, tenantID); err != nil {
		return nil, err
	}
	tenant, err := s.tenant.tenantByID(tenantID)
	if err != nil {
		return nil, err
	}

	var active int64
	err = s.db.Model(&models.Study{}).
		Where("tenant_id = ? AND status IN ?", tenantID, activeStudyStatuses).
		Count(&active).Error
	if err != nil {
		return nil, err
	}
	if limit := tenant.Limits.SimultaneousStudies; limit > 0 && active >= int64(limit) {
		return nil, &QuotaExceededError{Resource: "simultaneous studies", Limit: limit}
	}

	priority := input.Priority
	switch priority {
	case models.StudyPriorityLow, models.StudyPriorityMedium, models.StudyPriorityHigh:
	default:
		priority = models.StudyPriorityMedium
	}

	study := models.Study{
		TenantID:   tenantID,
		Title:      input.Title,
		Segment:    input.Segment,
		Address:    input.Address,
		Lat:        input.Lat,
		Lng:        input.Lng,
		RadiusM:    input.RadiusM,
		Objectives: input.Objectives,
		Status:     models.StudyStatusOpen,
		Priority:   priority,
		DueAt:      input.DueAt,
		CreatedBy:  actorID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&study).Error; err != nil {
			return err
		}

		start, end := currentPeriod(time.Now())
		if _, err := ensurePlanUsage(tx, tenantID, start, end); err != nil {
			return err
		}
		err := tx.Model(&models.PlanUsage{}).
			Where("tenant_id = ? AND period_start = ?", tenantID, start).
			UpdateColumn("studies_opened", gorm.Expr("studies_opened + 1")).Error
		if err != nil {
			return err
		}

		return s.tenant.auditTx(tx, &tenantID, &actorID, "study_created", "study", &study.ID, models.JSONMap{
			"title":   study.Title,
			"segment": study.Segment,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Study created: id=%d tenant=%d", study.ID, study.TenantID)
	return &study, nil
}

// List returns a tenant's studies, optionally filtered by status.
func (s *StudyService) List(actorID, tenantID uint, status string) ([]models.Study, error) {
	if _, err := s.tenant.ValidateAccess(actorID, tenantID); err != nil {
		return nil, err
	}

	query := s.db.Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var studies []models.Study
	if err := query.Order("created_at DESC").Find(&studies).Error; err != nil {
		return nil, err
	}
	return studies, nil
}

// Get loads one study, scoped to the tenant.
func (s *StudyService) Get(actorID, tenantID, studyID uint) (*models.Study, error) {
	if _, err := s.tenant.ValidateAccess(actorID, tenantID); err != nil {
		return nil, err
	}
	return s.studyByID(tenantID, studyID)
}

type UpdateStudyInput struct {
	Title      *string    `json:"title"`
	Objectives *string    `json:"objectives"`
	Priority   *string    `json:"priority"`
	DueAt      *time.Time `json:"due_at"`
}

// Update edits a study's request fields. Only allowed while the study is
// still open.
func (s *StudyService) Update(actorID, tenantID, studyID uint, input UpdateStudyInput) (*models.Study, error) {
	if _, err := s.tenant.ValidateAccess(actorID, tenantID); err != nil {
		return nil, err
	}
	study, err := s.studyByID(tenantID, studyID)
	if err != nil {
		return nil, err
	}
	if study.Status != models.StudyStatusOpen {
		return nil, ErrForbidden
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Objectives != nil {
		updates["objectives"] = *input.Objectives
	}
	if input.Priority != nil {
		updates["priority"] = *input.Priority
	}
	if input.DueAt != nil {
		updates["due_at"] = *input.DueAt
	}
	if len(updates) == 0 {
		return study, nil
	}

	if err := s.db.Model(study).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.tenant.audit(&tenantID, &actorID, "study_updated", "study", &studyID, nil)
	return s.studyByID(tenantID, studyID)
}

type SetStudyStatusInput struct {
	Status           string              `json:"status"`
	AssignedBPUserID *uint               `json:"assigned_bp_user_id"`
	FinalReport      *models.StudyReport `json:"final_report"`
}

// SetStatus moves a study through its workflow. Platform staff only; a final
// report is required to conclude.
func (s *StudyService) SetStatus(actorID, tenantID, studyID uint, input SetStudyStatusInput) (*models.Study, error) {
	role, err := s.tenant.ValidateAccess(actorID, tenantID)
	if err != nil {
		return nil, err
	}
	if !isPlatformStaff(role) {
		return nil, ErrForbidden
	}

	switch input.Status {
	case models.StudyStatusOpen, models.StudyStatusInAnalysis,
		models.StudyStatusReturned, models.StudyStatusDone:
	default:
		return nil, errors.New("invalid study status")
	}
	if input.Status == models.StudyStatusDone && input.FinalReport == nil {
		return nil, errors.New("a final report is required to conclude a study")
	}

	study, err := s.studyByID(tenantID, studyID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"status": input.Status}
	if input.AssignedBPUserID != nil {
		updates["assigned_bp_user_id"] = *input.AssignedBPUserID
	}
	if input.FinalReport != nil {
		updates["final_report_json"] = *input.FinalReport
	}
	if err := s.db.Model(study).Updates(updates).Error; err != nil {
		return nil, err
	}

	s.tenant.audit(&tenantID, &actorID, "study_status_changed", "study", &studyID, models.JSONMap{
		"from": study.Status,
		"to":   input.Status,
	})
	return s.studyByID(tenantID, studyID)
}

func (s *StudyService) studyByID(tenantID, studyID uint) (*models.Study, error) {
	var study models.Study
	err := s.db.Where("tenant_id = ?", tenantID).First(&study, studyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudyNotFound
		}
		return nil, err
	}
	return &study, nil
}
