package services

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lucasgodgig/busca-ponto-saas/internal/config"
	"github.com/lucasgodgig/busca-ponto-saas/internal/database"
	"github.com/lucasgodgig/busca-ponto-saas/internal/logger"
	"github.com/lucasgodgig/busca-ponto-saas/internal/models"
)

type TenantService struct {
	db  *database.DB
	cfg *config.Config
}

func NewTenantService(db *database.DB, cfg *config.Config) *TenantService {
	return &TenantService{db: db, cfg: cfg}
}

// currentPeriod returns the UTC calendar-month window containing now.
func currentPeriod(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// isPlatformStaff reports whether the global role belongs to the platform
// operator rather than a tenant.
func isPlatformStaff(role string) bool {
	return role == models.RoleAdminBP || role == models.RoleAnalystBP
}

type CreateTenantInput struct {
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	Plan         string  `json:"plan"`
	LogoURL      *string `json:"logo_url"`
	ColorPrimary string  `json:"color_primary"`
	ColorDark    string  `json:"color_dark"`
	AdminUserID  *uint   `json:"admin_user_id"`
}

// Create onboards a tenant with the start-plan default limits, optionally
// attaching its first tenant_admin member. Platform staff only.
func (s *TenantService) Create(actorID uint, input CreateTenantInput) (*models.Tenant, error) {
	log := logger.GetLogger("services.tenant")

	actor, err := s.userByID(actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdminBP {
		return nil, ErrForbidden
	}

	var existing models.Tenant
	err = s.db.Where("slug = ?", input.Slug).First(&existing).Error
	if err == nil {
		return nil, ErrSlugTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	plan := input.Plan
	if plan == "" {
		plan = models.PlanStart
	}

	tenant := models.Tenant{
		Name:    input.Name,
		Slug:    input.Slug,
		Plan:    plan,
		LogoURL: input.LogoURL,
		Limits: models.TenantLimits{
			QuickQueriesPerMonth: s.cfg.DefaultQuickQueriesPerMonth,
			SimultaneousStudies:  s.cfg.DefaultSimultaneousStudies,
			MaxAttachmentSizeMB:  s.cfg.DefaultMaxAttachmentSizeMB,
		},
	}
	if input.ColorPrimary != "" {
		tenant.ColorPrimary = input.ColorPrimary
	}
	if input.ColorDark != "" {
		tenant.ColorDark = input.ColorDark
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}
		if input.AdminUserID != nil {
			membership := models.Membership{
				UserID:   *input.AdminUserID,
				TenantID: tenant.ID,
				Role:     models.MembershipRoleAdmin,
			}
			if err := tx.Create(&membership).Error; err != nil {
				return err
			}
		}
		return s.auditTx(tx, &tenant.ID, &actorID, "tenant_created", "tenant", &tenant.ID, models.JSONMap{
			"slug": tenant.Slug,
			"plan": tenant.Plan,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Tenant onboarded: id=%d slug=%s plan=%s", tenant.ID, tenant.Slug, tenant.Plan)
	return &tenant, nil
}

// List returns every tenant. Platform staff only.
func (s *TenantService) List(actorID uint) ([]models.Tenant, error) {
	actor, err := s.userByID(actorID)
	if err != nil {
		return nil, err
	}
	if !isPlatformStaff(actor.Role) {
		return nil, ErrForbidden
	}

	var tenants []models.Tenant
	if err := s.db.Order("created_at DESC").Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

// Get loads one tenant after validating the caller's access to it.
func (s *TenantService) Get(actorID, tenantID uint) (*models.Tenant, error) {
	if _, err := s.ValidateAccess(actorID, tenantID); err != nil {
		return nil, err
	}
	return s.tenantByID(tenantID)
}

type UpdateTenantInput struct {
	Name         *string `json:"name"`
	LogoURL      *string `json:"logo_url"`
	ColorPrimary *string `json:"color_primary"`
	ColorDark    *string `json:"color_dark"`
}

// Update changes a tenant's branding fields. Tenant admins and platform staff.
func (s *TenantService) Update(actorID, tenantID uint, input UpdateTenantInput) (*models.Tenant, error) {
	role, err := s.ValidateAccess(actorID, tenantID)
	if err != nil {
		return nil, err
	}
	if role != models.MembershipRoleAdmin && !isPlatformStaff(role) {
		return nil, ErrForbidden
	}

	tenant, err := s.tenantByID(tenantID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.LogoURL != nil {
		updates["logo_url"] = *input.LogoURL
	}
	if input.ColorPrimary != nil {
		updates["color_primary"] = *input.ColorPrimary
	}
	if input.ColorDark != nil {
		updates["color_dark"] = *input.ColorDark
	}
	if len(updates) == 0 {
		return tenant, nil
	}

	if err := s.db.Model(tenant).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.audit(&tenantID, &actorID, "tenant_updated", "tenant", &tenantID, nil)
	return tenant, nil
}

// UpdateLimits replaces a tenant's plan limits. Platform admin only.
func (s *TenantService) UpdateLimits(actorID, tenantID uint, plan string, limits models.TenantLimits) (*models.Tenant, error) {
	actor, err := s.userByID(actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdminBP {
		return nil, ErrForbidden
	}

	tenant, err := s.tenantByID(tenantID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"limits_json": limits}
	if plan != "" {
		updates["plan"] = plan
	}
	if err := s.db.Model(tenant).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.audit(&tenantID, &actorID, "tenant_limits_updated", "tenant", &tenantID, models.JSONMap{
		"plan":                    plan,
		"quick_queries_per_month": limits.QuickQueriesPerMonth,
		"simultaneous_studies":    limits.SimultaneousStudies,
	})
	return s.tenantByID(tenantID)
}

// AddMember attaches a user to a tenant. Tenant admins and platform admin.
func (s *TenantService) AddMember(actorID, tenantID, userID uint, role string) (*models.Membership, error) {
	actorRole, err := s.ValidateAccess(actorID, tenantID)
	if err != nil {
		return nil, err
	}
	if actorRole != models.MembershipRoleAdmin && actorRole != models.RoleAdminBP {
		return nil, ErrForbidden
	}

	if _, err := s.userByID(userID); err != nil {
		return nil, err
	}
	if role != models.MembershipRoleAdmin {
		role = models.MembershipRoleMember
	}

	membership := models.Membership{UserID: userID, TenantID: tenantID, Role: role}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(&membership).Error
	if err != nil {
		return nil, err
	}

	s.audit(&tenantID, &actorID, "member_added", "membership", &membership.ID, models.JSONMap{
		"user_id": userID,
		"role":    role,
	})
	return &membership, nil
}

// Members lists a tenant's memberships with user profiles.
func (s *TenantService) Members(actorID, tenantID uint) ([]models.Membership, error) {
	if _, err := s.ValidateAccess(actorID, tenantID); err != nil {
		return nil, err
	}

	var memberships []models.Membership
	err := s.db.Preload("User").Where("tenant_id = ?", tenantID).
		Order("created_at ASC").Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

type TenantUsage struct {
	PeriodStart      time.Time           `json:"period_start"`
	PeriodEnd        time.Time           `json:"period_end"`
	QuickQueriesUsed int                 `json:"quick_queries_used"`
	StudiesOpened    int                 `json:"studies_opened"`
	Limits           models.TenantLimits `json:"limits"`
}

// Usage reports the tenant's consumption for the current calendar month.
func (s *TenantService) Usage(actorID, tenantID uint) (*TenantUsage, error) {
	if _, err := s.ValidateAccess(actorID, tenantID); err != nil {
		return nil, err
	}

	tenant, err := s.tenantByID(tenantID)
	if err != nil {
		return nil, err
	}

	start, end := currentPeriod(time.Now())
	usage, err := ensurePlanUsage(s.db.DB, tenantID, start, end)
	if err != nil {
		return nil, err
	}

	return &TenantUsage{
		PeriodStart:      usage.PeriodStart,
		PeriodEnd:        usage.PeriodEnd,
		QuickQueriesUsed: usage.QuickQueriesUsed,
		StudiesOpened:    usage.StudiesOpened,
		Limits:           tenant.Limits,
	}, nil
}

// ValidateAccess resolves the caller's effective role on a tenant. Platform
// staff pass without a membership; everyone else needs one. The returned role
// is the membership role, or the global role for staff.
func (s *TenantService) ValidateAccess(userID, tenantID uint) (string, error) {
	user, err := s.userByID(userID)
	if err != nil {
		return "", err
	}

	if _, err := s.tenantByID(tenantID); err != nil {
		return "", err
	}

	if isPlatformStaff(user.Role) {
		return user.Role, nil
	}

	var membership models.Membership
	err = s.db.Where("user_id = ? AND tenant_id = ?", userID, tenantID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrForbidden
		}
		return "", err
	}
	return membership.Role, nil
}

func (s *TenantService) userByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *TenantService) tenantByID(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// ensurePlanUsage finds or creates the tenant's usage row for the period.
func ensurePlanUsage(db *gorm.DB, tenantID uint, start, end time.Time) (*models.PlanUsage, error) {
	usage := models.PlanUsage{
		TenantID:    tenantID,
		PeriodStart: start,
		PeriodEnd:   end,
	}
	err := db.Where("tenant_id = ? AND period_start = ?", tenantID, start).
		FirstOrCreate(&usage).Error
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

func (s *TenantService) audit(tenantID, actorID *uint, action, targetType string, targetID *uint, meta models.JSONMap) {
	if err := s.auditTx(s.db.DB, tenantID, actorID, action, targetType, targetID, meta); err != nil {
		logger.GetLogger("services.tenant").Warnf("Audit write failed: %v", err)
	}
}

func (s *TenantService) auditTx(tx *gorm.DB, tenantID, actorID *uint, action, targetType string, targetID *uint, meta models.JSONMap) error {
	entry := models.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Meta:     meta,
	}
	if targetType != "" {
		entry.TargetType = &targetType
	}
	entry.TargetID = targetID
	return tx.Create(&entry).Error
}
