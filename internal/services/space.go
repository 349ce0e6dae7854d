package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lucasgodgig/busca-ponto-saas/internal/config"
	"github.com/lucasgodgig/busca-ponto-saas/internal/database"
	"github.com/lucasgodgig/busca-ponto-saas/internal/logger"
	"github.com/lucasgodgig/busca-ponto-saas/internal/models"
	"github.com/lucasgodgig/busca-ponto-saas/internal/spaceapi"
)

// spaceStore is the persistence surface the quick-query flow needs. Narrow on
// purpose: tests swap in an in-memory fake.
type spaceStore interface {
	TenantByID(id uint) (*models.Tenant, error)
	AccessRole(userID, tenantID uint) (string, error)
	ConsumeQuickQuery(tenantID uint, start, end time.Time, limit int) (used int, err error)
	RefundQuickQuery(tenantID uint, start time.Time) error
	CreateQuickQuery(q *models.QuickQuery) error
	CreateAuditLog(entry *models.AuditLog) error
	QuickQueries(tenantID uint, limit, offset int) ([]models.QuickQuery, int64, error)
}

// demographicFetcher abstracts the upstream client for tests.
type demographicFetcher interface {
	Fetch(ctx context.Context, q spaceapi.Query) (spaceapi.Result, error)
}

// SpaceService orchestrates quick queries: tenant access, quota, the cached
// upstream fetch, normalization, and the persisted history record.
type SpaceService struct {
	store      spaceStore
	fetcher    demographicFetcher
	cache      *spaceapi.Cache
	maxRadiusM int
}

func NewSpaceService(db *database.DB, cfg *config.Config) *SpaceService {
	return &SpaceService{
		store:      &gormSpaceStore{db: db},
		fetcher:    spaceapi.NewClient(cfg),
		cache:      spaceapi.NewCache(time.Duration(cfg.CacheTTLMinutes)*time.Minute, cfg.CacheMaxEntries, cfg.CacheDisabled),
		maxRadiusM: cfg.SpaceMaxRadiusM,
	}
}

type QuickQueryInput struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	RadiusM int     `json:"radius_m"`
	Segment string  `json:"segment"`
}

type QuickQueryResponse struct {
	QueryID   uint              `json:"query_id"`
	Snapshot  spaceapi.Snapshot `json:"snapshot"`
	Cached    bool              `json:"cached"`
	Degraded  bool              `json:"degraded"`
	Reason    string            `json:"reason,omitempty"`
	Used      int               `json:"quick_queries_used"`
	Limit     int               `json:"quick_queries_limit"`
	Remaining int               `json:"quick_queries_remaining"`
}

// RunQuickQuery executes one demographic lookup for a tenant. Quota is
// consumed before the fetch; a cache hit still costs one unit, matching how
// the plan is priced.
func (s *SpaceService) RunQuickQuery(ctx context.Context, userID, tenantID uint, input QuickQueryInput) (*QuickQueryResponse, error) {
	log := logger.GetLogger("services.space")

	q := spaceapi.Query{Lat: input.Lat, Lng: input.Lng, RadiusM: input.RadiusM, Segment: input.Segment}
	if err := q.Validate(s.maxRadiusM); err != nil {
		return nil, err
	}

	if _, err := s.store.AccessRole(userID, tenantID); err != nil {
		return nil, err
	}

	tenant, err := s.store.TenantByID(tenantID)
	if err != nil {
		return nil, err
	}
	limit := tenant.Limits.QuickQueriesPerMonth

	start, end := currentPeriod(time.Now())
	used, err := s.store.ConsumeQuickQuery(tenantID, start, end, limit)
	if err != nil {
		return nil, err
	}

	result, cached, err := s.cache.GetOrFetch(q.CacheKey(), func() (spaceapi.Result, error) {
		return s.fetcher.Fetch(ctx, q)
	})
	if err != nil {
		// No snapshot was produced, so give the consumed unit back.
		if refundErr := s.store.RefundQuickQuery(tenantID, start); refundErr != nil {
			log.Warnf("Quota refund failed after fetch error: %v", refundErr)
		}
		return nil, err
	}

	snapshot := spaceapi.Normalize(result.Raw, q)

	record := &models.QuickQuery{
		TenantID:      tenantID,
		UserID:        userID,
		Lat:           q.Lat,
		Lng:           q.Lng,
		RadiusM:       q.RadiusM,
		LayersEnabled: models.JSONMap{},
		ResultSummary: snapshotSummary(snapshot, cached, result),
		CostUnits:     1,
	}
	if q.Segment != "" {
		record.Segment = &q.Segment
	}
	if err := s.store.CreateQuickQuery(record); err != nil {
		// The data is already in hand and the quota consumed; losing the
		// history row is not worth failing the request over.
		log.Warnf("Quick query history write failed: %v", err)
	} else {
		s.auditQuickQuery(record, userID, tenantID, cached, result)
	}

	log.Infof("Quick query: tenant=%d user=%d cached=%v degraded=%v used=%d/%d",
		tenantID, userID, cached, result.Degraded, used, limit)

	return &QuickQueryResponse{
		QueryID:   record.ID,
		Snapshot:  snapshot,
		Cached:    cached,
		Degraded:  result.Degraded,
		Reason:    result.Reason,
		Used:      used,
		Limit:     limit,
		Remaining: limit - used,
	}, nil
}

// History lists a tenant's past quick queries, newest first.
func (s *SpaceService) History(userID, tenantID uint, limit, offset int) ([]models.QuickQuery, int64, error) {
	if _, err := s.store.AccessRole(userID, tenantID); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.QuickQueries(tenantID, limit, offset)
}

// snapshotSummary flattens the normalized snapshot into the JSONB history
// column.
func snapshotSummary(snapshot spaceapi.Snapshot, cached bool, result spaceapi.Result) models.JSONMap {
	summary := models.JSONMap{}
	if data, err := json.Marshal(snapshot); err == nil {
		_ = json.Unmarshal(data, (*map[string]interface{})(&summary))
	}
	summary["cached"] = cached
	if result.Degraded {
		summary["degraded"] = true
		summary["degraded_reason"] = result.Reason
	}
	return summary
}

func (s *SpaceService) auditQuickQuery(record *models.QuickQuery, userID, tenantID uint, cached bool, result spaceapi.Result) {
	targetType := "quick_query"
	entry := &models.AuditLog{
		TenantID:   &tenantID,
		ActorID:    &userID,
		Action:     "quick_query_executed",
		TargetType: &targetType,
		TargetID:   &record.ID,
		Meta: models.JSONMap{
			"lat":      record.Lat,
			"lng":      record.Lng,
			"radius_m": record.RadiusM,
			"cached":   cached,
			"degraded": result.Degraded,
		},
	}
	if err := s.store.CreateAuditLog(entry); err != nil {
		logger.GetLogger("services.space").Warnf("Audit write failed: %v", err)
	}
}

// gormSpaceStore is the production spaceStore.
type gormSpaceStore struct {
	db *database.DB
}

func (g *gormSpaceStore) TenantByID(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := g.db.First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

func (g *gormSpaceStore) AccessRole(userID, tenantID uint) (string, error) {
	var user models.User
	if err := g.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if isPlatformStaff(user.Role) {
		return user.Role, nil
	}

	var membership models.Membership
	err := g.db.Where("user_id = ? AND tenant_id = ?", userID, tenantID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrForbidden
		}
		return "", err
	}
	return membership.Role, nil
}

// ConsumeQuickQuery increments the month's counter only while it is under the
// limit. The conditional UPDATE makes concurrent requests race safely: the
// row never passes the limit no matter how many requests land at once.
func (g *gormSpaceStore) ConsumeQuickQuery(tenantID uint, start, end time.Time, limit int) (int, error) {
	usage, err := ensurePlanUsage(g.db.DB, tenantID, start, end)
	if err != nil {
		return 0, err
	}

	res := g.db.Model(&models.PlanUsage{}).
		Where("tenant_id = ? AND period_start = ? AND quick_queries_used < ?", tenantID, start, limit).
		UpdateColumn("quick_queries_used", gorm.Expr("quick_queries_used + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return usage.QuickQueriesUsed, &QuotaExceededError{Resource: "quick query", Limit: limit}
	}

	var after models.PlanUsage
	if err := g.db.Where("tenant_id = ? AND period_start = ?", tenantID, start).First(&after).Error; err != nil {
		return usage.QuickQueriesUsed + 1, nil
	}
	return after.QuickQueriesUsed, nil
}

// RefundQuickQuery undoes one consumed unit when the fetch never produced a
// snapshot. The guard keeps the counter from going negative if a concurrent
// period reset already zeroed it.
func (g *gormSpaceStore) RefundQuickQuery(tenantID uint, start time.Time) error {
	return g.db.Model(&models.PlanUsage{}).
		Where("tenant_id = ? AND period_start = ? AND quick_queries_used > 0", tenantID, start).
		UpdateColumn("quick_queries_used", gorm.Expr("quick_queries_used - 1")).Error
}

func (g *gormSpaceStore) CreateQuickQuery(q *models.QuickQuery) error {
	return g.db.Create(q).Error
}

func (g *gormSpaceStore) CreateAuditLog(entry *models.AuditLog) error {
	return g.db.Create(entry).Error
}

func (g *gormSpaceStore) QuickQueries(tenantID uint, limit, offset int) ([]models.QuickQuery, int64, error) {
	var total int64
	if err := g.db.Model(&models.QuickQuery{}).Where("tenant_id = ?", tenantID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var queries []models.QuickQuery
	err := g.db.Where("tenant_id = ?", tenantID).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&queries).Error
	if err != nil {
		return nil, 0, err
	}
	return queries, total, nil
}
