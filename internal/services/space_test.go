package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lucasgodgig/busca-ponto-saas/internal/models"
	"github.com/lucasgodgig/busca-ponto-saas/internal/spaceapi"
)

type fakeSpaceStore struct {
	tenant    *models.Tenant
	role      string
	roleErr   error
	used      int
	limit     int
	queries   []*models.QuickQuery
	audits    []*models.AuditLog
	createErr error
}

func (f *fakeSpaceStore) TenantByID(id uint) (*models.Tenant, error) {
	if f.tenant == nil {
		return nil, ErrTenantNotFound
	}
	return f.tenant, nil
}

func (f *fakeSpaceStore) AccessRole(userID, tenantID uint) (string, error) {
	if f.roleErr != nil {
		return "", f.roleErr
	}
	return f.role, nil
}

func (f *fakeSpaceStore) ConsumeQuickQuery(tenantID uint, start, end time.Time, limit int) (int, error) {
	if f.used >= limit {
		return f.used, &QuotaExceededError{Resource: "quick query", Limit: limit}
	}
	f.used++
	return f.used, nil
}

func (f *fakeSpaceStore) RefundQuickQuery(tenantID uint, start time.Time) error {
	if f.used > 0 {
		f.used--
	}
	return nil
}

func (f *fakeSpaceStore) CreateQuickQuery(q *models.QuickQuery) error {
	if f.createErr != nil {
		return f.createErr
	}
	q.ID = uint(len(f.queries) + 1)
	f.queries = append(f.queries, q)
	return nil
}

func (f *fakeSpaceStore) CreateAuditLog(entry *models.AuditLog) error {
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeSpaceStore) QuickQueries(tenantID uint, limit, offset int) ([]models.QuickQuery, int64, error) {
	out := make([]models.QuickQuery, 0, len(f.queries))
	for _, q := range f.queries {
		out = append(out, *q)
	}
	return out, int64(len(out)), nil
}

type fakeFetcher struct {
	calls  int
	result spaceapi.Result
	err    error
}

func (f *fakeFetcher) Fetch(ctx context.Context, q spaceapi.Query) (spaceapi.Result, error) {
	f.calls++
	if f.err != nil {
		return spaceapi.Result{}, f.err
	}
	return f.result, nil
}

func newTestSpaceService(store *fakeSpaceStore, fetcher *fakeFetcher) *SpaceService {
	return &SpaceService{
		store:      store,
		fetcher:    fetcher,
		cache:      spaceapi.NewCache(20*time.Minute, 100, false),
		maxRadiusM: 5000,
	}
}

func testStore() *fakeSpaceStore {
	return &fakeSpaceStore{
		tenant: &models.Tenant{
			ID:   1,
			Plan: models.PlanStart,
			Limits: models.TenantLimits{
				QuickQueriesPerMonth: 300,
				SimultaneousStudies:  3,
			},
		},
		role: models.MembershipRoleMember,
	}
}

func realPayload() map[string]interface{} {
	return map[string]interface{}{
		"muni":         "São Paulo",
		"people":       float64(40000),
		"income":       float64(3500),
		"cons_a_total": float64(9000000),
	}
}

func TestRunQuickQuery(t *testing.T) {
	store := testStore()
	fetcher := &fakeFetcher{result: spaceapi.Result{Raw: realPayload()}}
	svc := newTestSpaceService(store, fetcher)

	input := QuickQueryInput{Lat: -23.55, Lng: -46.63, RadiusM: 2000}
	resp, err := svc.RunQuickQuery(context.Background(), 10, 1, input)
	if err != nil {
		t.Fatalf("RunQuickQuery: %v", err)
	}

	if resp.Cached || resp.Degraded {
		t.Errorf("resp = cached=%v degraded=%v, want fresh real data", resp.Cached, resp.Degraded)
	}
	if resp.Snapshot.Head.Muni != "São Paulo" {
		t.Errorf("Muni = %q", resp.Snapshot.Head.Muni)
	}
	if resp.Used != 1 || resp.Limit != 300 || resp.Remaining != 299 {
		t.Errorf("usage = %d/%d remaining %d", resp.Used, resp.Limit, resp.Remaining)
	}

	if len(store.queries) != 1 {
		t.Fatalf("persisted %d records, want 1", len(store.queries))
	}
	record := store.queries[0]
	if record.TenantID != 1 || record.UserID != 10 || record.RadiusM != 2000 {
		t.Errorf("record = %+v", record)
	}
	if record.ResultSummary["cached"] != false {
		t.Errorf("summary cached = %v", record.ResultSummary["cached"])
	}

	if len(store.audits) != 1 || store.audits[0].Action != "quick_query_executed" {
		t.Errorf("audits = %+v", store.audits)
	}
}

func TestRunQuickQueryCacheCostsQuota(t *testing.T) {
	store := testStore()
	fetcher := &fakeFetcher{result: spaceapi.Result{Raw: realPayload()}}
	svc := newTestSpaceService(store, fetcher)

	input := QuickQueryInput{Lat: -23.55, Lng: -46.63, RadiusM: 2000}
	if _, err := svc.RunQuickQuery(context.Background(), 10, 1, input); err != nil {
		t.Fatalf("first run: %v", err)
	}
	resp, err := svc.RunQuickQuery(context.Background(), 10, 1, input)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !resp.Cached {
		t.Error("second identical query should hit the cache")
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", fetcher.calls)
	}
	// The cache saves the upstream call, not the quota unit
	if store.used != 2 {
		t.Errorf("quota used = %d, want 2", store.used)
	}
	if len(store.queries) != 2 {
		t.Errorf("persisted %d records, want 2", len(store.queries))
	}
}

func TestRunQuickQueryQuotaExceeded(t *testing.T) {
	store := testStore()
	store.tenant.Limits.QuickQueriesPerMonth = 5
	store.used = 5
	fetcher := &fakeFetcher{result: spaceapi.Result{Raw: realPayload()}}
	svc := newTestSpaceService(store, fetcher)

	_, err := svc.RunQuickQuery(context.Background(), 10, 1, QuickQueryInput{Lat: -23.55, Lng: -46.63, RadiusM: 2000})

	var quota *QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("err = %v, want QuotaExceededError", err)
	}
	if quota.Limit != 5 {
		t.Errorf("Limit = %d, want 5", quota.Limit)
	}
	if fetcher.calls != 0 {
		t.Error("upstream should not be called when the quota is exhausted")
	}
	if len(store.queries) != 0 {
		t.Error("no history record should be written on quota rejection")
	}
}

func TestRunQuickQueryDegradedUpstream(t *testing.T) {
	store := testStore()
	q := spaceapi.Query{Lat: -23.55, Lng: -46.63, RadiusM: 2000}
	fetcher := &fakeFetcher{result: spaceapi.Result{
		Raw:      spaceapi.SyntheticPayload(q),
		Degraded: true,
		Reason:   spaceapi.ReasonNotConfigured,
	}}
	svc := newTestSpaceService(store, fetcher)

	resp, err := svc.RunQuickQuery(context.Background(), 10, 1, QuickQueryInput{Lat: -23.55, Lng: -46.63, RadiusM: 2000})
	if err != nil {
		t.Fatalf("RunQuickQuery: %v", err)
	}

	if !resp.Degraded || resp.Reason != spaceapi.ReasonNotConfigured {
		t.Errorf("resp = degraded=%v reason=%q", resp.Degraded, resp.Reason)
	}
	if !resp.Snapshot.Synthetic {
		t.Error("snapshot should carry the synthetic flag")
	}
	if len(store.queries) != 1 {
		t.Fatalf("persisted %d records, want 1", len(store.queries))
	}
	if store.queries[0].ResultSummary["degraded"] != true {
		t.Error("history summary should record the degradation")
	}
}

func TestRunQuickQueryInvalidInput(t *testing.T) {
	store := testStore()
	fetcher := &fakeFetcher{result: spaceapi.Result{Raw: realPayload()}}
	svc := newTestSpaceService(store, fetcher)

	inputs := []QuickQueryInput{
		{Lat: 91, Lng: 0, RadiusM: 1000},
		{Lat: 0, Lng: -46.63, RadiusM: 0},
		{Lat: 0, Lng: -46.63, RadiusM: 6000},
	}
	for _, input := range inputs {
		if _, err := svc.RunQuickQuery(context.Background(), 10, 1, input); !errors.Is(err, spaceapi.ErrInvalidQuery) {
			t.Errorf("RunQuickQuery(%+v) err = %v, want ErrInvalidQuery", input, err)
		}
	}
	if store.used != 0 {
		t.Error("invalid input should not consume quota")
	}
}

func TestRunQuickQueryForbidden(t *testing.T) {
	store := testStore()
	store.roleErr = ErrForbidden
	fetcher := &fakeFetcher{result: spaceapi.Result{Raw: realPayload()}}
	svc := newTestSpaceService(store, fetcher)

	_, err := svc.RunQuickQuery(context.Background(), 10, 1, QuickQueryInput{Lat: -23.55, Lng: -46.63, RadiusM: 2000})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
	if store.used != 0 || fetcher.calls != 0 {
		t.Error("forbidden caller should not consume quota or reach upstream")
	}
}

func TestRunQuickQueryCancelledFetchNotCached(t *testing.T) {
	store := testStore()
	fetcher := &fakeFetcher{err: context.Canceled}
	svc := newTestSpaceService(store, fetcher)

	input := QuickQueryInput{Lat: -23.55, Lng: -46.63, RadiusM: 2000}
	if _, err := svc.RunQuickQuery(context.Background(), 10, 1, input); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if store.used != 0 {
		t.Errorf("quota used = %d after failed fetch, want the unit refunded", store.used)
	}

	// A later retry must fetch again instead of serving a poisoned entry
	fetcher.err = nil
	fetcher.result = spaceapi.Result{Raw: realPayload()}
	resp, err := svc.RunQuickQuery(context.Background(), 10, 1, input)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if resp.Cached {
		t.Error("failed fetch must not leave a cache entry behind")
	}
}

func TestHistory(t *testing.T) {
	store := testStore()
	fetcher := &fakeFetcher{result: spaceapi.Result{Raw: realPayload()}}
	svc := newTestSpaceService(store, fetcher)

	for i := 0; i < 3; i++ {
		input := QuickQueryInput{Lat: -23.55 + float64(i)*0.01, Lng: -46.63, RadiusM: 2000}
		if _, err := svc.RunQuickQuery(context.Background(), 10, 1, input); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	queries, total, err := svc.History(10, 1, 20, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 3 || len(queries) != 3 {
		t.Errorf("total=%d len=%d, want 3", total, len(queries))
	}
}
