package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"contractledger/internal/domain"
	"contractledger/internal/report"
	activitysvc "contractledger/internal/service/activity"
	customersvc "contractledger/internal/service/customer"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type stubCustomerService struct {
	customer     *domain.Customer
	page         *customersvc.Page
	err          error
	gotContract  customersvc.ContractInput
	gotSearchArg string
	gotPage      int
	gotSize      int
}

func (s *stubCustomerService) CreateCustomer(_ context.Context, in customersvc.CreateInput) (*domain.Customer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Customer{ID: "cust-1", FirstName: in.FirstName, GivenName: in.GivenName, DateOfBirth: in.DateOfBirth}, nil
}

func (s *stubCustomerService) AddContract(_ context.Context, _ string, in customersvc.ContractInput) (*domain.Customer, error) {
	s.gotContract = in
	return s.customer, s.err
}

func (s *stubCustomerService) Get(_ context.Context, _ string) (*domain.Customer, error) {
	return s.customer, s.err
}

func (s *stubCustomerService) Search(_ context.Context, name string, page, size int) (*customersvc.Page, error) {
	s.gotSearchArg, s.gotPage, s.gotSize = name, page, size
	return s.page, s.err
}

type stubActivityService struct {
	activity *domain.Activity
	items    []domain.Activity
	err      error
	got      activitysvc.RecordInput
}

func (s *stubActivityService) Record(_ context.Context, in activitysvc.RecordInput) (*domain.Activity, error) {
	s.got = in
	return s.activity, s.err
}

func (s *stubActivityService) ListByContract(_ context.Context, _ string) ([]domain.Activity, error) {
	return s.items, s.err
}

type stubCatalogueService struct {
	items []domain.Prestation
	err   error
}

func (s *stubCatalogueService) List(_ context.Context) ([]domain.Prestation, error) {
	return s.items, s.err
}

func (s *stubCatalogueService) Get(_ context.Context, id domain.ServiceID) (*domain.Prestation, error) {
	for _, p := range s.items {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

type stubReportService struct {
	rows []report.Row
	err  error
}

func (s *stubReportService) RunOnce(_ context.Context) ([]report.Row, string, error) {
	return s.rows, "", s.err
}

func logDiscard() *zap.Logger {
	return zap.NewNop()
}

type testDeps struct {
	customers  *stubCustomerService
	activities *stubActivityService
	catalogue  *stubCatalogueService
	reports    *stubReportService
}

func newTestRouter(t *testing.T, d testDeps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if d.customers == nil {
		d.customers = &stubCustomerService{}
	}
	if d.activities == nil {
		d.activities = &stubActivityService{}
	}
	if d.catalogue == nil {
		d.catalogue = &stubCatalogueService{}
	}
	if d.reports == nil {
		d.reports = &stubReportService{}
	}
	router, err := buildRouter(logDiscard(), nil, Deps{
		CustomerSvc:  d.customers,
		ActivitySvc:  d.activities,
		CatalogueSvc: d.catalogue,
		ReportSvc:    d.reports,
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBuildRouter_MissingDeps(t *testing.T) {
	gin.SetMode(gin.TestMode)
	if _, err := buildRouter(logDiscard(), nil, Deps{}); err == nil {
		t.Fatalf("expected error for missing deps")
	}
}

func TestHealthAndReady(t *testing.T) {
	router := newTestRouter(t, testDeps{})

	if rec := do(router, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(router, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without db, got %d", rec.Code)
	}
}

func TestCreateCustomer_Created(t *testing.T) {
	router := newTestRouter(t, testDeps{})

	rec := do(router, http.MethodPost, "/customers", `{"firstName":"Ada","givenName":"Lovelace","dateOfBirth":"1815-12-10"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"dateOfBirth":"1815-12-10"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestCreateCustomer_ValidationError(t *testing.T) {
	router := newTestRouter(t, testDeps{customers: &stubCustomerService{err: domain.Reject(domain.CodeNameRequired, "first name is required")}})

	rec := do(router, http.MethodPost, "/customers", `{"givenName":"Lovelace"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != domain.CodeNameRequired {
		t.Fatalf("expected code %s, got %s", domain.CodeNameRequired, body.Code)
	}
}

func TestCreateCustomer_MalformedJSON(t *testing.T) {
	router := newTestRouter(t, testDeps{})
	rec := do(router, http.MethodPost, "/customers", `{"firstName":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetCustomer_NotFound(t *testing.T) {
	router := newTestRouter(t, testDeps{customers: &stubCustomerService{err: domain.Reject(domain.CodeCustomerNotFound, "customer x not found")}})
	rec := do(router, http.MethodGet, "/customers/x", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSearchCustomers_PassesPaging(t *testing.T) {
	svc := &stubCustomerService{page: &customersvc.Page{Items: []domain.Customer{}, Total: 0, Page: 2, Size: 5}}
	router := newTestRouter(t, testDeps{customers: svc})

	rec := do(router, http.MethodGet, "/customers/search?name=ada&page=2&size=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotSearchArg != "ada" || svc.gotPage != 2 || svc.gotSize != 5 {
		t.Fatalf("unexpected args: %q %d %d", svc.gotSearchArg, svc.gotPage, svc.gotSize)
	}

	if rec := do(router, http.MethodGet, "/customers/search?page=two", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad page, got %d", rec.Code)
	}
}

func TestAddContract_DecodesPayload(t *testing.T) {
	svc := &stubCustomerService{customer: &domain.Customer{ID: "cust-1"}}
	router := newTestRouter(t, testDeps{customers: svc})

	body := `{"type":"FREE_TRIAL","startDate":"2024-01-01","endDate":"2024-01-31","soldPrestations":[{"salesSystemId":"A","units":"10","totalBilledAmountForUnits":99.5}]}`
	rec := do(router, http.MethodPost, "/customers/cust-1/contracts", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	got := svc.gotContract
	if got.StartDate == nil || *got.StartDate != (civil.Date{Year: 2024, Month: time.January, Day: 1}) {
		t.Fatalf("unexpected start: %v", got.StartDate)
	}
	if len(got.SoldPrestations) != 1 || !got.SoldPrestations[0].TotalBilledAmountForUnits.Equal(decimal.RequireFromString("99.5")) {
		t.Fatalf("unexpected prestations: %+v", got.SoldPrestations)
	}
}

func TestAddContract_Overlap(t *testing.T) {
	svc := &stubCustomerService{err: domain.Reject(domain.CodeContractOverlap, "overlap")}
	router := newTestRouter(t, testDeps{customers: svc})

	rec := do(router, http.MethodPost, "/customers/cust-1/contracts", `{"type":"PERMANENT","startDate":"2024-01-01","soldPrestations":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRecordActivity(t *testing.T) {
	svc := &stubActivityService{activity: &domain.Activity{ID: "act-1", UnitsConsumed: decimal.NewFromInt(3)}}
	router := newTestRouter(t, testDeps{activities: svc})

	body := `{"customerId":"cust-1","contractId":"ct-1","salesSystemId":"A","doneOn":"2024-02-01","unitsConsumed":3}`
	rec := do(router, http.MethodPost, "/activities", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	if svc.got.SalesSystemID != "A" || svc.got.DoneOn == nil || !svc.got.UnitsConsumed.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected input: %+v", svc.got)
	}
}

func TestRecordActivity_QuotaAndInfrastructure(t *testing.T) {
	router := newTestRouter(t, testDeps{activities: &stubActivityService{err: domain.Reject(domain.CodeExceedsQuota, "exceeds quota")}})
	body := `{"customerId":"cust-1","contractId":"ct-1","salesSystemId":"A","doneOn":"2024-02-01","unitsConsumed":3}`
	if rec := do(router, http.MethodPost, "/activities", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	router = newTestRouter(t, testDeps{activities: &stubActivityService{err: errors.New("db down")}})
	rec := do(router, http.MethodPost, "/activities", body)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "db down") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}

func TestListActivities(t *testing.T) {
	router := newTestRouter(t, testDeps{activities: &stubActivityService{items: []domain.Activity{{ID: "a1"}, {ID: "a2"}}}})
	rec := do(router, http.MethodGet, "/activities/contract/ct-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var items []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 activities, got %d", len(items))
	}
}

func TestPrestations(t *testing.T) {
	router := newTestRouter(t, testDeps{catalogue: &stubCatalogueService{items: []domain.Prestation{{ID: "A", Name: "Audit", UnitPrice: decimal.NewFromInt(10)}}}})

	if rec := do(router, http.MethodGet, "/prestations", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(router, http.MethodGet, "/prestations/A", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(router, http.MethodGet, "/prestations/Z", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRunReconciliation(t *testing.T) {
	rows := []report.Row{{CustomerID: "cust-1", ContractID: "ct-1", Billed: decimal.RequireFromString("12.345"), Remaining: decimal.RequireFromString("987.655")}}
	router := newTestRouter(t, testDeps{reports: &stubReportService{rows: rows}})

	rec := do(router, http.MethodPost, "/reports/reconciliation", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp reconciliationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Rows) != 1 || resp.Rows[0].BilledAmount != "12.35" || resp.Rows[0].RemainingBalance != "987.66" {
		t.Fatalf("unexpected rows: %+v", resp.Rows)
	}
}
