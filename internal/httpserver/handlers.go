package httpserver

import (
	"net/http"
	"strconv"

	"contractledger/internal/domain"
	"contractledger/internal/report"
	activitysvc "contractledger/internal/service/activity"
	customersvc "contractledger/internal/service/customer"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type handlers struct {
	deps   Deps
	logger *zap.Logger
}

func (h *handlers) createCustomer(c *gin.Context) {
	var req customersvc.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	customer, err := h.deps.CustomerSvc.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *handlers) getCustomer(c *gin.Context) {
	customer, err := h.deps.CustomerSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *handlers) searchCustomers(c *gin.Context) {
	page, err := intQuery(c, "page", 0)
	if err != nil {
		badRequest(c, "page must be an integer")
		return
	}
	size, err := intQuery(c, "size", 0)
	if err != nil {
		badRequest(c, "size must be an integer")
		return
	}
	result, err := h.deps.CustomerSvc.Search(c.Request.Context(), c.Query("name"), page, size)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) addContract(c *gin.Context) {
	var req customersvc.ContractInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	customer, err := h.deps.CustomerSvc.AddContract(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *handlers) recordActivity(c *gin.Context) {
	var req activitysvc.RecordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload: "+err.Error())
		return
	}
	activity, err := h.deps.ActivitySvc.Record(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, activity)
}

func (h *handlers) listActivities(c *gin.Context) {
	items, err := h.deps.ActivitySvc.ListByContract(c.Request.Context(), c.Param("contractId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *handlers) listPrestations(c *gin.Context) {
	items, err := h.deps.CatalogueSvc.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if items == nil {
		items = []domain.Prestation{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *handlers) getPrestation(c *gin.Context) {
	id, err := domain.NewServiceID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	p, err := h.deps.CatalogueSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type reconciliationRow struct {
	CustomerID       string `json:"customerId"`
	ContractID       string `json:"contractId"`
	BilledAmount     string `json:"billedAmount"`
	RemainingBalance string `json:"remainingBalance"`
}

type reconciliationResponse struct {
	Rows   []reconciliationRow `json:"rows"`
	Report string              `json:"report,omitempty"`
}

func (h *handlers) runReconciliation(c *gin.Context) {
	rows, path, err := h.deps.ReportSvc.RunOnce(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := reconciliationResponse{Rows: make([]reconciliationRow, 0, len(rows)), Report: path}
	for _, r := range rows {
		f := report.Format(r)
		resp.Rows = append(resp.Rows, reconciliationRow{
			CustomerID:       r.CustomerID.String(),
			ContractID:       f[0],
			BilledAmount:     f[1],
			RemainingBalance: f[2],
		})
	}
	c.JSON(http.StatusOK, resp)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
