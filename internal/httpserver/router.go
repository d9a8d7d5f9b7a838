package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"contractledger/internal/domain"
	"contractledger/internal/report"
	activitysvc "contractledger/internal/service/activity"
	customersvc "contractledger/internal/service/customer"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type CustomerService interface {
	CreateCustomer(ctx context.Context, in customersvc.CreateInput) (*domain.Customer, error)
	AddContract(ctx context.Context, customerID string, in customersvc.ContractInput) (*domain.Customer, error)
	Get(ctx context.Context, id string) (*domain.Customer, error)
	Search(ctx context.Context, name string, page, size int) (*customersvc.Page, error)
}

type ActivityService interface {
	Record(ctx context.Context, in activitysvc.RecordInput) (*domain.Activity, error)
	ListByContract(ctx context.Context, contractID string) ([]domain.Activity, error)
}

type CatalogueService interface {
	List(ctx context.Context) ([]domain.Prestation, error)
	Get(ctx context.Context, id domain.ServiceID) (*domain.Prestation, error)
}

type ReportService interface {
	RunOnce(ctx context.Context) ([]report.Row, string, error)
}

// Deps groups the services the router dispatches to.
type Deps struct {
	CustomerSvc  CustomerService
	ActivitySvc  ActivityService
	CatalogueSvc CatalogueService
	ReportSvc    ReportService
	// Metrics serves /metrics when set.
	Metrics     http.Handler
	CORSOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.CustomerSvc == nil || deps.ActivitySvc == nil || deps.CatalogueSvc == nil || deps.ReportSvc == nil {
		return nil, errors.New("httpserver: missing service dependency")
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery(), cors.New(corsConfig(deps.CORSOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	h := &handlers{deps: deps, logger: logger}

	customers := router.Group("/customers")
	customers.POST("", h.createCustomer)
	customers.GET("/search", h.searchCustomers)
	customers.GET("/:id", h.getCustomer)
	customers.POST("/:id/contracts", h.addContract)

	activities := router.Group("/activities")
	activities.POST("", h.recordActivity)
	activities.GET("/contract/:contractId", h.listActivities)

	router.GET("/prestations", h.listPrestations)
	router.GET("/prestations/:id", h.getPrestation)

	router.POST("/reports/reconciliation", h.runReconciliation)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
