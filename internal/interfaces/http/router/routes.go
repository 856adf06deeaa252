package router

import (
	"github.com/gin-gonic/gin"
	"github.com/netcollect/backend/internal/infrastructure/logger"
	"github.com/netcollect/backend/internal/interfaces/http/handler"
	"github.com/netcollect/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Config holds what NewEngine needs besides the handlers
type Config struct {
	ServiceName    string
	Logger         *zap.Logger
	CORS           middleware.CORSConfig
	Auth           middleware.AuthConfig
	Tracing        middleware.TracingConfig
	Meter          metric.Meter
	TrustedProxies []string
	BodyLimit      int64
}

// Handlers are the route targets
type Handlers struct {
	System     *handler.SystemHandler
	Collection *handler.CollectionHandler
	Admin      *handler.AdminHandler
}

// NewEngine builds the gin engine with the full middleware chain and every route
func NewEngine(cfg Config, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = middleware.DefaultBodyLimit
	}
	if cfg.Auth.Logger == nil {
		cfg.Auth.Logger = log
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.TracingWithConfig(cfg.Tracing),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(cfg.Meter),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORSWithConfig(cfg.CORS),
		middleware.BodyLimit(cfg.BodyLimit),
	)

	engine.GET("/healthz", h.System.Healthz)
	engine.GET("/ready", h.System.Ready)

	r := NewRouter(engine, WithMiddleware(
		middleware.Authenticate(cfg.Auth),
		middleware.SpanEnricher(),
	))
	r.Register(systemRoutes(h.System))
	r.Register(collectionRoutes(h.Collection))
	r.Register(invoiceRoutes(h.Collection))
	r.Register(adminRoutes(h.Admin))
	r.Setup()

	return engine, nil
}

func systemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo)
}

func collectionRoutes(h *handler.CollectionHandler) *DomainGroup {
	return NewDomainGroup("collection", "/periods/:period").
		POST("/ensure", h.EnsurePeriod).
		GET("/invoices/unpaid", h.ListUnpaid).
		POST("/payments", h.Pay).
		POST("/invoices/:id/undo", h.Undo).
		GET("/collector/today", h.CollectorToday).
		POST("/batches", h.SubmitBatch)
}

func invoiceRoutes(h *handler.CollectionHandler) *DomainGroup {
	return NewDomainGroup("invoices", "/invoices").
		GET("/:id/receipt", h.Receipt)
}

func adminRoutes(h *handler.AdminHandler) *DomainGroup {
	admin := NewDomainGroup("admin", "/admin").Use(middleware.RequireAdmin())
	admin.GET("/audit", h.AuditTrail)
	admin.POST("/roster/sync", h.SyncRoster)

	admin.Group("admin-periods", "/periods/:period").
		GET("/summary", h.Summary).
		GET("/batches/pending", h.PendingBatches).
		GET("/approved-totals", h.ApprovedTotals).
		GET("/batches/:id", h.BatchDetail).
		POST("/batches/:id/approve", h.Approve).
		GET("/dates/:date", h.DateDetail).
		GET("/export.xlsx", h.Export)
	return admin
}
