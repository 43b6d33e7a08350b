package router

import (
	"github.com/gin-gonic/gin"
	"github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/interfaces/http/handler"
	"github.com/stockledger/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers bundles the HTTP handlers served by the engine
type Handlers struct {
	Product *handler.ProductHandler
	Stock   *handler.StockHandler
	Report  *handler.ReportHandler
	System  *handler.SystemHandler
}

// EngineConfig configures the middleware chain
type EngineConfig struct {
	ServiceName    string
	TracingEnabled bool
	MaxBodySize    int64
	CORS           middleware.CORSConfig
	Logger         *zap.Logger
}

// NewEngine builds the gin engine with middleware and all API routes.
// gin's mode must be set by the caller before this is invoked.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	if cfg.TracingEnabled {
		engine.Use(middleware.Tracing(cfg.ServiceName), middleware.SpanEnricher())
	}
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	engine.GET("/health", h.System.Health)

	productRoutes := NewDomainGroup("products", "/products").
		POST("", h.Product.Create).
		GET("", h.Product.List).
		GET("/:id", h.Product.GetByID).
		PATCH("/:id", h.Product.UpdateDescription).
		GET("/:id/balance", h.Stock.GetBalance).
		GET("/:id/audit", h.Report.Audit)

	inboundRoutes := NewDomainGroup("inbound", "/inbound").
		POST("", h.Stock.RecordInbound).
		GET("", h.Report.ListInbound)

	outboundRoutes := NewDomainGroup("outbound", "/outbound").
		POST("", h.Stock.RecordOutbound).
		GET("", h.Report.ListOutbound)

	stockRoutes := NewDomainGroup("stock", "/stock").
		GET("", h.Report.Snapshot)

	systemRoutes := NewDomainGroup("system", "/system").
		GET("/ping", h.System.Ping).
		GET("/info", h.System.GetSystemInfo).
		GET("/health", h.System.Health)

	NewRouter(engine, WithAPIVersion("v1")).
		Register(productRoutes, inboundRoutes, outboundRoutes, stockRoutes, systemRoutes).
		Setup()

	return engine
}
