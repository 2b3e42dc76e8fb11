package handlers

import (
	"net/http"

	"controlling_roaster/internal/logger"
	"controlling_roaster/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	defaults service.StartParams
	metrics  http.Handler
}

// NewHandler constructs a new HTTP handler with dependencies. defaults fill
// the start request fields a caller leaves out; metrics may be nil.
func NewHandler(services *service.Service, log *logger.Logger, defaults service.StartParams, metrics http.Handler) *Handler {
	return &Handler{services: services, log: log, defaults: defaults, metrics: metrics}
}

func (h *Handler) logger() *logger.Logger {
	if h.log == nil {
		return logger.Nop()
	}
	return h.log
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// live state stream, same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.operatorMiddleware)
	{
		h.registerRoasterRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerRoasterRoutes(api *gin.RouterGroup) {
	roaster := api.Group("/roaster")
	{
		// Body (optional): {"port":"/dev/ttyUSB0","interval_ms":500}
		roaster.POST("/start", h.startRoaster)
		roaster.POST("/stop", h.stopRoaster)
		roaster.POST("/engage", h.engageControl)
		roaster.POST("/disengage", h.disengageControl)
		// Body example: {"heater":60,"fan":40,"drum_motor":true}
		roaster.POST("/setpoints", h.requestSetpoints)
		roaster.GET("/reading", h.getReading)
		roaster.GET("/state", h.getState)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
