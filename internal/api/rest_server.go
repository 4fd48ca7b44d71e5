package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/voxel-core/internal/entity"
	"github.com/annel0/voxel-core/internal/eventbus"
	"github.com/annel0/voxel-core/internal/game"
	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/metrics"
	"github.com/annel0/voxel-core/internal/middleware"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world"
)

// Simulation: то, что REST API использует из симуляции
type Simulation interface {
	World() *world.ChunkMap
	Players() []entity.PlayerState
	Player(id uuid.UUID) (entity.PlayerState, bool)
	SpawnPlayer(ctx context.Context, id uuid.UUID, name string) (entity.PlayerState, error)
	RemovePlayer(ctx context.Context, id uuid.UUID) error
	SetWalk(id uuid.UUID, velocity vec.Vec3Float) error
	Jump(id uuid.UUID) (bool, error)
	SetFlying(id uuid.UUID, flying bool) error
	Stats() game.Stats
}

// RestServer представляет REST API сервер
type RestServer struct {
	router     *gin.Engine
	httpServer *http.Server
	sim        Simulation
	bus        eventbus.EventBus
	port       string
	stats      *ServerMetrics
	log        *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port       string            // порт для запуска сервера, например ":8088"
	Simulation Simulation        // симуляция мира
	Metrics    *metrics.Exporter // реестр для HTTP-метрик; nil — без метрик
	Bus        eventbus.EventBus // для статистики шины; может быть nil
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) (*RestServer, error) {
	if config.Port == "" {
		config.Port = ":8088"
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	log := logging.GetAPILogger()

	// === Observability middleware ===
	router.Use(otelgin.Middleware("voxel_api"))
	router.Use(middleware.NewRequestLogger(log).Handler())

	if config.Metrics != nil {
		promMw, err := middleware.NewPrometheusMiddleware("voxel_api", config.Metrics.Registry())
		if err != nil {
			return nil, err
		}
		router.Use(promMw.Handler())
	}

	server := &RestServer{
		router: router,
		sim:    config.Simulation,
		bus:    config.Bus,
		port:   config.Port,
		stats:  NewServerMetrics(),
		log:    log,
	}

	server.setupRoutes()
	server.httpServer = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server, nil
}

// Handler возвращает http.Handler сервера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/blocks/:x/:y/:z", rs.handleGetBlock)
		api.PUT("/blocks/:x/:y/:z", rs.handlePutBlock)
		api.DELETE("/blocks/:x/:y/:z", rs.handleDeleteBlock)

		api.GET("/sections/:x/:y/:z", rs.handleGetSection)

		api.GET("/players", rs.handleGetPlayers)
		api.POST("/players", rs.handleSpawnPlayer)
		api.GET("/players/:id", rs.handleGetPlayer)
		api.DELETE("/players/:id", rs.handleRemovePlayer)
		api.PUT("/players/:id/input", rs.handlePlayerInput)

		api.GET("/stats", rs.handleStats)
	}
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, GenericResponse{Success: false, Message: message})
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, GenericResponse{Success: true, Message: message, Data: data})
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// Start запускает REST сервер и блокируется до его остановки
func (rs *RestServer) Start() error {
	rs.log.Info("🌐 REST API слушает %s", rs.port)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop останавливает REST сервер, дожидаясь текущих запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.httpServer.Shutdown(ctx)
}
