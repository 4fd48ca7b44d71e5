package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/annel0/voxel-core/internal/api"
	"github.com/annel0/voxel-core/internal/config"
	"github.com/annel0/voxel-core/internal/eventbus"
	"github.com/annel0/voxel-core/internal/game"
	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/metrics"
	"github.com/annel0/voxel-core/internal/physics"
	"github.com/annel0/voxel-core/internal/storage"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world"
)

// ServiceName имя сервиса в трассировке и метриках
const ServiceName = "voxeld"

// App собирает все подсистемы сервера из конфигурации
type App struct {
	cfg *config.Config
	log *logging.Logger

	world      *world.ChunkMap
	sim        *game.Simulation
	rest       *api.RestServer
	metrics    *metrics.Exporter
	bus        eventbus.EventBus
	forwarder  *eventbus.BlockChangeForwarder
	busMetrics *eventbus.MetricsExporter
	logSub     eventbus.Subscription
	codec      *storage.Codec
	chunks     *storage.ChunkStore
	positions  storage.PositionRepo
}

// New создаёт приложение. При ошибке уже открытые ресурсы закрываются.
func New(ctx context.Context, cfg *config.Config) (a *App, err error) {
	a = &App{
		cfg:     cfg,
		log:     logging.GetWorldLogger(),
		world:   world.NewChunkMap(),
		metrics: metrics.NewExporter(),
	}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	if err = a.openStorage(ctx); err != nil {
		return a, err
	}
	if err = a.openPositions(ctx); err != nil {
		return a, err
	}
	if err = a.openEventBus(); err != nil {
		return a, err
	}

	a.world.OnBlockChanged(a.metrics.BlockListener())
	a.world.OnBlockChanged(a.forwarder.Listener())

	a.sim = game.New(game.Options{
		World:        a.world,
		Generator:    world.NewGenerator(cfg.World.Seed),
		Engine:       physics.NewEngine(cfg.Physics.ToEngineConfig()),
		Chunks:       a.chunks,
		Positions:    a.positions,
		Metrics:      a.metrics,
		Bus:          a.bus,
		TickInterval: cfg.World.TickInterval(),
		SaveInterval: time.Duration(cfg.World.SaveEvery) * time.Second,
		Spawn:        vec.Vec3Float{X: cfg.World.SpawnX, Z: cfg.World.SpawnZ},
		ViewDistance: cfg.World.ViewDistance,
	})

	a.rest, err = api.NewRestServer(api.Config{
		Port:       fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		Simulation: a.sim,
		Metrics:    a.metrics,
		Bus:        a.bus,
	})
	if err != nil {
		return a, err
	}
	return a, nil
}

func (a *App) openStorage(ctx context.Context) error {
	var sections storage.SectionStore
	switch a.cfg.Storage.Backend {
	case "memory":
		sections = storage.NewMemorySectionStore()
		a.log.Warn("⚠️ Мир хранится в памяти и не переживёт перезапуск")
	case "badger":
		badgerStore, err := storage.NewBadgerSectionStore(a.cfg.Storage.Path)
		if err != nil {
			return err
		}
		sections = badgerStore
	case "tiered":
		badgerStore, err := storage.NewBadgerSectionStore(a.cfg.Storage.Path)
		if err != nil {
			return err
		}
		redisStore, err := storage.NewRedisSectionStore(ctx, a.cfg.Storage.RedisURL, a.cfg.Storage.CacheTTLDuration())
		if err != nil {
			badgerStore.Close()
			return err
		}
		sections = storage.NewTieredSectionStore(redisStore, badgerStore)
	default:
		return fmt.Errorf("неизвестный backend хранилища: %q", a.cfg.Storage.Backend)
	}

	codec, err := storage.NewCodec()
	if err != nil {
		sections.Close()
		return err
	}
	a.codec = codec
	a.chunks = storage.NewChunkStore(sections, codec)
	a.log.Info("💾 Хранилище секций: %s", a.cfg.Storage.Backend)
	return nil
}

func (a *App) openPositions(ctx context.Context) error {
	switch {
	case a.cfg.Storage.MariaDSN != "":
		repo, err := storage.NewMariaPositionRepo(ctx, a.cfg.Storage.MariaDSN)
		if err != nil {
			return err
		}
		a.positions = repo
	case a.cfg.Storage.RedisURL != "":
		redisCfg, err := storage.RedisConfigFromURL(a.cfg.Storage.RedisURL)
		if err != nil {
			return err
		}
		repo, err := storage.NewRedisPositionRepo(ctx, redisCfg)
		if err != nil {
			return err
		}
		a.positions = repo
	default:
		a.positions = storage.NewMemoryPositionRepo()
	}
	return nil
}

func (a *App) openEventBus() error {
	if url := a.cfg.EventBus.URL; url != "" {
		retention := time.Duration(a.cfg.EventBus.Retention) * time.Hour
		bus, err := eventbus.NewJetStreamBus(url, a.cfg.EventBus.Stream, retention)
		if err != nil {
			return err
		}
		a.bus = bus
	} else {
		a.bus = eventbus.NewMemoryBus(1024)
	}

	sub, err := eventbus.StartLoggingListener(a.bus)
	if err != nil {
		return err
	}
	a.logSub = sub

	a.busMetrics, err = eventbus.NewMetricsExporter(a.bus, a.metrics.Registry(), 5*time.Second)
	if err != nil {
		return err
	}
	a.busMetrics.Start()

	a.forwarder = eventbus.NewBlockChangeForwarder(a.bus, ServiceName, 4096)
	return nil
}

// Simulation возвращает симуляцию мира
func (a *App) Simulation() *game.Simulation {
	return a.sim
}

// Metrics возвращает экспортёр метрик
func (a *App) Metrics() *metrics.Exporter {
	return a.metrics
}

// Bus возвращает шину событий
func (a *App) Bus() eventbus.EventBus {
	return a.bus
}

// Run загружает область появления и крутит сервер до отмены ctx или падения REST API
func (a *App) Run(ctx context.Context) error {
	spawn := vec.Vec3Float{X: a.cfg.World.SpawnX, Z: a.cfg.World.SpawnZ}.Floor()
	center := vec.Vec2{X: spawn.X, Z: spawn.Z}.ToChunkCoords()
	loaded, err := a.sim.LoadArea(ctx, center, a.cfg.World.ViewDistance)
	if err != nil {
		return fmt.Errorf("загрузка области появления: %w", err)
	}
	a.log.Info("🌍 Загружено чанков вокруг точки появления: %d", loaded)

	a.metrics.StartHTTP(fmt.Sprintf(":%d", a.cfg.Server.GetMetricsPort()))

	simCtx, stopSim := context.WithCancel(ctx)
	simDone := make(chan error, 1)
	go func() { simDone <- a.sim.Run(simCtx) }()

	restDone := make(chan error, 1)
	go func() { restDone <- a.rest.Start() }()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-restDone:
		if runErr != nil {
			a.log.Error("❌ REST API остановился с ошибкой: %v", runErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.rest.Stop(shutdownCtx); err != nil {
		a.log.Error("❌ Ошибка остановки REST API: %v", err)
	}
	stopSim()
	if err := <-simDone; err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("финальное сохранение: %w", err))
	}
	if err := a.metrics.Shutdown(shutdownCtx); err != nil {
		a.log.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}
	return runErr
}

// Close освобождает ресурсы в обратном порядке создания
func (a *App) Close() error {
	var errs []error

	if a.forwarder != nil {
		a.forwarder.Close()
	}
	if a.busMetrics != nil {
		a.busMetrics.Stop()
	}
	if a.logSub != nil {
		a.logSub.Unsubscribe()
	}
	if a.bus != nil {
		errs = append(errs, a.bus.Close())
	}
	if closer, ok := a.positions.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if a.chunks != nil {
		errs = append(errs, a.chunks.Close())
	}
	if a.codec != nil {
		a.codec.Close()
	}
	return errors.Join(errs...)
}
