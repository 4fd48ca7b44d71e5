package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/physics"
	"github.com/annel0/voxel-core/internal/world"
)

const namespace = "voxel"

// Exporter держит собственный реестр Prometheus с метриками мира и физики.
// Метрики:
//   - voxel_block_mutations_total{mutation}
//   - voxel_physics_resolutions_total{resolution}
//   - voxel_tick_duration_seconds
//   - voxel_players_online, voxel_chunks_loaded
//   - voxel_sections_saved_total
type Exporter struct {
	registry *prometheus.Registry
	server   *http.Server

	mutations     *prometheus.CounterVec
	resolutions   *prometheus.CounterVec
	tickDuration  prometheus.Histogram
	players       prometheus.Gauge
	chunks        prometheus.Gauge
	sectionsSaved prometheus.Counter
}

// NewExporter создаёт реестр и регистрирует в нём метрики процесса и мира
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_mutations_total",
			Help:      "Изменения слотов секций по веткам автомата.",
		}, []string{"mutation"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "physics_resolutions_total",
			Help:      "Применённые коррекции столкновений.",
		}, []string{"resolution"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Длительность одного тика симуляции.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players_online",
			Help:      "Игроки в симуляции.",
		}),
		chunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks_loaded",
			Help:      "Чанки в памяти.",
		}),
		sectionsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sections_saved_total",
			Help:      "Секции, записанные в хранилище.",
		}),
	}

	e.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		e.mutations, e.resolutions, e.tickDuration, e.players, e.chunks, e.sectionsSaved,
	)
	return e
}

// Registry возвращает реестр для сторонних метрик (шина событий, HTTP)
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// ObserveMutation учитывает изменение блока; MutationNone не считается
func (e *Exporter) ObserveMutation(m world.Mutation) {
	if m == world.MutationNone {
		return
	}
	e.mutations.WithLabelValues(m.String()).Inc()
}

// BlockListener возвращает слушатель для ChunkMap.OnBlockChanged
func (e *Exporter) BlockListener() world.ChangeListener {
	return func(change world.BlockChange) {
		e.ObserveMutation(change.Mutation)
	}
}

// ObserveResolutions учитывает все коррекции одного вызова Resolve
func (e *Exporter) ObserveResolutions(result physics.Result) {
	for _, r := range result.Applied {
		e.resolutions.WithLabelValues(r.String()).Inc()
	}
}

func (e *Exporter) ObserveTick(d time.Duration) { e.tickDuration.Observe(d.Seconds()) }
func (e *Exporter) SetPlayers(n int)            { e.players.Set(float64(n)) }
func (e *Exporter) SetLoadedChunks(n int)       { e.chunks.Set(float64(n)) }
func (e *Exporter) AddSavedSections(n int)      { e.sectionsSaved.Add(float64(n)) }

// Handler отдаёт метрики реестра в текстовом формате
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

// StartHTTP запускает эндпоинт /metrics на addr (например, ":2112").
// Метод неблокирующий: HTTP-сервер стартует в отдельной горутине.
func (e *Exporter) StartHTTP(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	e.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logging.LogInfo("📈 Prometheus /metrics доступен по адресу %s", addr)
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.LogError("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
}

// Shutdown останавливает HTTP-сервер метрик, если он запущен
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e.server == nil {
		return nil
	}
	return e.server.Shutdown(ctx)
}
