package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/voxel-core/internal/entity"
	"github.com/annel0/voxel-core/internal/eventbus"
	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/metrics"
	"github.com/annel0/voxel-core/internal/physics"
	"github.com/annel0/voxel-core/internal/storage"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world"
)

// ErrPlayerNotFound возвращается для неизвестного ID игрока
var ErrPlayerNotFound = errors.New("игрок не найден")

// DefaultJumpForce: начальная сила прыжка игрока
var DefaultJumpForce = vec.Vec3Float{Y: 1.25}

// Options собирает зависимости симуляции. Обязательны только World и Generator.
type Options struct {
	World        *world.ChunkMap
	Generator    *world.Generator
	Engine       *physics.Engine
	Chunks       *storage.ChunkStore  // nil: мир не сохраняется
	Positions    storage.PositionRepo // nil: позиции игроков не сохраняются
	Metrics      *metrics.Exporter    // nil: без метрик
	Bus          eventbus.EventBus    // nil: без событий о сохранении
	TickInterval time.Duration        // По умолчанию 50ms
	SaveInterval time.Duration        // 0: только при остановке
	Spawn        vec.Vec3Float        // Y игнорируется, берётся высота поверхности
	ViewDistance int                  // Радиус чанков вокруг игрока
}

// Stats: сводка состояния симуляции для API
type Stats struct {
	Tick         uint64        `json:"tick"`
	Players      int           `json:"players"`
	LoadedChunks int           `json:"loaded_chunks"`
	LastTick     time.Duration `json:"last_tick_ns"`
	LastSave     time.Time     `json:"last_save"`
}

// Simulation двигает игроков по миру тиками фиксированной длины.
// Физика игроков меняется только под mu, поэтому API читает снимки без гонок.
type Simulation struct {
	world     *world.ChunkMap
	generator *world.Generator
	engine    *physics.Engine
	chunks    *storage.ChunkStore
	positions storage.PositionRepo
	metrics   *metrics.Exporter
	bus       eventbus.EventBus
	log       *logging.Logger
	physLog   *logging.Logger

	tickInterval time.Duration
	saveInterval time.Duration
	spawn        vec.Vec3Float
	viewDistance int

	mu       sync.Mutex
	players  *entity.Manager
	walk     map[uuid.UUID]vec.Vec3Float // Скорость ходьбы, блоков в секунду
	tick     uint64
	lastTick time.Duration
	lastSave time.Time

	saveMu sync.Mutex
}

// New создаёт симуляцию
func New(opts Options) *Simulation {
	if opts.Engine == nil {
		opts.Engine = physics.NewEngine(physics.DefaultConfig())
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 50 * time.Millisecond
	}

	return &Simulation{
		world:        opts.World,
		generator:    opts.Generator,
		engine:       opts.Engine,
		chunks:       opts.Chunks,
		positions:    opts.Positions,
		metrics:      opts.Metrics,
		bus:          opts.Bus,
		log:          logging.GetWorldLogger(),
		physLog:      logging.GetPhysicsLogger(),
		tickInterval: opts.TickInterval,
		saveInterval: opts.SaveInterval,
		spawn:        opts.Spawn,
		viewDistance: max(opts.ViewDistance, 0),
		players:      entity.NewManager(),
		walk:         make(map[uuid.UUID]vec.Vec3Float),
	}
}

// World возвращает карту чанков
func (s *Simulation) World() *world.ChunkMap {
	return s.world
}

// EnsureChunk возвращает загруженный чанк или генерирует его и накладывает сохранённые секции.
// Чанк публикуется в карте только полностью собранным.
func (s *Simulation) EnsureChunk(ctx context.Context, coords vec.Vec2) (*world.Chunk, error) {
	if c, ok := s.world.Chunk(coords); ok {
		return c, nil
	}

	c, err := s.generator.GenerateChunk(coords)
	if err != nil {
		return nil, err
	}

	if s.chunks != nil {
		loaded, err := s.chunks.LoadChunk(ctx, c)
		if err != nil {
			return nil, err
		}
		if loaded > 0 {
			s.log.Debug("💾 Чанк (%d,%d): восстановлено секций: %d", coords.X, coords.Z, loaded)
		}
	}

	s.world.AddChunk(c)
	if s.metrics != nil {
		s.metrics.SetLoadedChunks(s.world.Len())
	}
	return c, nil
}

// LoadArea загружает квадрат чанков радиуса radius вокруг center и возвращает число новых
func (s *Simulation) LoadArea(ctx context.Context, center vec.Vec2, radius int) (int, error) {
	loaded := 0
	for x := center.X - radius; x <= center.X+radius; x++ {
		for z := center.Z - radius; z <= center.Z+radius; z++ {
			coords := vec.Vec2{X: x, Z: z}
			if _, ok := s.world.Chunk(coords); ok {
				continue
			}
			if _, err := s.EnsureChunk(ctx, coords); err != nil {
				return loaded, err
			}
			loaded++
		}
	}
	return loaded, nil
}

// SpawnPlayer добавляет игрока. Сохранённая позиция имеет приоритет над точкой появления.
func (s *Simulation) SpawnPlayer(ctx context.Context, id uuid.UUID, name string) (entity.PlayerState, error) {
	if id == uuid.Nil {
		id = uuid.New()
	}

	pos, found := s.spawn, false
	if s.positions != nil {
		saved, ok, err := s.positions.Load(ctx, id)
		if err != nil {
			return entity.PlayerState{}, fmt.Errorf("загрузка позиции игрока %s: %w", id, err)
		}
		pos, found = saved, ok
		if !found {
			pos = s.spawn
		}
	}

	column := vec.Vec3Float{X: pos.X, Z: pos.Z}.Floor()
	if _, err := s.LoadArea(ctx, vec.Vec2{X: column.X, Z: column.Z}.ToChunkCoords(), s.viewDistance); err != nil {
		return entity.PlayerState{}, err
	}
	if !found {
		pos.Y = float64(s.world.TopY(column.X, column.Z) + 1)
	}

	p := entity.NewPlayer(name, pos)
	p.ID = id

	s.mu.Lock()
	s.engine.CheckFalling(p, s.collidablesNear(pos))
	s.players.Add(p)
	state := p.Snapshot()
	count := s.players.Count()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SetPlayers(count)
	}
	s.log.Info("🧍 Игрок %s (%s) появился в (%.2f, %.2f, %.2f)", name, id, pos.X, pos.Y, pos.Z)
	return state, nil
}

// RemovePlayer сохраняет позицию игрока и убирает его из симуляции
func (s *Simulation) RemovePlayer(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	p, ok := s.players.Get(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	pos := p.Position()
	s.players.Remove(id)
	delete(s.walk, id)
	count := s.players.Count()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SetPlayers(count)
	}
	if s.positions != nil {
		if err := s.positions.Save(ctx, id, pos); err != nil {
			return fmt.Errorf("сохранение позиции игрока %s: %w", id, err)
		}
	}
	return nil
}

// SetWalk задаёт горизонтальную скорость игрока в блоках в секунду. Y игнорируется.
func (s *Simulation) SetWalk(id uuid.UUID, velocity vec.Vec3Float) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	velocity.Y = 0
	if velocity.IsZero() {
		delete(s.walk, id)
		return nil
	}
	s.walk[id] = velocity
	return nil
}

// Jump начинает прыжок игрока. false — игрок не стоит на земле.
func (s *Simulation) Jump(id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players.Get(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	return p.Jump(DefaultJumpForce), nil
}

// SetFlying включает или выключает полёт игрока
func (s *Simulation) SetFlying(id uuid.UUID, flying bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	p.SetFlying(flying)
	return nil
}

// Player возвращает снимок состояния игрока
func (s *Simulation) Player(id uuid.UUID) (entity.PlayerState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players.Get(id)
	if !ok {
		return entity.PlayerState{}, false
	}
	return p.Snapshot(), true
}

// Players возвращает снимки всех игроков, упорядоченные по имени
func (s *Simulation) Players() []entity.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.players.All()
	result := make([]entity.PlayerState, 0, len(all))
	for _, p := range all {
		result = append(result, p.Snapshot())
	}
	return result
}

// Stats возвращает сводку симуляции
func (s *Simulation) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Tick:         s.tick,
		Players:      s.players.Count(),
		LoadedChunks: s.world.Len(),
		LastTick:     s.lastTick,
		LastSave:     s.lastSave,
	}
}

// Step продвигает симуляцию на dt секунд
func (s *Simulation) Step(dt float64) {
	start := time.Now()

	s.mu.Lock()
	for _, p := range s.players.All() {
		s.stepPlayer(p, dt)
	}
	s.tick++
	s.lastTick = time.Since(start)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveTick(time.Since(start))
	}
}

// stepPlayer: ввод, прыжок или гравитация, разрешение столкновений, фиксация, проверка опоры
func (s *Simulation) stepPlayer(p *entity.Player, dt float64) {
	from := p.Position()
	p.SetNextPosition(from.Add(s.walk[p.ID].Mul(dt)))

	if p.IsFlying() {
		p.Commit()
		p.Tick(dt)
		return
	}

	s.engine.UpdateJumpForce(p, dt)
	if !p.IsJumping() {
		s.engine.ApplyGravity(p, dt)
	}

	result := s.engine.Resolve(p, s.collidablesNear(p.NextPosition()))
	if s.metrics != nil {
		s.metrics.ObserveResolutions(result)
	}
	p.Commit()
	if result.Has(physics.ResolutionStep) {
		s.physLog.Debug("🪜 %s поднялся на ступеньку, Y=%.2f", p.Name, p.Position().Y)
	}

	if !p.IsJumping() {
		s.engine.CheckFalling(p, s.collidablesNear(p.Position()))
	}
	p.Tick(dt)

	to := p.Position()
	if to != from {
		logging.LogActorMovement(p.Name, from.X, from.Y, from.Z, to.X, to.Y, to.Z)
	}
}

func (s *Simulation) collidablesNear(pos vec.Vec3Float) []physics.Collidable {
	blocks := s.world.CollidableBlocksNear(pos)
	result := make([]physics.Collidable, len(blocks))
	for i := range blocks {
		result[i] = blocks[i]
	}
	return result
}

// StreamChunks догружает чанки в радиусе видимости вокруг каждого игрока.
// Если всё уже загружено, это только поиск по карте.
func (s *Simulation) StreamChunks(ctx context.Context) error {
	for _, p := range s.Players() {
		column := vec.Vec3Float{X: p.Position.X, Z: p.Position.Z}.Floor()
		center := vec.Vec2{X: column.X, Z: column.Z}.ToChunkCoords()
		loaded, err := s.LoadArea(ctx, center, s.viewDistance)
		if err != nil {
			return err
		}
		if loaded > 0 {
			s.log.Debug("🌍 Подгружено чанков вокруг %s: %d", p.Name, loaded)
		}
	}
	return nil
}

// Run крутит тики до отмены ctx, периодически сохраняет мир и сохраняет его при остановке
func (s *Simulation) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	var saveC <-chan time.Time
	if s.saveInterval > 0 && s.chunks != nil {
		saveTicker := time.NewTicker(s.saveInterval)
		defer saveTicker.Stop()
		saveC = saveTicker.C
	}

	s.log.Info("⏱️ Симуляция запущена: тик %s", s.tickInterval)
	dt := s.tickInterval.Seconds()

	for {
		select {
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_, err := s.Save(saveCtx)
			s.log.Info("⏹️ Симуляция остановлена на тике %d", s.Stats().Tick)
			return err
		case <-ticker.C:
			s.Step(dt)
			if err := s.StreamChunks(ctx); err != nil {
				s.log.Error("❌ Ошибка подгрузки чанков: %v", err)
			}
		case <-saveC:
			if _, err := s.Save(ctx); err != nil {
				s.log.Error("❌ Ошибка автосохранения: %v", err)
			}
		}
	}
}

// Save записывает изменённые секции всех чанков и позиции игроков.
// Возвращает число записанных секций.
func (s *Simulation) Save(ctx context.Context) (int, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	var errs []error
	total := 0

	if s.chunks != nil {
		for _, c := range s.world.Chunks() {
			saved, err := s.chunks.SaveChunk(ctx, c)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if saved == 0 {
				continue
			}
			total += saved
			s.publishChunkSaved(ctx, c.Coords, saved)
		}
	}

	if s.positions != nil {
		positions := make(map[uuid.UUID]vec.Vec3Float)
		s.mu.Lock()
		for _, p := range s.players.All() {
			positions[p.ID] = p.Position()
		}
		s.mu.Unlock()

		if err := s.positions.BatchSave(ctx, positions); err != nil {
			errs = append(errs, fmt.Errorf("сохранение позиций: %w", err))
		}
	}

	s.mu.Lock()
	s.lastSave = time.Now()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.AddSavedSections(total)
	}
	if total > 0 {
		s.log.Info("💾 Сохранено секций: %d", total)
	}
	return total, errors.Join(errs...)
}

func (s *Simulation) publishChunkSaved(ctx context.Context, coords vec.Vec2, sections int) {
	if s.bus == nil {
		return
	}

	ev, err := eventbus.NewEnvelope("voxel-core", eventbus.EventChunkSaved, 1, eventbus.ChunkSavedPayload{
		Chunk:    coords,
		Sections: sections,
	})
	if err == nil {
		err = s.bus.Publish(ctx, ev)
	}
	if err != nil {
		s.log.Warn("⚠️ Событие сохранения чанка (%d,%d) не отправлено: %v", coords.X, coords.Z, err)
	}
}
