package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world"
)

// Типы событий мира
const (
	EventBlockChanged = "BlockChanged"
	EventChunkSaved   = "ChunkSaved"
)

// BlockChangedPayload: JSON-представление изменения блока
type BlockChangedPayload struct {
	Position vec.Vec3 `json:"position"`
	Chunk    vec.Vec2 `json:"chunk"`
	Previous string   `json:"previous"`
	Current  string   `json:"current"`
	Mutation string   `json:"mutation"`
}

// ChunkSavedPayload сообщает, сколько секций чанка записано в хранилище
type ChunkSavedPayload struct {
	Chunk    vec.Vec2 `json:"chunk"`
	Sections int      `json:"sections"`
}

// NewEnvelope собирает конверт с новым UUID и JSON-нагрузкой
func NewEnvelope(source, eventType string, priority int, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("сериализация %s: %w", eventType, err)
	}

	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Priority:  priority,
		Payload:   data,
	}, nil
}

// NewBlockChangedEnvelope оборачивает изменение блока в конверт
func NewBlockChangedEnvelope(source string, change world.BlockChange) (*Envelope, error) {
	return NewEnvelope(source, EventBlockChanged, 3, BlockChangedPayload{
		Position: change.Position,
		Chunk:    change.Chunk,
		Previous: change.Previous.String(),
		Current:  change.Current.String(),
		Mutation: change.Mutation.String(),
	})
}

// DecodeBlockChanged читает нагрузку события BlockChanged
func DecodeBlockChanged(ev *Envelope) (BlockChangedPayload, error) {
	var payload BlockChangedPayload
	if ev.EventType != EventBlockChanged {
		return payload, fmt.Errorf("ожидалось %s, получено %s", EventBlockChanged, ev.EventType)
	}
	err := json.Unmarshal(ev.Payload, &payload)
	return payload, err
}

// BlockChangeForwarder пересылает изменения блоков из ChunkMap в шину.
// Слушатель ChunkMap только кладёт изменение в очередь, публикует отдельная горутина.
type BlockChangeForwarder struct {
	bus     EventBus
	source  string
	queue   chan world.BlockChange
	dropped uint64
	wg      sync.WaitGroup
	once    sync.Once
}

// NewBlockChangeForwarder создаёт пересыльщик с очередью указанной ёмкости и запускает его
func NewBlockChangeForwarder(bus EventBus, source string, capacity int) *BlockChangeForwarder {
	f := &BlockChangeForwarder{
		bus:    bus,
		source: source,
		queue:  make(chan world.BlockChange, max(capacity, 1)),
	}
	f.wg.Add(1)
	go f.run()
	return f
}

// Listener возвращает функцию для ChunkMap.OnBlockChanged
func (f *BlockChangeForwarder) Listener() world.ChangeListener {
	return func(change world.BlockChange) {
		select {
		case f.queue <- change:
		default:
			atomic.AddUint64(&f.dropped, 1)
		}
	}
}

// Dropped возвращает число изменений, не поместившихся в очередь
func (f *BlockChangeForwarder) Dropped() uint64 {
	return atomic.LoadUint64(&f.dropped)
}

// Close публикует остаток очереди и останавливает горутину.
// После Close слушатель вызывать нельзя.
func (f *BlockChangeForwarder) Close() {
	f.once.Do(func() {
		close(f.queue)
		f.wg.Wait()
	})
}

func (f *BlockChangeForwarder) run() {
	defer f.wg.Done()
	log := logging.GetEventsLogger()

	for change := range f.queue {
		ev, err := NewBlockChangedEnvelope(f.source, change)
		if err != nil {
			log.Error("❌ %v", err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := f.bus.Publish(ctx, ev); err != nil {
			log.Warn("⚠️ Не удалось опубликовать изменение блока %v: %v", change.Position, err)
		}
		cancel()
	}
}
