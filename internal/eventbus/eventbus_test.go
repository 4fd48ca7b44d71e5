package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world"
	"github.com/annel0/voxel-core/internal/world/block"
)

// collector собирает события из обработчика
type collector struct {
	mu     sync.Mutex
	events []*Envelope
}

func (c *collector) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *collector) snapshot() []*Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Envelope(nil), c.events...)
}

func TestMemoryBusFilter(t *testing.T) {
	bus := NewMemoryBus(16)
	ctx := context.Background()

	var blocks, all collector
	_, err := bus.Subscribe(ctx, Filter{Types: []string{EventBlockChanged}}, blocks.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe(ctx, Filter{}, all.handle)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, &Envelope{ID: "1", EventType: EventBlockChanged}))
	require.NoError(t, bus.Publish(ctx, &Envelope{ID: "2", EventType: EventChunkSaved}))
	require.NoError(t, bus.Close())

	assert.Equal(t, 1, blocks.count(), "Фильтр по типу пропускает только BlockChanged")
	assert.Equal(t, 2, all.count(), "Пустой фильтр получает всё")

	stats := bus.Metrics()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Equal(t, uint64(3), stats.Consumed)
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	ctx := context.Background()

	var c collector
	sub, err := bus.Subscribe(ctx, Filter{}, c.handle)
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: EventBlockChanged}))
	require.NoError(t, bus.Close())
	assert.Equal(t, 0, c.count(), "После отписки события не приходят")
}

func TestMemoryBusClosed(t *testing.T) {
	bus := NewMemoryBus(1)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close(), "Повторное закрытие безопасно")

	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestBlockChangedEnvelope(t *testing.T) {
	change := world.BlockChange{
		Position: vec.Vec3{X: -1, Y: 40, Z: 17},
		Chunk:    vec.Vec2{X: -1, Z: 1},
		Previous: block.AirBlockID,
		Current:  block.StoneBlockID,
		Mutation: world.MutationPlaced,
	}

	ev, err := NewBlockChangedEnvelope("test", change)
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, EventBlockChanged, ev.EventType)

	payload, err := DecodeBlockChanged(ev)
	require.NoError(t, err)
	assert.Equal(t, change.Position, payload.Position)
	assert.Equal(t, change.Chunk, payload.Chunk)
	assert.Equal(t, "placed", payload.Mutation)
	assert.Equal(t, block.StoneBlockID.String(), payload.Current)

	other, err := NewBlockChangedEnvelope("test", change)
	require.NoError(t, err)
	assert.NotEqual(t, ev.ID, other.ID, "Каждый конверт получает свой UUID")

	_, err = DecodeBlockChanged(&Envelope{EventType: EventChunkSaved})
	assert.Error(t, err)
}

func TestBlockChangeForwarder(t *testing.T) {
	bus := NewMemoryBus(64)
	var c collector
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{EventBlockChanged}}, c.handle)
	require.NoError(t, err)

	m := world.NewChunkMap()
	m.AddChunk(world.NewChunk(vec.Vec2{}))

	forwarder := NewBlockChangeForwarder(bus, "test", 16)
	m.OnBlockChanged(forwarder.Listener())

	_, err = m.SetBlockAtWorld(1, 1, 1, block.StoneBlockID, block.StoneColor, false)
	require.NoError(t, err)
	_, err = m.SetBlockAtWorld(1, 1, 1, block.AirBlockID, block.White, false)
	require.NoError(t, err)
	// Повтор воздуха ничего не меняет и не публикуется
	_, err = m.SetBlockAtWorld(1, 1, 1, block.AirBlockID, block.White, false)
	require.NoError(t, err)

	forwarder.Close()
	require.NoError(t, bus.Close())

	events := c.snapshot()
	require.Len(t, events, 2)

	mutations := map[string]bool{}
	for _, ev := range events {
		payload, err := DecodeBlockChanged(ev)
		require.NoError(t, err)
		assert.Equal(t, vec.Vec3{X: 1, Y: 1, Z: 1}, payload.Position)
		mutations[payload.Mutation] = true
	}
	assert.Equal(t, map[string]bool{"placed": true, "removed": true}, mutations)
	assert.Zero(t, forwarder.Dropped())
}

func TestMetricsExporterCollect(t *testing.T) {
	bus := NewMemoryBus(8)
	reg := prometheus.NewRegistry()

	exporter, err := NewMetricsExporter(bus, reg, time.Hour)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: EventChunkSaved}))
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: EventChunkSaved}))

	prev := exporter.collect(Stats{})
	assert.Equal(t, 2.0, testutil.ToFloat64(exporter.published))

	exporter.collect(prev)
	assert.Equal(t, 2.0, testutil.ToFloat64(exporter.published), "Повторный замер без новых событий не меняет счётчик")

	_, err = NewMetricsExporter(bus, reg, time.Hour)
	assert.Error(t, err, "Повторная регистрация в том же реестре недопустима")
	require.NoError(t, bus.Close())
}
