package world

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world/block"
)

// ErrChunkNotLoaded возвращается при изменении блока в незагруженном чанке
var ErrChunkNotLoaded = errors.New("чанк не загружен")

// ChunkMap хранит загруженные чанки и отвечает на пространственные запросы физики
type ChunkMap struct {
	mu     sync.RWMutex
	chunks map[vec.Vec2]*Chunk

	listenersMu sync.RWMutex
	listeners   []ChangeListener
}

// NewChunkMap создаёт пустую карту чанков
func NewChunkMap() *ChunkMap {
	return &ChunkMap{
		chunks: make(map[vec.Vec2]*Chunk),
	}
}

// AddChunk публикует полностью построенный чанк.
// До вызова чанк не виден ни физике, ни редактированию.
func (m *ChunkMap) AddChunk(c *Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[c.Coords] = c
}

// RemoveChunk выгружает чанк и возвращает его
func (m *ChunkMap) RemoveChunk(coords vec.Vec2) (*Chunk, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chunks[coords]
	if ok {
		delete(m.chunks, coords)
	}
	return c, ok
}

// Chunk возвращает чанк по координатам
func (m *ChunkMap) Chunk(coords vec.Vec2) (*Chunk, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chunks[coords]
	return c, ok
}

// Chunks возвращает снимок списка загруженных чанков
func (m *ChunkMap) Chunks() []*Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Chunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		result = append(result, c)
	}
	return result
}

// Len возвращает количество загруженных чанков
func (m *ChunkMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// OnBlockChanged регистрирует слушателя изменений блоков
func (m *ChunkMap) OnBlockChanged(listener ChangeListener) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// GetBlockAtWorld возвращает блок по мировым координатам
func (m *ChunkMap) GetBlockAtWorld(x, y, z int) (Block, bool) {
	coords, local := splitColumn(x, z)

	m.mu.RLock()
	c, ok := m.chunks[coords]
	m.mu.RUnlock()
	if !ok {
		return Block{}, false
	}
	return c.GetBlock(local.X, y, local.Z)
}

// SetBlockAtWorld изменяет блок по мировым координатам через автомат секции
func (m *ChunkMap) SetBlockAtWorld(x, y, z int, id block.BlockID, color block.Color, overwrite bool) (Mutation, error) {
	coords, local := splitColumn(x, z)

	m.mu.RLock()
	c, ok := m.chunks[coords]
	m.mu.RUnlock()
	if !ok {
		return MutationNone, fmt.Errorf("%w: (%d,%d)", ErrChunkNotLoaded, coords.X, coords.Z)
	}

	mutation, previous := c.SetBlock(local.X, y, local.Z, id, color, overwrite)
	if mutation != MutationNone {
		m.notify(BlockChange{
			Position: vec.Vec3{X: x, Y: y, Z: z},
			Chunk:    coords,
			Previous: previous,
			Current:  currentID(mutation, previous, id),
			Mutation: mutation,
		})
	}
	return mutation, nil
}

// SectionBlocks возвращает копию блоков секции pos (x,z: чанк, y: индекс секции)
func (m *ChunkMap) SectionBlocks(pos vec.Vec3) ([]Block, bool) {
	c, ok := m.Chunk(vec.Vec2{X: pos.X, Z: pos.Z})
	if !ok {
		return nil, false
	}
	return c.SectionBlocks(pos.Y)
}

// TopY возвращает наибольшую занятую мировую высоту столбца или -1
func (m *ChunkMap) TopY(x, z int) int {
	coords, local := splitColumn(x, z)

	m.mu.RLock()
	c, ok := m.chunks[coords]
	m.mu.RUnlock()
	if !ok {
		return -1
	}
	return c.TopY(local.X, local.Z)
}

// CollidableBlocksNear собирает твёрдые блоки вокруг блока, в котором стоит актёр:
// ±1 по X и Z, от Y-1 до Y+3. Порядок не важен для физики.
func (m *ChunkMap) CollidableBlocksNear(pos vec.Vec3Float) []Block {
	standing := standingBlock(pos)

	result := make([]Block, 0, 16)
	for x := standing.X - 1; x <= standing.X+1; x++ {
		for z := standing.Z - 1; z <= standing.Z+1; z++ {
			for y := standing.Y - 1; y <= standing.Y+3; y++ {
				b, ok := m.GetBlockAtWorld(x, y, z)
				if ok && b.IsCollidable() {
					result = append(result, b)
				}
			}
		}
	}
	return result
}

func (m *ChunkMap) notify(change BlockChange) {
	m.listenersMu.RLock()
	listeners := make([]ChangeListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.listenersMu.RUnlock()

	for _, l := range listeners {
		l(change)
	}
}

// standingBlock возвращает координаты блока под ногами; ниже нуля Y не опускается
func standingBlock(pos vec.Vec3Float) vec.Vec3 {
	return vec.Vec3{
		X: int(math.Floor(pos.X)),
		Y: max(int(math.Floor(pos.Y)), 0),
		Z: int(math.Floor(pos.Z)),
	}
}

// splitColumn делит мировые X/Z на координаты чанка и локальные координаты
func splitColumn(x, z int) (vec.Vec2, vec.Vec2) {
	column := vec.Vec2{X: x, Z: z}
	return column.ToChunkCoords(), column.LocalInChunk()
}

func currentID(mutation Mutation, previous, requested block.BlockID) block.BlockID {
	switch mutation {
	case MutationRemoved:
		return block.AirBlockID
	case MutationPlaced, MutationOverwritten:
		return requested
	default:
		return previous
	}
}
