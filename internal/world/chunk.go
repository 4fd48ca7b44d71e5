package world

import (
	"sort"
	"sync"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world/block"
)

// Размеры столбца чанка
const (
	SectionsPerChunk = 16
	ChunkHeight      = SectionsPerChunk * SectionHeight
)

// Chunk представляет столбец мира 16xNx16, собранный из секций
type Chunk struct {
	Coords        vec.Vec2      // Координаты чанка в мире
	WorldPosition vec.Vec3Float // Центр столбца на плоскости XZ, Y = 0

	sections [SectionsPerChunk]*Section
	changes  map[int]struct{} // Индексы секций, изменённых с последнего сохранения

	ChangeCounter int          // Счетчик изменений
	Mu            sync.RWMutex // Мьютекс для безопасного доступа
}

// NewChunk создаёт пустой чанк с указанными координатами
func NewChunk(coords vec.Vec2) *Chunk {
	return &Chunk{
		Coords:        coords,
		WorldPosition: ChunkWorldPosition(coords),
		changes:       make(map[int]struct{}),
	}
}

// ChunkWorldPosition возвращает центр столбца чанка на плоскости XZ
func ChunkWorldPosition(coords vec.Vec2) vec.Vec3Float {
	return vec.Vec3Float{
		X: float64(coords.X*SectionWidth) + float64(SectionWidth)/2,
		Z: float64(coords.Z*SectionLength) + float64(SectionLength)/2,
	}
}

// SectionPosition возвращает координаты секции с индексом y в этом столбце
func (c *Chunk) SectionPosition(y int) vec.Vec3 {
	return vec.Vec3{X: c.Coords.X, Y: y, Z: c.Coords.Z}
}

// Section возвращает секцию с индексом y или nil, если она не выделена
func (c *Chunk) Section(y int) *Section {
	if y < 0 || y >= SectionsPerChunk {
		return nil
	}
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.sections[y]
}

// PutSection устанавливает готовую секцию. Пустые секции не хранятся.
func (c *Chunk) PutSection(s *Section) {
	if s == nil || s.Position.Y < 0 || s.Position.Y >= SectionsPerChunk {
		return
	}
	c.Mu.Lock()
	defer c.Mu.Unlock()

	if s.IsEmpty() {
		c.sections[s.Position.Y] = nil
		return
	}
	c.sections[s.Position.Y] = s
}

// GetBlock возвращает блок по локальным X/Z и мировой Y
func (c *Chunk) GetBlock(x, y, z int) (Block, bool) {
	if y < 0 || y >= ChunkHeight {
		return Block{}, false
	}

	c.Mu.RLock()
	defer c.Mu.RUnlock()

	s := c.sections[y/SectionHeight]
	if s == nil {
		return Block{}, false
	}
	return s.GetBlockAt(x, y%SectionHeight, z)
}

// SetBlock изменяет блок по локальным X/Z и мировой Y.
// Недостающая секция создаётся, опустевшая освобождается.
// Возвращает мутацию и ID блока, который был в слоте до изменения.
func (c *Chunk) SetBlock(x, y, z int, id block.BlockID, color block.Color, overwrite bool) (Mutation, block.BlockID) {
	if y < 0 || y >= ChunkHeight || !InBounds(x, 0, z) {
		return MutationNone, block.AirBlockID
	}

	c.Mu.Lock()
	defer c.Mu.Unlock()

	sy := y / SectionHeight
	s := c.sections[sy]
	if s == nil {
		if id == block.AirBlockID {
			return MutationNone, block.AirBlockID
		}
		s = NewEmptySection(c.SectionPosition(sy), c.WorldPosition)
		c.sections[sy] = s
	}

	previous := block.AirBlockID
	if b, ok := s.GetBlockAt(x, y%SectionHeight, z); ok {
		previous = b.ID
	}

	mutation := s.SetBlockAt(x, y%SectionHeight, z, id, color, overwrite)
	if mutation == MutationNone {
		return mutation, previous
	}

	if s.IsEmpty() {
		c.sections[sy] = nil
	}
	c.changes[sy] = struct{}{}
	c.ChangeCounter++

	return mutation, previous
}

// TopY возвращает наибольшую занятую мировую высоту столбца или -1
func (c *Chunk) TopY(x, z int) int {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	for sy := SectionsPerChunk - 1; sy >= 0; sy-- {
		s := c.sections[sy]
		if s == nil {
			continue
		}
		if local := s.LocalTopY(x, z); local >= 0 {
			return sy*SectionHeight + local
		}
	}
	return -1
}

// NonAirBlockSize возвращает суммарное число блоков в столбце
func (c *Chunk) NonAirBlockSize() int {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	total := 0
	for _, s := range c.sections {
		if s != nil {
			total += s.NonAirBlockSize()
		}
	}
	return total
}

// SectionCount возвращает число выделенных секций
func (c *Chunk) SectionCount() int {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	count := 0
	for _, s := range c.sections {
		if s != nil {
			count++
		}
	}
	return count
}

// ForEachSection вызывает fn для каждой выделенной секции снизу вверх
func (c *Chunk) ForEachSection(fn func(s *Section)) {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	for _, s := range c.sections {
		if s != nil {
			fn(s)
		}
	}
}

// ChangedSections возвращает отсортированные индексы изменённых секций
func (c *Chunk) ChangedSections() []int {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	result := make([]int, 0, len(c.changes))
	for sy := range c.changes {
		result = append(result, sy)
	}
	sort.Ints(result)
	return result
}

// ClearChanges очищает список изменений после сохранения
func (c *Chunk) ClearChanges() {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	c.changes = make(map[int]struct{})
	c.ChangeCounter = 0
}

// SectionBlocks копирует блоки секции y под блокировкой чанка.
// false означает, что секция не выделена.
func (c *Chunk) SectionBlocks(y int) ([]Block, bool) {
	if y < 0 || y >= SectionsPerChunk {
		return nil, false
	}

	c.Mu.RLock()
	defer c.Mu.RUnlock()

	s := c.sections[y]
	if s == nil {
		return nil, false
	}

	result := make([]Block, 0, s.NonAirBlockSize())
	s.ForEachBlock(func(_ int, b Block) bool {
		result = append(result, b)
		return true
	})
	return result, true
}
