package world

import (
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world/block"
	_ "github.com/annel0/voxel-core/internal/world/block/implementations"
)

// Размеры секции в блоках
const (
	SectionWidth  = 16 // X
	SectionLength = 16 // Z
	SectionHeight = 16 // Y

	SectionVolume = SectionWidth * SectionLength * SectionHeight
)

// Mutation описывает, что произошло со слотом после SetBlockAt
type Mutation uint8

const (
	MutationNone        Mutation = iota // Слот не изменился
	MutationPlaced                      // Пустой слот занят новым блоком
	MutationRemoved                     // Блок удалён, слот пуст
	MutationOverwritten                 // Блок заменён другим
)

// String возвращает строковое представление мутации
func (m Mutation) String() string {
	switch m {
	case MutationNone:
		return "none"
	case MutationPlaced:
		return "placed"
	case MutationRemoved:
		return "removed"
	case MutationOverwritten:
		return "overwritten"
	default:
		return "unknown"
	}
}

// slot хранит блок по значению и флаг присутствия
type slot struct {
	present bool
	block   Block
}

// Section: кубическая часть столбца чанка 16x16x16.
// Все записи в слоты идут только через SetBlockAt, поэтому nonAirBlockSize
// всегда равен числу занятых слотов.
type Section struct {
	Position      vec.Vec3      // x,z: столбец чанка, y: индекс в стопке
	WorldPosition vec.Vec3Float // Центр секции в мире (Y вычисляется из Position.Y)

	slots           []slot
	nonAirBlockSize int
}

// NewEmptySection создаёт пустую секцию
func NewEmptySection(position vec.Vec3, chunkWorldPosition vec.Vec3Float) *Section {
	worldPos := chunkWorldPosition
	worldPos.Y = (float64(position.Y) + 0.5) * float64(SectionHeight)

	return &Section{
		Position:      position,
		WorldPosition: worldPos,
		slots:         make([]slot, SectionVolume),
	}
}

// LocalIndex переводит локальные координаты в линейный индекс: x быстрее всего, затем z, затем y
func LocalIndex(x, y, z int) int {
	return x + SectionWidth*z + y*SectionWidth*SectionLength
}

// MapIndex переводит координаты столбца в индекс двумерной карты
func MapIndex(x, z int) int {
	return x + SectionWidth*z
}

// IndexToLocal выполняет обратное к LocalIndex преобразование
func IndexToLocal(index int) (x, y, z int) {
	x = index % SectionWidth
	z = (index / SectionWidth) % SectionLength
	y = index / (SectionWidth * SectionLength)
	return x, y, z
}

// InBounds проверяет, что локальные координаты лежат внутри секции
func InBounds(x, y, z int) bool {
	return x >= 0 && x < SectionWidth &&
		y >= 0 && y < SectionHeight &&
		z >= 0 && z < SectionLength
}

// GetBlockAt возвращает блок по локальным координатам.
// Вне секции и в пустом слоте возвращает false.
func (s *Section) GetBlockAt(x, y, z int) (Block, bool) {
	if !InBounds(x, y, z) {
		return Block{}, false
	}

	sl := s.slots[LocalIndex(x, y, z)]
	if !sl.present {
		return Block{}, false
	}
	return sl.block, true
}

// SetBlock устанавливает блок с цветом по умолчанию для его типа
func (s *Section) SetBlock(x, y, z int, id block.BlockID, overwrite bool) Mutation {
	return s.SetBlockAt(x, y, z, id, block.DefaultColor(id), overwrite)
}

// SetBlockAt: единственная точка изменения слотов секции.
//
//	пусто  + воздух -> ничего
//	пусто  + блок   -> новый блок, счётчик +1
//	занято + воздух -> слот очищается, счётчик -1
//	занято + блок   -> замена только при overwrite
func (s *Section) SetBlockAt(x, y, z int, id block.BlockID, color block.Color, overwrite bool) Mutation {
	if !InBounds(x, y, z) {
		return MutationNone
	}

	idx := LocalIndex(x, y, z)
	sl := &s.slots[idx]

	if !sl.present {
		if id == block.AirBlockID {
			return MutationNone
		}

		sl.present = true
		sl.block = Block{
			ID:      id,
			Color:   color,
			Local:   vec.Vec3{X: x, Y: y, Z: z},
			Section: s.Position,
		}
		s.nonAirBlockSize++
		return MutationPlaced
	}

	if id == block.AirBlockID {
		*sl = slot{}
		s.nonAirBlockSize--
		return MutationRemoved
	}

	if !overwrite {
		return MutationNone
	}

	sl.block.ID = id
	sl.block.Color = color
	return MutationOverwritten
}

// NonAirBlockSize возвращает количество занятых слотов
func (s *Section) NonAirBlockSize() int {
	return s.nonAirBlockSize
}

// IsEmpty возвращает true, если в секции не осталось блоков.
// Такую секцию владелец может освободить.
func (s *Section) IsEmpty() bool {
	return s.nonAirBlockSize == 0
}

// LocalTopY возвращает наибольшую занятую локальную высоту столбца или -1
func (s *Section) LocalTopY(x, z int) int {
	if !InBounds(x, 0, z) {
		return -1
	}

	for y := SectionHeight - 1; y >= 0; y-- {
		if s.slots[LocalIndex(x, y, z)].present {
			return y
		}
	}
	return -1
}

// ForEachBlock обходит занятые слоты в порядке линейного индекса.
// Если fn возвращает false, обход прекращается.
func (s *Section) ForEachBlock(fn func(index int, b Block) bool) {
	for i := range s.slots {
		if !s.slots[i].present {
			continue
		}
		if !fn(i, s.slots[i].block) {
			return
		}
	}
}

// CountOccupied пересчитывает занятые слоты напрямую.
// Нужен для проверки инварианта счётчика.
func (s *Section) CountOccupied() int {
	count := 0
	for i := range s.slots {
		if s.slots[i].present {
			count++
		}
	}
	return count
}
