package world

import (
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world/block"
)

// BlockChange описывает одно изменение блока в мире
type BlockChange struct {
	Position vec.Vec3      // Мировые координаты блока
	Chunk    vec.Vec2      // Координаты чанка
	Previous block.BlockID // Блок до изменения
	Current  block.BlockID // Блок после изменения
	Mutation Mutation      // Ветка автомата SetBlockAt
}

// ChangeListener получает изменения блоков после снятия блокировок карты
type ChangeListener func(change BlockChange)
