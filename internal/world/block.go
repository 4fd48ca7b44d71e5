package world

import (
	"github.com/annel0/voxel-core/internal/shape"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world/block"
)

// Block представляет собой занятую ячейку секции.
// Экземпляр Block в секции никогда не бывает воздухом.
type Block struct {
	ID      block.BlockID // Идентификатор типа блока
	Color   block.Color   // Цвет блока (0..1)
	Local   vec.Vec3      // Локальные координаты внутри секции
	Section vec.Vec3      // Координаты секции-владельца
}

// GetBehavior возвращает поведение для блока
func (b Block) GetBehavior() (block.BlockBehavior, bool) {
	return block.Get(b.ID)
}

// IsCollidable возвращает true, если блок участвует в столкновениях
func (b Block) IsCollidable() bool {
	return block.IsCollidable(b.ID)
}

// WorldCoordinate возвращает целочисленные мировые координаты блока
func (b Block) WorldCoordinate() vec.Vec3 {
	return vec.Vec3{
		X: b.Local.X + b.Section.X*SectionWidth,
		Y: b.Local.Y + b.Section.Y*SectionHeight,
		Z: b.Local.Z + b.Section.Z*SectionLength,
	}
}

// WorldPosition возвращает центр блока в мировом пространстве
func (b Block) WorldPosition() vec.Vec3Float {
	return b.WorldCoordinate().ToFloat().Add(vec.Vec3Float{X: 0.5, Y: 0.5, Z: 0.5})
}

// BoundingBox возвращает единичный куб с центром в позиции блока
func (b Block) BoundingBox() shape.AABB {
	return shape.NewAABB(b.WorldPosition(), vec.Vec3Float{X: 1, Y: 1, Z: 1})
}
