package implementations

import "github.com/annel0/voxel-core/internal/world/block"

// StoneBehavior описывает блок камня
type StoneBehavior struct{}

// ID возвращает идентификатор блока
func (b *StoneBehavior) ID() block.BlockID {
	return block.StoneBlockID
}

// Name возвращает имя блока
func (b *StoneBehavior) Name() string {
	return "Stone"
}

// DefaultColor возвращает цвет по умолчанию
func (b *StoneBehavior) DefaultColor() block.Color {
	return block.StoneColor
}

func (b *StoneBehavior) IsCollidable() bool {
	return true
}

func (b *StoneBehavior) IsTransparent() bool {
	return false
}
