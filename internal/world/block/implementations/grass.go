package implementations

import "github.com/annel0/voxel-core/internal/world/block"

// GrassBehavior описывает блок травы
type GrassBehavior struct{}

// ID возвращает идентификатор блока
func (b *GrassBehavior) ID() block.BlockID {
	return block.GrassBlockID
}

// Name возвращает имя блока
func (b *GrassBehavior) Name() string {
	return "Grass"
}

// DefaultColor возвращает цвет по умолчанию
func (b *GrassBehavior) DefaultColor() block.Color {
	return block.GrassColor
}

func (b *GrassBehavior) IsCollidable() bool {
	return true
}

func (b *GrassBehavior) IsTransparent() bool {
	return false
}
