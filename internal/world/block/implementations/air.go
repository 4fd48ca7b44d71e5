package implementations

import "github.com/annel0/voxel-core/internal/world/block"

// AirBehavior описывает пустой блок (воздух).
// В секциях воздух не хранится, поведение нужно только для справочных запросов.
type AirBehavior struct{}

// ID возвращает идентификатор блока
func (b *AirBehavior) ID() block.BlockID {
	return block.AirBlockID
}

// Name возвращает имя блока
func (b *AirBehavior) Name() string {
	return "Air"
}

// DefaultColor возвращает цвет по умолчанию
func (b *AirBehavior) DefaultColor() block.Color {
	return block.White
}

// IsCollidable возвращает false, сквозь воздух можно пройти
func (b *AirBehavior) IsCollidable() bool {
	return false
}

// IsTransparent возвращает true
func (b *AirBehavior) IsTransparent() bool {
	return true
}
