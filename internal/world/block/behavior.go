package block

// BlockBehavior определяет свойства типа блока
type BlockBehavior interface {
	ID() BlockID
	Name() string
	// DefaultColor: цвет, который получает блок, если цвет не передан явно
	DefaultColor() Color
	IsCollidable() bool
	IsTransparent() bool
}
