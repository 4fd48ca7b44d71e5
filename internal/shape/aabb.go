package shape

import "github.com/annel0/voxel-core/internal/vec"

// AABB: ограничивающий параллелепипед, выровненный по осям.
// Задаётся центром и размером, а не парой min/max.
type AABB struct {
	Center vec.Vec3Float
	Size   vec.Vec3Float
}

// NewAABB создаёт параллелепипед по центру и размеру
func NewAABB(center, size vec.Vec3Float) AABB {
	return AABB{Center: center, Size: size}
}

// FromMinMax создаёт параллелепипед по двум углам
func FromMinMax(min, max vec.Vec3Float) AABB {
	size := max.Sub(min)
	return AABB{Center: min.Add(size.Mul(0.5)), Size: size}
}

// Min возвращает минимальный угол
func (b AABB) Min() vec.Vec3Float {
	return b.Center.Sub(b.Size.Mul(0.5))
}

// Max возвращает максимальный угол
func (b AABB) Max() vec.Vec3Float {
	return b.Center.Add(b.Size.Mul(0.5))
}

// Translate возвращает копию, сдвинутую на offset
func (b AABB) Translate(offset vec.Vec3Float) AABB {
	return AABB{Center: b.Center.Add(offset), Size: b.Size}
}

// Intersects проверяет строгое пересечение: касание гранями пересечением не считается.
// Вырожденная коробка (нулевой размер хотя бы по одной оси) ни с чем не пересекается.
func (b AABB) Intersects(other AABB) bool {
	if b.IsAnyZero() || other.IsAnyZero() {
		return false
	}

	min, max := b.Min(), b.Max()
	oMin, oMax := other.Min(), other.Max()

	return (min.X < oMax.X && max.X > oMin.X) &&
		(min.Y < oMax.Y && max.Y > oMin.Y) &&
		(min.Z < oMax.Z && max.Z > oMin.Z)
}

// OverlapsXZ проверяет строгое перекрытие проекций на плоскость XZ
func (b AABB) OverlapsXZ(other AABB) bool {
	min, max := b.Min(), b.Max()
	oMin, oMax := other.Min(), other.Max()

	return (min.X < oMax.X && max.X > oMin.X) &&
		(min.Z < oMax.Z && max.Z > oMin.Z)
}

// Intersection строит параллелепипед пересечения двух коробок.
// Начало берётся как максимум минимумов, размер равен меньшему максимум минус начало.
// Для непересекающихся коробок размер по какой-то оси будет нулевым или отрицательным.
func (b AABB) Intersection(other AABB) AABB {
	aMin, aMax := b.Min(), b.Max()
	bMin, bMax := other.Min(), other.Max()

	iMin := vec.Vec3Float{
		X: max(aMin.X, bMin.X),
		Y: max(aMin.Y, bMin.Y),
		Z: max(aMin.Z, bMin.Z),
	}

	iSize := vec.Vec3Float{
		X: min(aMax.X, bMax.X) - iMin.X,
		Y: min(aMax.Y, bMax.Y) - iMin.Y,
		Z: min(aMax.Z, bMax.Z) - iMin.Z,
	}

	return AABB{Center: iMin.Add(iSize.Mul(0.5)), Size: iSize}
}

// IsAnyZero возвращает true, если размер хотя бы по одной оси равен нулю
func (b AABB) IsAnyZero() bool {
	return b.Size.X == 0 || b.Size.Y == 0 || b.Size.Z == 0
}

// IsAllZero возвращает true, если размер нулевой по всем осям
func (b AABB) IsAllZero() bool {
	return b.Size.X == 0 && b.Size.Y == 0 && b.Size.Z == 0
}
