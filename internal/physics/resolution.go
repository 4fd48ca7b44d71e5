package physics

import (
	"github.com/annel0/voxel-core/internal/shape"
)

// Resolution: вид коррекции, выбранный для одного блока на одной оси
type Resolution uint8

const (
	ResolutionNone         Resolution = iota
	ResolutionCeiling                 // Удар головой, сдвиг вниз
	ResolutionFloor                   // Приземление, сдвиг вверх
	ResolutionWallPositive            // Стена при движении в +оси, сдвиг назад
	ResolutionWallNegative            // Стена при движении в -оси, сдвиг вперёд
	ResolutionStep                    // Автоподъём на ступеньку
	ResolutionRest                    // Касание опоры без проникновения
)

var resolutionNames = [...]string{
	ResolutionNone:         "none",
	ResolutionCeiling:      "ceiling",
	ResolutionFloor:        "floor",
	ResolutionWallPositive: "wall_positive",
	ResolutionWallNegative: "wall_negative",
	ResolutionStep:         "step",
	ResolutionRest:         "rest",
}

// String возвращает имя коррекции; используется как метка метрик
func (r Resolution) String() string {
	if int(r) < len(resolutionNames) {
		return resolutionNames[r]
	}
	return "unknown"
}

// classifyVertical решает, что делать с блоком на оси Y.
// Возвращает коррекцию и глубину проникновения.
func classifyVertical(box, blockBox shape.AABB, dy float64) (Resolution, float64) {
	if box.OverlapsXZ(blockBox) && box.Min().Y == blockBox.Max().Y {
		return ResolutionRest, 0
	}
	if !box.Intersects(blockBox) {
		return ResolutionNone, 0
	}

	depth := box.Intersection(blockBox).Size.Y
	if depth <= 0 || depth == blockBox.Size.Y {
		// Блок целиком внутри среза актёра, им займётся горизонтальный проход
		return ResolutionNone, 0
	}

	if dy > 0 {
		return ResolutionCeiling, depth
	}
	return ResolutionFloor, depth
}

// classifyHorizontal решает, что делать с блоком на горизонтальной оси.
// axis: 0 для X, 2 для Z.
func classifyHorizontal(box, blockBox shape.AABB, axis int, delta float64) (Resolution, float64) {
	if delta == 0 || !box.Intersects(blockBox) {
		return ResolutionNone, 0
	}

	inter := box.Intersection(blockBox)
	if inter.IsAnyZero() {
		return ResolutionNone, 0
	}

	depth := inter.Size.X
	if axis == axisZ {
		depth = inter.Size.Z
	}

	if delta > 0 {
		return ResolutionWallPositive, depth
	}
	return ResolutionWallNegative, depth
}
