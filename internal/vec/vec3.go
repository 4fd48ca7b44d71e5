package vec

// Vec3 представляет трехмерный вектор с целочисленными координатами
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Column возвращает проекцию вектора на плоскость XZ
func (v Vec3) Column() Vec2 {
	return Vec2{X: v.X, Z: v.Z}
}

// DistanceSquared возвращает квадрат расстояния до другого вектора
func (v Vec3) DistanceSquared(other Vec3) int {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Scale умножает каждую компоненту на скаляр
func (v Vec3) Scale(k int) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// ToFloat преобразует в вектор с плавающей точкой
func (v Vec3) ToFloat() Vec3Float {
	return Vec3Float{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// FloorDiv делит каждую компоненту на size с округлением вниз.
// Для отрицательных координат -1 / 16 даёт -1, а не 0.
func (v Vec3) FloorDiv(size int) Vec3 {
	return Vec3{X: floorDiv(v.X, size), Y: floorDiv(v.Y, size), Z: floorDiv(v.Z, size)}
}

// FloorMod возвращает неотрицательный остаток по каждой компоненте
func (v Vec3) FloorMod(size int) Vec3 {
	return Vec3{X: floorMod(v.X, size), Y: floorMod(v.Y, size), Z: floorMod(v.Z, size)}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
