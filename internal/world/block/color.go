package block

// Color хранит RGB цвет в диапазоне 0..1
type Color struct {
	R, G, B float64
}

// RGB8 создаёт цвет из 8-битных компонент
func RGB8(r, g, b uint8) Color {
	return Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
}

// Gray создаёт серый цвет заданной яркости
func Gray(v float64) Color {
	return Color{R: v, G: v, B: v}
}

// Палитра блоков
var (
	White        = Color{R: 1, G: 1, B: 1}
	GrassColor   = RGB8(54, 185, 41)
	GrassMix     = RGB8(185, 210, 57)
	StoneColor   = RGB8(134, 134, 134)
	BedrockColor = RGB8(33, 33, 33)
)

// Scale умножает все компоненты на k
func (c Color) Scale(k float64) Color {
	return Color{R: c.R * k, G: c.G * k, B: c.B * k}
}

// Lerp интерполирует от c к other: при t=0 возвращает c, при t=1 other
func (c Color) Lerp(other Color, t float64) Color {
	return Color{
		R: c.R + (other.R-c.R)*t,
		G: c.G + (other.G-c.G)*t,
		B: c.B + (other.B-c.B)*t,
	}
}

// RGB8 возвращает цвет в 8-битных компонентах с насыщением
func (c Color) RGB8() (uint8, uint8, uint8) {
	return toByte(c.R), toByte(c.G), toByte(c.B)
}

func toByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255.0 + 0.5)
	}
}
