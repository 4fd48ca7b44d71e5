package world

import (
	"fmt"

	"github.com/annel0/voxel-core/internal/util"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world/block"
)

// Generator строит карты высот и цветов шумом Перлина и собирает из них чанки
type Generator struct {
	Seed       int64   // Сид для генерации шума
	NoiseScale float64 // Масштаб основного шума (высота)
	ColorScale float64 // Масштаб шума оттенков
	MinTint    float64 // Минимальный множитель цвета

	height *util.Noise
	tint   *util.Noise
}

// NewGenerator создаёт новый генератор мира
func NewGenerator(seed int64) *Generator {
	return &Generator{
		Seed:       seed,
		NoiseScale: 0.02, // Настройка сглаженности ландшафта
		ColorScale: 0.05,
		MinTint:    0.85,
		height:     util.NewNoise(seed),
		tint:       util.NewNoise(seed + 42),
	}
}

// BiomeValues возвращает нормализованные значения высоты для столбцов чанка, [x][z]
func (g *Generator) BiomeValues(coords vec.Vec2) [][]float64 {
	values := newFloatMap()
	g.forEachColumn(coords, func(x, z, worldX, worldZ int) {
		values[x][z] = g.height.Noise2D(float64(worldX)*g.NoiseScale, float64(worldZ)*g.NoiseScale)
	})
	return values
}

// HeightMap возвращает мировые высоты столбцов чанка, [x][z]
func (g *Generator) HeightMap(coords vec.Vec2) [][]int {
	values := g.BiomeValues(coords)

	heights := make([][]int, SectionWidth)
	for x := range heights {
		heights[x] = make([]int, SectionLength)
		for z := range heights[x] {
			heights[x][z] = BiomeValueToHeight(values[x][z])
		}
	}
	return heights
}

// ColorMap возвращает множители цвета в диапазоне [MinTint, 1], [x][z]
func (g *Generator) ColorMap(coords vec.Vec2) [][]float64 {
	colors := newFloatMap()
	g.forEachColumn(coords, func(x, z, worldX, worldZ int) {
		n := g.tint.Noise2D(float64(worldX)*g.ColorScale, float64(worldZ)*g.ColorScale)
		colors[x][z] = g.MinTint + (1.0-g.MinTint)*n
	})
	return colors
}

// GenerateChunk собирает чанк по карте высот. Нижний слой мира из бедрока.
// Чанк строится целиком до публикации в ChunkMap.
func (g *Generator) GenerateChunk(coords vec.Vec2) (*Chunk, error) {
	chunk := NewChunk(coords)
	heights := g.HeightMap(coords)
	colors := g.ColorMap(coords)

	top := 0
	for x := range heights {
		for z := range heights[x] {
			top = max(top, heights[x][z])
		}
	}

	for sy := 0; sy*SectionHeight < top && sy < SectionsPerChunk; sy++ {
		section, err := NewSectionFromHeightMap(chunk.SectionPosition(sy), chunk.WorldPosition, heights, colors)
		if err != nil {
			return nil, fmt.Errorf("генерация секции %d чанка (%d,%d): %w", sy, coords.X, coords.Z, err)
		}
		if sy == 0 {
			for x := 0; x < SectionWidth; x++ {
				for z := 0; z < SectionLength; z++ {
					section.SetBlock(x, 0, z, block.BedrockBlockID, true)
				}
			}
		}
		chunk.PutSection(section)
	}

	return chunk, nil
}

func (g *Generator) forEachColumn(coords vec.Vec2, fn func(x, z, worldX, worldZ int)) {
	startX := coords.X * SectionWidth
	startZ := coords.Z * SectionLength

	for x := 0; x < SectionWidth; x++ {
		for z := 0; z < SectionLength; z++ {
			fn(x, z, startX+x, startZ+z)
		}
	}
}

func newFloatMap() [][]float64 {
	m := make([][]float64, SectionWidth)
	for x := range m {
		m[x] = make([]float64, SectionLength)
	}
	return m
}
