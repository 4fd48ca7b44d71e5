package world

import (
	"errors"
	"fmt"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world/block"
)

// ErrMalformedMap возвращается, если карта высот или цветов не имеет размер 16x16
var ErrMalformedMap = errors.New("карта не соответствует размеру секции")

// Параметры раскраски при генерации
const (
	stoneDepth      = 2    // Глубже этого под поверхностью камень
	grassMixWeight  = 0.5  // Доля GrassMix в цвете поверхности
	snowLineY       = 80   // Выше этой высоты цвет уходит в серый
	snowFadeBlocks  = 30.0 // За сколько блоков цвет полностью становится серым
	peakGray        = 0.6
	biomeHeightSpan = 60.0
	biomeHeightBase = 30.0
)

// NewSectionFromHeightMap заполняет секцию по карте высот heights[x][z].
// Столбец занимает мировые Y из [yStart, min(yStart+16, h)).
// Глубже stoneDepth под поверхностью ставится камень, выше трава.
// Цвет смешивается с GrassMix, умножается на colors[x][z] и выше snowLineY уходит в серый.
func NewSectionFromHeightMap(position vec.Vec3, chunkWorldPosition vec.Vec3Float, heights [][]int, colors [][]float64) (*Section, error) {
	if err := validateHeightMap(heights); err != nil {
		return nil, err
	}
	if err := validateColorMap(colors); err != nil {
		return nil, err
	}

	s := NewEmptySection(position, chunkWorldPosition)
	s.fillColumns(heights, func(x, z, worldY, height int) (block.BlockID, block.Color) {
		id := block.GrassBlockID
		if height-worldY > stoneDepth {
			id = block.StoneBlockID
		}

		color := block.DefaultColor(id).Lerp(block.GrassMix, grassMixWeight).Scale(colors[x][z])
		if worldY > snowLineY {
			t := max(1.0-float64(worldY-snowLineY)/snowFadeBlocks, 0)
			color = block.Gray(peakGray).Lerp(color, t)
		}
		return id, color
	})
	return s, nil
}

// NewSectionFromRegionMap заполняет столбцы травой, окрашенной по карте региона
func NewSectionFromRegionMap(position vec.Vec3, chunkWorldPosition vec.Vec3Float, heights [][]int, colors [][]float64) (*Section, error) {
	if err := validateHeightMap(heights); err != nil {
		return nil, err
	}
	if err := validateColorMap(colors); err != nil {
		return nil, err
	}

	s := NewEmptySection(position, chunkWorldPosition)
	s.fillColumns(heights, func(x, z, _, _ int) (block.BlockID, block.Color) {
		return block.GrassBlockID, block.DefaultColor(block.GrassBlockID).Scale(colors[x][z])
	})
	return s, nil
}

// NewSectionFromBiomeValues переводит нормализованные значения (0..1) в высоты
// по формуле h = v*60 + 30 и заполняет секцию как по карте высот
func NewSectionFromBiomeValues(position vec.Vec3, chunkWorldPosition vec.Vec3Float, values [][]float64, colors [][]float64) (*Section, error) {
	if err := validateColorMap(values); err != nil {
		return nil, fmt.Errorf("карта значений биома: %w", err)
	}

	heights := make([][]int, SectionWidth)
	for x := 0; x < SectionWidth; x++ {
		heights[x] = make([]int, SectionLength)
		for z := 0; z < SectionLength; z++ {
			heights[x][z] = BiomeValueToHeight(values[x][z])
		}
	}

	return NewSectionFromHeightMap(position, chunkWorldPosition, heights, colors)
}

// BiomeValueToHeight переводит нормализованное значение биома в мировую высоту
func BiomeValueToHeight(v float64) int {
	return int(v*biomeHeightSpan + biomeHeightBase)
}

// NewFlatSection заполняет все столбцы блоком id до мировой высоты height
func NewFlatSection(position vec.Vec3, chunkWorldPosition vec.Vec3Float, height int, id block.BlockID) *Section {
	heights := make([][]int, SectionWidth)
	for x := range heights {
		heights[x] = make([]int, SectionLength)
		for z := range heights[x] {
			heights[x][z] = height
		}
	}

	s := NewEmptySection(position, chunkWorldPosition)
	color := block.DefaultColor(id)
	s.fillColumns(heights, func(_, _, _, _ int) (block.BlockID, block.Color) {
		return id, color
	})
	return s
}

// fillColumns проходит столбцы x∈[0,16), z∈[0,16) и заполняет непрерывный
// вертикальный отрезок от начала секции до высоты столбца
func (s *Section) fillColumns(heights [][]int, pick func(x, z, worldY, height int) (block.BlockID, block.Color)) {
	yStart := s.Position.Y * SectionHeight
	yEnd := yStart + SectionHeight

	for x := 0; x < SectionWidth; x++ {
		for z := 0; z < SectionLength; z++ {
			height := heights[x][z]
			if height <= yStart {
				continue // Столбец целиком ниже секции
			}

			top := min(height, yEnd)
			for worldY := yStart; worldY < top; worldY++ {
				id, color := pick(x, z, worldY, height)
				s.SetBlockAt(x, worldY-yStart, z, id, color, false)
			}
		}
	}
}

func validateHeightMap(heights [][]int) error {
	if len(heights) != SectionWidth {
		return fmt.Errorf("%w: %d столбцов по X, ожидалось %d", ErrMalformedMap, len(heights), SectionWidth)
	}
	for x, row := range heights {
		if len(row) != SectionLength {
			return fmt.Errorf("%w: строка %d имеет длину %d, ожидалось %d", ErrMalformedMap, x, len(row), SectionLength)
		}
	}
	return nil
}

func validateColorMap(colors [][]float64) error {
	if len(colors) != SectionWidth {
		return fmt.Errorf("%w: %d столбцов по X, ожидалось %d", ErrMalformedMap, len(colors), SectionWidth)
	}
	for x, row := range colors {
		if len(row) != SectionLength {
			return fmt.Errorf("%w: строка %d имеет длину %d, ожидалось %d", ErrMalformedMap, x, len(row), SectionLength)
		}
	}
	return nil
}
