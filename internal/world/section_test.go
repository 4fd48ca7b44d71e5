package world

import (
	"math/rand"
	"testing"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSection(y int) *Section {
	return NewEmptySection(vec.Vec3{X: 0, Y: y, Z: 0}, vec.Vec3Float{X: 8, Z: 8})
}

func uniformHeights(h int) [][]int {
	m := make([][]int, SectionWidth)
	for x := range m {
		m[x] = make([]int, SectionLength)
		for z := range m[x] {
			m[x][z] = h
		}
	}
	return m
}

func uniformColors(v float64) [][]float64 {
	m := make([][]float64, SectionWidth)
	for x := range m {
		m[x] = make([]float64, SectionLength)
		for z := range m[x] {
			m[x][z] = v
		}
	}
	return m
}

func TestLocalIndex(t *testing.T) {
	assert.Equal(t, 561, LocalIndex(1, 2, 3), "Индекс (1,2,3) должен быть 561")
	assert.Equal(t, 0, LocalIndex(0, 0, 0))
	assert.Equal(t, SectionVolume-1, LocalIndex(15, 15, 15))

	for i := 0; i < SectionVolume; i += 37 {
		x, y, z := IndexToLocal(i)
		assert.Equal(t, i, LocalIndex(x, y, z), "Обратное преобразование индекса %d", i)
	}
}

func TestSectionWorldPosition(t *testing.T) {
	s := NewEmptySection(vec.Vec3{X: 1, Y: 2, Z: 3}, vec.Vec3Float{X: 24, Y: 0, Z: 56})

	assert.Equal(t, 24.0, s.WorldPosition.X)
	assert.Equal(t, 40.0, s.WorldPosition.Y, "Центр третьей секции по Y")
	assert.Equal(t, 56.0, s.WorldPosition.Z)
	assert.True(t, s.IsEmpty(), "Новая секция должна быть пустой")
}

func TestSetBlockAtStateMachine(t *testing.T) {
	s := newTestSection(0)
	color := block.DefaultColor(block.StoneBlockID)

	// Пусто + воздух
	assert.Equal(t, MutationNone, s.SetBlockAt(1, 2, 3, block.AirBlockID, color, true))
	assert.Equal(t, 0, s.NonAirBlockSize())

	// Пусто + блок
	assert.Equal(t, MutationPlaced, s.SetBlockAt(1, 2, 3, block.StoneBlockID, color, false))
	assert.Equal(t, 1, s.NonAirBlockSize())

	b, ok := s.GetBlockAt(1, 2, 3)
	require.True(t, ok, "Блок должен появиться после установки")
	assert.Equal(t, block.StoneBlockID, b.ID)
	assert.Equal(t, vec.Vec3{X: 1, Y: 2, Z: 3}, b.Local)

	// Занято + блок без overwrite
	assert.Equal(t, MutationNone, s.SetBlockAt(1, 2, 3, block.GrassBlockID, color, false))
	b, _ = s.GetBlockAt(1, 2, 3)
	assert.Equal(t, block.StoneBlockID, b.ID, "Без overwrite блок не должен меняться")

	// Занято + блок с overwrite
	assert.Equal(t, MutationOverwritten, s.SetBlockAt(1, 2, 3, block.GrassBlockID, block.GrassColor, true))
	b, _ = s.GetBlockAt(1, 2, 3)
	assert.Equal(t, block.GrassBlockID, b.ID, "С overwrite блок должен замениться")
	assert.Equal(t, block.GrassColor, b.Color)
	assert.Equal(t, 1, s.NonAirBlockSize(), "Замена не меняет счётчик")

	// Занято + воздух
	assert.Equal(t, MutationRemoved, s.SetBlockAt(1, 2, 3, block.AirBlockID, color, false))
	_, ok = s.GetBlockAt(1, 2, 3)
	assert.False(t, ok, "Слот должен опустеть")
	assert.Equal(t, 0, s.NonAirBlockSize())
	assert.True(t, s.IsEmpty())
}

func TestSetBlockAtAirIsIdempotent(t *testing.T) {
	s := newTestSection(0)
	s.SetBlock(4, 4, 4, block.StoneBlockID, false)

	assert.Equal(t, MutationRemoved, s.SetBlock(4, 4, 4, block.AirBlockID, false))
	assert.Equal(t, MutationNone, s.SetBlock(4, 4, 4, block.AirBlockID, false))
	assert.Equal(t, 0, s.NonAirBlockSize(), "Повторное удаление не должно менять счётчик")
}

func TestSectionOutOfRange(t *testing.T) {
	s := newTestSection(0)

	coords := [][3]int{{-1, 0, 0}, {16, 0, 0}, {0, -1, 0}, {0, 16, 0}, {0, 0, -1}, {0, 0, 16}}
	for _, c := range coords {
		_, ok := s.GetBlockAt(c[0], c[1], c[2])
		assert.False(t, ok, "Чтение вне секции %v должно быть пустым", c)
		assert.Equal(t, MutationNone, s.SetBlock(c[0], c[1], c[2], block.StoneBlockID, true), "Запись вне секции %v игнорируется", c)
	}
	assert.Equal(t, 0, s.NonAirBlockSize())
	assert.Equal(t, -1, s.LocalTopY(16, 0))
}

func TestSectionCounterMatchesSlots(t *testing.T) {
	s := newTestSection(0)
	rng := rand.New(rand.NewSource(7))
	ids := []block.BlockID{block.AirBlockID, block.GrassBlockID, block.StoneBlockID, block.BedrockBlockID}

	for i := 0; i < 5000; i++ {
		x, y, z := rng.Intn(SectionWidth), rng.Intn(SectionHeight), rng.Intn(SectionLength)
		s.SetBlock(x, y, z, ids[rng.Intn(len(ids))], rng.Intn(2) == 0)
		require.Equal(t, s.CountOccupied(), s.NonAirBlockSize(), "Счётчик разошёлся со слотами на шаге %d", i)
	}
}

func TestForEachBlockOrder(t *testing.T) {
	s := newTestSection(0)
	s.SetBlock(0, 1, 0, block.StoneBlockID, false)
	s.SetBlock(2, 0, 0, block.StoneBlockID, false)
	s.SetBlock(0, 0, 1, block.StoneBlockID, false)

	var indices []int
	s.ForEachBlock(func(index int, _ Block) bool {
		indices = append(indices, index)
		return true
	})
	assert.Equal(t, []int{2, 16, 256}, indices, "Обход идёт по возрастанию линейного индекса")

	count := 0
	s.ForEachBlock(func(int, Block) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count, "Обход должен остановиться по false")
}

func TestHeightFillClipsAtSectionTop(t *testing.T) {
	heights := uniformHeights(0)
	heights[5][7] = 40

	s, err := NewSectionFromHeightMap(vec.Vec3{Y: 2}, vec.Vec3Float{X: 8, Z: 8}, heights, uniformColors(1))
	require.NoError(t, err)

	for y := 0; y < 8; y++ {
		_, ok := s.GetBlockAt(5, y, 7)
		assert.True(t, ok, "Локальная высота %d должна быть заполнена", y)
	}
	for y := 8; y < SectionHeight; y++ {
		_, ok := s.GetBlockAt(5, y, 7)
		assert.False(t, ok, "Локальная высота %d должна быть пустой", y)
	}
	assert.Equal(t, 8, s.NonAirBlockSize())
	assert.Equal(t, 7, s.LocalTopY(5, 7))
	assert.Equal(t, -1, s.LocalTopY(0, 0))
}

func TestHeightFillMaterials(t *testing.T) {
	s, err := NewSectionFromHeightMap(vec.Vec3{Y: 0}, vec.Vec3Float{}, uniformHeights(10), uniformColors(1))
	require.NoError(t, err)

	// Поверхность на 9, камень начинается глубже двух блоков
	for y := 0; y < 10; y++ {
		b, ok := s.GetBlockAt(0, y, 0)
		require.True(t, ok)
		if 10-y > 2 {
			assert.Equal(t, block.StoneBlockID, b.ID, "На высоте %d ожидался камень", y)
		} else {
			assert.Equal(t, block.GrassBlockID, b.ID, "На высоте %d ожидалась трава", y)
		}
	}
	assert.Equal(t, SectionWidth*SectionLength*10, s.NonAirBlockSize())
}

func TestHeightFillFadesToGrayAboveSnowLine(t *testing.T) {
	s, err := NewSectionFromHeightMap(vec.Vec3{Y: 7}, vec.Vec3Float{}, uniformHeights(128), uniformColors(1))
	require.NoError(t, err)

	// Мировая высота 127: (127-80)/30 > 1, цвет полностью серый
	b, ok := s.GetBlockAt(0, 15, 0)
	require.True(t, ok)
	assert.InDelta(t, peakGray, b.Color.R, 1e-9)
	assert.InDelta(t, peakGray, b.Color.G, 1e-9)
	assert.InDelta(t, peakGray, b.Color.B, 1e-9)
}

func TestHeightFillRejectsMalformedMaps(t *testing.T) {
	_, err := NewSectionFromHeightMap(vec.Vec3{}, vec.Vec3Float{}, make([][]int, 3), uniformColors(1))
	assert.ErrorIs(t, err, ErrMalformedMap)

	heights := uniformHeights(5)
	heights[4] = heights[4][:10]
	_, err = NewSectionFromHeightMap(vec.Vec3{}, vec.Vec3Float{}, heights, uniformColors(1))
	assert.ErrorIs(t, err, ErrMalformedMap)

	_, err = NewSectionFromRegionMap(vec.Vec3{}, vec.Vec3Float{}, uniformHeights(5), make([][]float64, 16))
	assert.ErrorIs(t, err, ErrMalformedMap)

	_, err = NewSectionFromBiomeValues(vec.Vec3{}, vec.Vec3Float{}, nil, uniformColors(1))
	assert.ErrorIs(t, err, ErrMalformedMap)
}

func TestRegionFillUsesGrass(t *testing.T) {
	s, err := NewSectionFromRegionMap(vec.Vec3{}, vec.Vec3Float{}, uniformHeights(3), uniformColors(0.5))
	require.NoError(t, err)

	b, ok := s.GetBlockAt(3, 2, 3)
	require.True(t, ok)
	assert.Equal(t, block.GrassBlockID, b.ID)
	assert.InDelta(t, block.GrassColor.G*0.5, b.Color.G, 1e-9)
	assert.Equal(t, SectionWidth*SectionLength*3, s.NonAirBlockSize())
}

func TestBiomeFillMapsValuesToHeight(t *testing.T) {
	assert.Equal(t, 30, BiomeValueToHeight(0))
	assert.Equal(t, 60, BiomeValueToHeight(0.5))
	assert.Equal(t, 90, BiomeValueToHeight(1))

	// Значение 0.5 -> высота 60, секция 3 (48..64) заполнена на 12 блоков
	s, err := NewSectionFromBiomeValues(vec.Vec3{Y: 3}, vec.Vec3Float{}, uniformColors(0.5), uniformColors(1))
	require.NoError(t, err)
	assert.Equal(t, 11, s.LocalTopY(0, 0))
	assert.Equal(t, SectionWidth*SectionLength*12, s.NonAirBlockSize())
}

func TestFlatSection(t *testing.T) {
	s := NewFlatSection(vec.Vec3{Y: 0}, vec.Vec3Float{}, 4, block.StoneBlockID)
	assert.Equal(t, SectionWidth*SectionLength*4, s.NonAirBlockSize())
	assert.Equal(t, 3, s.LocalTopY(15, 15))

	above := NewFlatSection(vec.Vec3{Y: 1}, vec.Vec3Float{}, 4, block.StoneBlockID)
	assert.True(t, above.IsEmpty(), "Секция выше уровня должна остаться пустой")
}
