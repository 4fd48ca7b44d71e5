package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world"
	"github.com/annel0/voxel-core/internal/world/block"
)

func newTestChunkStore(t *testing.T) (*ChunkStore, *MemorySectionStore) {
	t.Helper()
	sections := NewMemorySectionStore()
	return NewChunkStore(sections, newTestCodec(t)), sections
}

func TestChunkStoreSavesOnlyChanges(t *testing.T) {
	store, sections := newTestChunkStore(t)
	ctx := context.Background()

	chunk := world.NewChunk(vec.Vec2{X: 2, Z: -1})
	chunk.PutSection(world.NewFlatSection(chunk.SectionPosition(0), chunk.WorldPosition, 4, block.StoneBlockID))

	saved, err := store.SaveChunk(ctx, chunk)
	require.NoError(t, err)
	assert.Equal(t, 0, saved, "Сгенерированные секции не сохраняются")

	chunk.SetBlock(3, 40, 3, block.GrassBlockID, block.White, false)
	chunk.SetBlock(3, 2, 3, block.AirBlockID, block.White, true)

	saved, err = store.SaveChunk(ctx, chunk)
	require.NoError(t, err)
	assert.Equal(t, 2, saved)
	assert.Equal(t, 2, sections.Count())
	assert.Empty(t, chunk.ChangedSections(), "После сохранения изменений нет")

	// Загружаем поверх свежей генерации
	restored := world.NewChunk(vec.Vec2{X: 2, Z: -1})
	restored.PutSection(world.NewFlatSection(restored.SectionPosition(0), restored.WorldPosition, 4, block.StoneBlockID))

	loaded, err := store.LoadChunk(ctx, restored)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)

	b, ok := restored.GetBlock(3, 40, 3)
	require.True(t, ok)
	assert.Equal(t, block.GrassBlockID, b.ID)

	_, ok = restored.GetBlock(3, 2, 3)
	assert.False(t, ok, "Удалённый блок не должен вернуться")
	assert.Equal(t, chunk.NonAirBlockSize(), restored.NonAirBlockSize())
}

func TestChunkStoreReleasedSection(t *testing.T) {
	store, sections := newTestChunkStore(t)
	ctx := context.Background()

	chunk := world.NewChunk(vec.Vec2{})
	chunk.PutSection(world.NewFlatSection(chunk.SectionPosition(1), chunk.WorldPosition, 17, block.StoneBlockID))
	chunk.ClearChanges()

	// Убираем весь слой, секция освобождается
	for x := 0; x < world.SectionWidth; x++ {
		for z := 0; z < world.SectionLength; z++ {
			chunk.SetBlock(x, 16, z, block.AirBlockID, block.White, true)
		}
	}
	require.Nil(t, chunk.Section(1))

	saved, err := store.SaveChunk(ctx, chunk)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	payload, err := sections.Get(ctx, vec.Vec3{Y: 1})
	require.NoError(t, err, "Освобождённая секция пишется как пустая")

	section, err := store.codec.Decode(payload)
	require.NoError(t, err)
	assert.True(t, section.IsEmpty())

	restored := world.NewChunk(vec.Vec2{})
	restored.PutSection(world.NewFlatSection(restored.SectionPosition(1), restored.WorldPosition, 17, block.StoneBlockID))
	_, err = store.LoadChunk(ctx, restored)
	require.NoError(t, err)
	assert.Nil(t, restored.Section(1), "Пустая запись перекрывает генерацию")
}

func TestChunkStoreCorruptPayload(t *testing.T) {
	store, sections := newTestChunkStore(t)
	ctx := context.Background()

	require.NoError(t, sections.Put(ctx, vec.Vec3{Y: 3}, []byte("garbage")))

	_, err := store.LoadChunk(ctx, world.NewChunk(vec.Vec2{}))
	assert.ErrorIs(t, err, ErrCorruptSection)
}
