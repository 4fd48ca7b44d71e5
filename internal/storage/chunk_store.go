package storage

import (
	"context"
	"fmt"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/world"
)

// ChunkStore сохраняет изменённые секции чанков и накладывает их на сгенерированные чанки.
// Генерация детерминирована, поэтому храним только то, что отличается от генератора.
type ChunkStore struct {
	sections SectionStore
	codec    *Codec
}

// NewChunkStore создаёт хранилище чанков поверх хранилища секций
func NewChunkStore(sections SectionStore, codec *Codec) *ChunkStore {
	return &ChunkStore{sections: sections, codec: codec}
}

// Sections возвращает нижележащее хранилище секций
func (cs *ChunkStore) Sections() SectionStore {
	return cs.sections
}

// SaveChunk записывает секции, изменённые с последнего сохранения, и возвращает их число.
// Освобождённая секция пишется как пустая, чтобы генератор не вернул её блоки.
func (cs *ChunkStore) SaveChunk(ctx context.Context, chunk *world.Chunk) (int, error) {
	changed := chunk.ChangedSections()
	if len(changed) == 0 {
		return 0, nil
	}

	for _, sy := range changed {
		section := chunk.Section(sy)
		if section == nil {
			section = world.NewEmptySection(chunk.SectionPosition(sy), chunk.WorldPosition)
		}

		payload := cs.codec.Encode(section)
		if err := cs.sections.Put(ctx, section.Position, payload); err != nil {
			return 0, fmt.Errorf("ошибка сохранения секции %s: %w", SectionKey(section.Position), err)
		}
		logging.LogSectionPayload(SectionKey(section.Position), section.NonAirBlockSize(), payload)
	}

	chunk.ClearChanges()
	return len(changed), nil
}

// LoadChunk накладывает сохранённые секции на чанк и возвращает их число.
// Вызывается до публикации чанка в ChunkMap.
func (cs *ChunkStore) LoadChunk(ctx context.Context, chunk *world.Chunk) (int, error) {
	stored, err := cs.sections.ListChunk(ctx, chunk.Coords)
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения секций чанка (%d,%d): %w", chunk.Coords.X, chunk.Coords.Z, err)
	}

	for sy, payload := range stored {
		section, err := cs.codec.Decode(payload)
		if err != nil {
			return 0, fmt.Errorf("секция %d чанка (%d,%d): %w", sy, chunk.Coords.X, chunk.Coords.Z, err)
		}
		chunk.PutSection(section)
	}
	return len(stored), nil
}

// Close закрывает хранилище секций
func (cs *ChunkStore) Close() error {
	return cs.sections.Close()
}
