package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/vec"
)

// TieredSectionStore читает из быстрого кэша и падает на постоянное хранилище.
// Запись идёт сначала в постоянное хранилище, затем в кэш.
type TieredSectionStore struct {
	hot  SectionStore
	cold SectionStore
}

// NewTieredSectionStore объединяет кэш и постоянное хранилище
func NewTieredSectionStore(hot, cold SectionStore) *TieredSectionStore {
	return &TieredSectionStore{hot: hot, cold: cold}
}

func (t *TieredSectionStore) Put(ctx context.Context, pos vec.Vec3, payload []byte) error {
	if err := t.cold.Put(ctx, pos, payload); err != nil {
		return err
	}
	if err := t.hot.Put(ctx, pos, payload); err != nil {
		// Кэш не обязателен: постоянная копия уже записана
		logging.GetStorageLogger().Warn("⚠️ Не удалось обновить кэш секции %s: %v", SectionKey(pos), err)
	}
	return nil
}

func (t *TieredSectionStore) Get(ctx context.Context, pos vec.Vec3) ([]byte, error) {
	data, err := t.hot.Get(ctx, pos)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, ErrSectionNotFound) {
		logging.GetStorageLogger().Warn("⚠️ Кэш секций недоступен: %v", err)
	}

	data, err = t.cold.Get(ctx, pos)
	if err != nil {
		return nil, err
	}

	if err := t.hot.Put(ctx, pos, data); err != nil {
		logging.GetStorageLogger().Debug("Не удалось прогреть кэш %s: %v", SectionKey(pos), err)
	}
	return data, nil
}

func (t *TieredSectionStore) Delete(ctx context.Context, pos vec.Vec3) error {
	if err := t.cold.Delete(ctx, pos); err != nil {
		return err
	}
	return t.hot.Delete(ctx, pos)
}

// ListChunk всегда читает постоянное хранилище: кэш может содержать не все секции столбца
func (t *TieredSectionStore) ListChunk(ctx context.Context, coords vec.Vec2) (map[int][]byte, error) {
	return t.cold.ListChunk(ctx, coords)
}

func (t *TieredSectionStore) Close() error {
	hotErr := t.hot.Close()
	coldErr := t.cold.Close()
	if coldErr != nil {
		return fmt.Errorf("ошибка закрытия постоянного хранилища: %w", coldErr)
	}
	if hotErr != nil {
		return fmt.Errorf("ошибка закрытия кэша: %w", hotErr)
	}
	return nil
}
