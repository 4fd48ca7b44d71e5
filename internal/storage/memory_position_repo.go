package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/annel0/voxel-core/internal/vec"
)

// MemoryPositionRepo реализует PositionRepo в памяти.
// Используется как fallback, когда MariaDB и Redis недоступны,
// или для CI/локальной разработки без БД.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryPositionRepo struct {
	mu   sync.RWMutex
	data map[uuid.UUID]vec.Vec3Float
}

// NewMemoryPositionRepo создает новый репозиторий позиций в памяти.
func NewMemoryPositionRepo() *MemoryPositionRepo {
	return &MemoryPositionRepo{
		data: make(map[uuid.UUID]vec.Vec3Float),
	}
}

// Save сохраняет позицию игрока в памяти.
func (r *MemoryPositionRepo) Save(ctx context.Context, playerID uuid.UUID, pos vec.Vec3Float) error {
	if err := validatePosition(playerID, pos); err != nil {
		return err
	}

	// Проверяем контекст на отмену
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[playerID] = pos
	return nil
}

// Load загружает позицию игрока из памяти.
func (r *MemoryPositionRepo) Load(ctx context.Context, playerID uuid.UUID) (vec.Vec3Float, bool, error) {
	if playerID == uuid.Nil {
		return vec.Vec3Float{}, false, errInvalidPlayer(playerID)
	}
	if err := ctx.Err(); err != nil {
		return vec.Vec3Float{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, exists := r.data[playerID]
	return pos, exists, nil
}

// Delete удаляет сохраненную позицию игрока из памяти.
func (r *MemoryPositionRepo) Delete(ctx context.Context, playerID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[playerID]; !exists {
		return fmt.Errorf("%w: игрок %s", ErrPositionNotFound, playerID)
	}

	delete(r.data, playerID)
	return nil
}

// BatchSave сохраняет позиции нескольких игроков в памяти.
// Либо сохраняются все, либо ни одна.
func (r *MemoryPositionRepo) BatchSave(ctx context.Context, positions map[uuid.UUID]vec.Vec3Float) error {
	if len(positions) == 0 {
		return nil // Нечего сохранять
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for playerID, pos := range positions {
		if err := validatePosition(playerID, pos); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for playerID, pos := range positions {
		r.data[playerID] = pos
	}
	return nil
}

// Count возвращает количество сохраненных позиций (для отладки).
func (r *MemoryPositionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
