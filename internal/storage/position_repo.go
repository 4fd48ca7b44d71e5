package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/annel0/voxel-core/internal/vec"
)

// PositionRepo определяет интерфейс для сохранения и загрузки позиций игроков.
// Позиция хранится точно (float), чтобы игрок после перезахода стоял там же, а не на краю блока.
type PositionRepo interface {
	// Save сохраняет позицию игрока в хранилище.
	Save(ctx context.Context, playerID uuid.UUID, pos vec.Vec3Float) error

	// Load загружает позицию игрока. false означает первый вход.
	Load(ctx context.Context, playerID uuid.UUID) (vec.Vec3Float, bool, error)

	// Delete удаляет сохраненную позицию игрока (для тестов или сброса).
	Delete(ctx context.Context, playerID uuid.UUID) error

	// BatchSave сохраняет позиции нескольких игроков одновременно (для автосохранения).
	BatchSave(ctx context.Context, positions map[uuid.UUID]vec.Vec3Float) error
}

// validatePosition отсекает позиции вне вертикальных границ мира
func validatePosition(playerID uuid.UUID, pos vec.Vec3Float) error {
	if playerID == uuid.Nil {
		return errInvalidPlayer(playerID)
	}
	if pos.Y < -64 || pos.Y > 512 {
		return errInvalidHeight(playerID, pos.Y)
	}
	return nil
}
