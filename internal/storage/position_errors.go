package storage

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrPositionNotFound возвращается при удалении отсутствующей позиции
var ErrPositionNotFound = errors.New("позиция не найдена")

func errInvalidPlayer(playerID uuid.UUID) error {
	return fmt.Errorf("недействительный ID игрока: %s", playerID)
}

func errInvalidHeight(playerID uuid.UUID, y float64) error {
	return fmt.Errorf("недействительная высота для игрока %s: %.2f", playerID, y)
}
