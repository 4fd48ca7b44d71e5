package block

import (
	"strings"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[BlockID]BlockBehavior)
)

// Register добавляет поведение блока в регистр
func Register(id BlockID, behavior BlockBehavior) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[id] = behavior
}

// Get возвращает поведение для указанного ID
func Get(id BlockID) (BlockBehavior, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	behavior, exists := registry[id]
	return behavior, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := Get(id)
	return exists
}

// Lookup ищет блок по имени без учёта регистра
func Lookup(name string) (BlockID, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for id, behavior := range registry {
		if strings.EqualFold(behavior.Name(), name) {
			return id, true
		}
	}
	return AirBlockID, false
}

// DefaultColor возвращает цвет блока по умолчанию. Для неизвестных ID белый.
func DefaultColor(id BlockID) Color {
	if behavior, ok := Get(id); ok {
		return behavior.DefaultColor()
	}
	return White
}

// IsCollidable сообщает, участвует ли блок в столкновениях
func IsCollidable(id BlockID) bool {
	if behavior, ok := Get(id); ok {
		return behavior.IsCollidable()
	}
	return id != AirBlockID
}

// BlockID представляет идентификатор блока
type BlockID uint16

// Константы ID блоков
const (
	AirBlockID     BlockID = iota // 0: отсутствие блока
	GrassBlockID                  // 1
	StoneBlockID                  // 2
	BedrockBlockID                // 3
)

// String возвращает имя блока из регистра
func (id BlockID) String() string {
	if behavior, ok := Get(id); ok {
		return behavior.Name()
	}
	return "Unknown"
}
