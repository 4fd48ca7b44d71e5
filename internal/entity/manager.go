package entity

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/annel0/voxel-core/internal/vec"
)

// Manager хранит игроков, которых двигает симуляция
type Manager struct {
	players map[uuid.UUID]*Player
	mu      sync.RWMutex
}

// NewManager создаёт пустой менеджер
func NewManager() *Manager {
	return &Manager{
		players: make(map[uuid.UUID]*Player),
	}
}

// Spawn создаёт игрока в указанной позиции и возвращает его
func (m *Manager) Spawn(name string, position vec.Vec3Float) *Player {
	p := NewPlayer(name, position)

	m.mu.Lock()
	m.players[p.ID] = p
	m.mu.Unlock()

	return p
}

// Add регистрирует уже созданного игрока
func (m *Manager) Add(p *Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[p.ID] = p
}

// Remove удаляет игрока
func (m *Manager) Remove(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.players[id]; !exists {
		return false
	}
	delete(m.players, id)
	return true
}

// Get возвращает игрока по ID
func (m *Manager) Get(id uuid.UUID) (*Player, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	return p, ok
}

// All возвращает игроков, упорядоченных по имени
func (m *Manager) All() []*Player {
	m.mu.RLock()
	result := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		result = append(result, p)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name == result[j].Name {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// Count возвращает число игроков
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}
