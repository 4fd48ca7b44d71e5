package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/voxel-core/internal/vec"
)

var (
	// ErrSectionNotFound возвращается, если секция никогда не сохранялась
	ErrSectionNotFound = errors.New("секция не найдена")
	// ErrNotReady возвращается после закрытия хранилища
	ErrNotReady = errors.New("хранилище не готово")
)

// SectionStore хранит закодированные секции по их координатам.
// Пустой payload не допускается: удалённая секция хранится как секция без блоков.
type SectionStore interface {
	Put(ctx context.Context, pos vec.Vec3, payload []byte) error
	Get(ctx context.Context, pos vec.Vec3) ([]byte, error)
	Delete(ctx context.Context, pos vec.Vec3) error
	// ListChunk возвращает все сохранённые секции столбца, ключ равен индексу секции по Y
	ListChunk(ctx context.Context, coords vec.Vec2) (map[int][]byte, error)
	Close() error
}

// SectionKey строит ключ секции. X и Z идут первыми, чтобы секции одного столбца
// лежали под общим префиксом.
func SectionKey(pos vec.Vec3) string {
	return fmt.Sprintf("%s%d", ChunkPrefix(vec.Vec2{X: pos.X, Z: pos.Z}), pos.Y)
}

// ChunkPrefix возвращает префикс ключей всех секций столбца
func ChunkPrefix(coords vec.Vec2) string {
	return fmt.Sprintf("section:%d:%d:", coords.X, coords.Z)
}

// ParseSectionKey разбирает ключ, построенный SectionKey
func ParseSectionKey(key string) (vec.Vec3, error) {
	var pos vec.Vec3
	if _, err := fmt.Sscanf(key, "section:%d:%d:%d", &pos.X, &pos.Z, &pos.Y); err != nil {
		return vec.Vec3{}, fmt.Errorf("ошибка парсинга ключа '%s': %w", key, err)
	}
	return pos, nil
}

// MemorySectionStore хранит секции в памяти.
// Используется в тестах и при backend: memory; данные теряются при перезапуске.
type MemorySectionStore struct {
	mu   sync.RWMutex
	data map[vec.Vec3][]byte
}

// NewMemorySectionStore создаёт пустое хранилище в памяти
func NewMemorySectionStore() *MemorySectionStore {
	return &MemorySectionStore{
		data: make(map[vec.Vec3][]byte),
	}
}

func (m *MemorySectionStore) Put(ctx context.Context, pos vec.Vec3, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[pos] = append([]byte(nil), payload...)
	return nil
}

func (m *MemorySectionStore) Get(ctx context.Context, pos vec.Vec3) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, ok := m.data[pos]
	if !ok {
		return nil, ErrSectionNotFound
	}
	return append([]byte(nil), payload...), nil
}

func (m *MemorySectionStore) Delete(ctx context.Context, pos vec.Vec3) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, pos)
	return nil
}

func (m *MemorySectionStore) ListChunk(ctx context.Context, coords vec.Vec2) (map[int][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[int][]byte)
	for pos, payload := range m.data {
		if pos.X == coords.X && pos.Z == coords.Z {
			result[pos.Y] = append([]byte(nil), payload...)
		}
	}
	return result, nil
}

// Count возвращает число сохранённых секций
func (m *MemorySectionStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *MemorySectionStore) Close() error {
	return nil
}
