package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/vec"
)

// RedisSectionStore: горячий кэш секций в Redis с ограниченным временем жизни
type RedisSectionStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisSectionStore подключается к Redis по URL (redis://host:port/db)
func NewRedisSectionStore(ctx context.Context, url string, ttl time.Duration) (*RedisSectionStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("некорректный адрес Redis %q: %w", url, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	logging.GetStorageLogger().Info("🔴 Подключено к Redis %s", opts.Addr)
	return NewRedisSectionStoreWithClient(client, ttl), nil
}

// NewRedisSectionStoreWithClient оборачивает готовый клиент
func NewRedisSectionStoreWithClient(client *redis.Client, ttl time.Duration) *RedisSectionStore {
	return &RedisSectionStore{
		client:    client,
		keyPrefix: "voxel:",
		ttl:       ttl,
	}
}

func (r *RedisSectionStore) key(pos vec.Vec3) string {
	return r.keyPrefix + SectionKey(pos)
}

func (r *RedisSectionStore) Put(ctx context.Context, pos vec.Vec3, payload []byte) error {
	if err := r.client.Set(ctx, r.key(pos), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка записи секции в Redis: %w", err)
	}
	return nil
}

func (r *RedisSectionStore) Get(ctx context.Context, pos vec.Vec3) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(pos)).Bytes()
	if err == redis.Nil {
		return nil, ErrSectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения секции из Redis: %w", err)
	}
	return data, nil
}

func (r *RedisSectionStore) Delete(ctx context.Context, pos vec.Vec3) error {
	if err := r.client.Del(ctx, r.key(pos)).Err(); err != nil {
		return fmt.Errorf("ошибка удаления секции из Redis: %w", err)
	}
	return nil
}

// ListChunk собирает секции столбца через SCAN по префиксу и читает их пайплайном
func (r *RedisSectionStore) ListChunk(ctx context.Context, coords vec.Vec2) (map[int][]byte, error) {
	pattern := r.keyPrefix + ChunkPrefix(coords) + "*"

	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("ошибка сканирования Redis: %w", err)
	}

	result := make(map[int][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("ошибка чтения секций из Redis: %w", err)
	}

	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue // Ключ мог истечь между SCAN и GET
		}
		pos, err := ParseSectionKey(keys[i][len(r.keyPrefix):])
		if err != nil {
			logging.GetStorageLogger().Warn("⚠️ Пропущен ключ %s: %v", keys[i], err)
			continue
		}
		result[pos.Y] = data
	}
	return result, nil
}

func (r *RedisSectionStore) Close() error {
	return r.client.Close()
}
