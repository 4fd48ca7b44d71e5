package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/vec"
)

// RedisPositionRepo хранит позиции игроков в Redis для быстрого доступа.
// Одиночные Save копятся в буфере и сбрасываются пайплайном.
type RedisPositionRepo struct {
	client      *redis.Client
	keyPrefix   string
	ttl         time.Duration
	batchSize   int
	batchMu     sync.Mutex
	batchBuffer map[uuid.UUID]*PlayerPosition
	batchTicker *time.Ticker
	shutdown    chan struct{}
	wg          sync.WaitGroup
}

// PlayerPosition представляет сохранённую позицию игрока
type PlayerPosition struct {
	PlayerID  uuid.UUID     `json:"player_id"`
	Position  vec.Vec3Float `json:"position"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr         string        // Адрес Redis сервера
	Password     string        // Пароль (пустой если не требуется)
	DB           int           // Номер базы данных
	KeyPrefix    string        // Префикс для ключей
	TTL          time.Duration // Время жизни записей
	BatchSize    int           // Размер батча для записи
	BatchFlushMs int           // Интервал сброса батча в миллисекундах
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		KeyPrefix:    "voxel:pos:",
		TTL:          24 * time.Hour,
		BatchSize:    100,
		BatchFlushMs: 100,
	}
}

// RedisConfigFromURL строит конфигурацию по URL вида redis://:pass@host:port/db
func RedisConfigFromURL(url string) (*RedisConfig, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("некорректный адрес Redis %q: %w", url, err)
	}
	cfg := DefaultRedisConfig()
	cfg.Addr = opts.Addr
	cfg.Password = opts.Password
	cfg.DB = opts.DB
	return cfg, nil
}

// NewRedisPositionRepo создаёт новый Redis репозиторий для позиций
func NewRedisPositionRepo(ctx context.Context, config *RedisConfig) (*RedisPositionRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	repo := &RedisPositionRepo{
		client:      client,
		keyPrefix:   config.KeyPrefix,
		ttl:         config.TTL,
		batchSize:   max(config.BatchSize, 1),
		batchBuffer: make(map[uuid.UUID]*PlayerPosition),
		batchTicker: time.NewTicker(time.Duration(max(config.BatchFlushMs, 1)) * time.Millisecond),
		shutdown:    make(chan struct{}),
	}

	// Запускаем фоновую горутину для сброса батчей
	repo.wg.Add(1)
	go repo.batchFlusher()

	logging.GetStorageLogger().Info("🔴 Позиции игроков хранятся в Redis %s", config.Addr)
	return repo, nil
}

func (r *RedisPositionRepo) key(playerID uuid.UUID) string {
	return r.keyPrefix + playerID.String()
}

// Save добавляет позицию в батч-буфер
func (r *RedisPositionRepo) Save(ctx context.Context, playerID uuid.UUID, pos vec.Vec3Float) error {
	if err := validatePosition(playerID, pos); err != nil {
		return err
	}

	r.batchMu.Lock()
	r.batchBuffer[playerID] = &PlayerPosition{PlayerID: playerID, Position: pos, UpdatedAt: time.Now()}

	// Если буфер заполнен, сбрасываем немедленно
	if len(r.batchBuffer) >= r.batchSize {
		batch := r.batchBuffer
		r.batchBuffer = make(map[uuid.UUID]*PlayerPosition)
		r.batchMu.Unlock()

		return r.flushBatch(ctx, batch)
	}

	r.batchMu.Unlock()
	return nil
}

// Load читает позицию, учитывая ещё не сброшенный буфер
func (r *RedisPositionRepo) Load(ctx context.Context, playerID uuid.UUID) (vec.Vec3Float, bool, error) {
	if playerID == uuid.Nil {
		return vec.Vec3Float{}, false, errInvalidPlayer(playerID)
	}

	r.batchMu.Lock()
	pending, ok := r.batchBuffer[playerID]
	r.batchMu.Unlock()
	if ok {
		return pending.Position, true, nil
	}

	data, err := r.client.Get(ctx, r.key(playerID)).Bytes()
	if err == redis.Nil {
		return vec.Vec3Float{}, false, nil // Позиция не найдена
	} else if err != nil {
		return vec.Vec3Float{}, false, fmt.Errorf("ошибка чтения позиции: %w", err)
	}

	var pos PlayerPosition
	if err := json.Unmarshal(data, &pos); err != nil {
		return vec.Vec3Float{}, false, fmt.Errorf("ошибка десериализации позиции: %w", err)
	}
	return pos.Position, true, nil
}

// Delete удаляет позицию игрока
func (r *RedisPositionRepo) Delete(ctx context.Context, playerID uuid.UUID) error {
	// Удаляем из батч-буфера если есть
	r.batchMu.Lock()
	_, buffered := r.batchBuffer[playerID]
	delete(r.batchBuffer, playerID)
	r.batchMu.Unlock()

	removed, err := r.client.Del(ctx, r.key(playerID)).Result()
	if err != nil {
		return fmt.Errorf("ошибка удаления позиции: %w", err)
	}
	if removed == 0 && !buffered {
		return fmt.Errorf("%w: игрок %s", ErrPositionNotFound, playerID)
	}
	return nil
}

// BatchSave записывает позиции одним пайплайном, минуя буфер
func (r *RedisPositionRepo) BatchSave(ctx context.Context, positions map[uuid.UUID]vec.Vec3Float) error {
	if len(positions) == 0 {
		return nil
	}

	batch := make(map[uuid.UUID]*PlayerPosition, len(positions))
	now := time.Now()
	for playerID, pos := range positions {
		if err := validatePosition(playerID, pos); err != nil {
			return err
		}
		batch[playerID] = &PlayerPosition{PlayerID: playerID, Position: pos, UpdatedAt: now}
	}

	r.batchMu.Lock()
	for playerID := range positions {
		delete(r.batchBuffer, playerID)
	}
	r.batchMu.Unlock()

	return r.flushBatch(ctx, batch)
}

// ActivePlayerCount возвращает количество сохранённых позиций
func (r *RedisPositionRepo) ActivePlayerCount(ctx context.Context) (int64, error) {
	var count int64
	iter := r.client.Scan(ctx, 0, r.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта игроков: %w", err)
	}
	return count, nil
}

// Close сбрасывает буфер и закрывает соединение с Redis
func (r *RedisPositionRepo) Close() error {
	// Останавливаем батч-флашер
	close(r.shutdown)
	r.wg.Wait()
	r.batchTicker.Stop()

	// Сбрасываем оставшиеся данные
	r.batchMu.Lock()
	batch := r.batchBuffer
	r.batchBuffer = make(map[uuid.UUID]*PlayerPosition)
	r.batchMu.Unlock()

	if err := r.flushBatch(context.Background(), batch); err != nil {
		logging.GetStorageLogger().Error("❌ Не удалось сбросить позиции при закрытии: %v", err)
	}

	return r.client.Close()
}

// batchFlusher периодически сбрасывает батч-буфер
func (r *RedisPositionRepo) batchFlusher() {
	defer r.wg.Done()

	for {
		select {
		case <-r.shutdown:
			return
		case <-r.batchTicker.C:
			r.batchMu.Lock()
			if len(r.batchBuffer) == 0 {
				r.batchMu.Unlock()
				continue
			}
			batch := r.batchBuffer
			r.batchBuffer = make(map[uuid.UUID]*PlayerPosition)
			r.batchMu.Unlock()

			if err := r.flushBatch(context.Background(), batch); err != nil {
				logging.GetStorageLogger().Error("❌ Не удалось сбросить батч позиций: %v", err)
			}
		}
	}
}

// flushBatch записывает батч позиций в Redis
func (r *RedisPositionRepo) flushBatch(ctx context.Context, batch map[uuid.UUID]*PlayerPosition) error {
	if len(batch) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for playerID, pos := range batch {
		data, err := json.Marshal(pos)
		if err != nil {
			logging.GetStorageLogger().Warn("⚠️ Не удалось сериализовать позицию %s: %v", playerID, err)
			continue
		}
		pipe.Set(ctx, r.key(playerID), data, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ошибка выполнения батча: %w", err)
	}
	return nil
}
