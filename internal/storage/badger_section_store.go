package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/voxel-core/internal/vec"
)

var tracer = otel.Tracer("voxel-core/storage")

// BadgerSectionStore хранит секции в BadgerDB под ключами section:x:z:y
type BadgerSectionStore struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerSectionStore открывает (или создаёт) базу в каталоге dbPath
func NewBadgerSectionStore(dbPath string) (*BadgerSectionStore, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &BadgerSectionStore{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

// Path возвращает каталог базы
func (bs *BadgerSectionStore) Path() string {
	return bs.dbPath
}

// Close закрывает хранилище данных
func (bs *BadgerSectionStore) Close() error {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	if !bs.isReady {
		return nil
	}

	bs.isReady = false
	return bs.db.Close()
}

func (bs *BadgerSectionStore) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func finishSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrSectionNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Put сохраняет секцию
func (bs *BadgerSectionStore) Put(ctx context.Context, pos vec.Vec3, payload []byte) (err error) {
	key := SectionKey(pos)
	_, span := bs.startSpan(ctx, "badger.Put", attribute.String("key", key), attribute.Int("bytes", len(payload)))
	defer func() { finishSpan(span, err) }()

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return ErrNotReady
	}

	err = bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), payload)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// Get читает секцию; если её нет, возвращает ErrSectionNotFound
func (bs *BadgerSectionStore) Get(ctx context.Context, pos vec.Vec3) (data []byte, err error) {
	key := SectionKey(pos)
	_, span := bs.startSpan(ctx, "badger.Get", attribute.String("key", key))
	defer func() { finishSpan(span, err) }()

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return nil, ErrNotReady
	}

	err = bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrSectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return data, nil
}

// Delete удаляет секцию
func (bs *BadgerSectionStore) Delete(ctx context.Context, pos vec.Vec3) (err error) {
	key := SectionKey(pos)
	_, span := bs.startSpan(ctx, "badger.Delete", attribute.String("key", key))
	defer func() { finishSpan(span, err) }()

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return ErrNotReady
	}

	err = bs.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}

// ListChunk читает все секции столбца одним проходом по префиксу
func (bs *BadgerSectionStore) ListChunk(ctx context.Context, coords vec.Vec2) (result map[int][]byte, err error) {
	prefix := []byte(ChunkPrefix(coords))
	_, span := bs.startSpan(ctx, "badger.ListChunk", attribute.String("prefix", string(prefix)))
	defer func() { finishSpan(span, err) }()

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return nil, ErrNotReady
	}

	result = make(map[int][]byte)
	err = bs.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			pos, err := ParseSectionKey(string(item.Key()))
			if err != nil {
				return err
			}

			payload, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[pos.Y] = payload
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка обхода BadgerDB: %w", err)
	}

	span.SetAttributes(attribute.Int("sections", len(result)))
	return result, nil
}

// Keys возвращает все ключи секций. Используется утилитами.
func (bs *BadgerSectionStore) Keys(ctx context.Context) ([]string, error) {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()

	if !bs.isReady {
		return nil, ErrNotReady
	}

	var keys []string
	err := bs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte("section:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка обхода BadgerDB: %w", err)
	}
	return keys, nil
}
