package logging

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Имена компонентов. Каждый пишет в свой файл <component>_<время>.log.
const (
	ComponentWorld   = "world"
	ComponentPhysics = "physics"
	ComponentStorage = "storage"
	ComponentEvents  = "events"
	ComponentAPI     = "api"
)

// LoggerManager раздаёт логгеры компонентов, создавая каждый не больше одного раза
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{loggers: make(map[string]*Logger)}
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, при первом обращении открывая его файл
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	logger, ok := lm.loggers[component]
	lm.mu.RUnlock()
	if ok {
		return logger, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер %s: %w", component, err)
	}
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger не возвращает ошибку: если файл не открылся, компонент пишет только в stdout
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		fallback := NewWriterLogger(component, os.Stdout, currentConsoleLevel())
		fallback.Warn("⚠️ %v, пишем только в консоль", err)
		return fallback
	}
	return logger
}

// CloseAll закрывает файлы всех компонентов и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("закрытие логгера %s: %w", component, err))
		}
	}
	lm.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

// ListComponents возвращает имена открытых компонентов по алфавиту
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// SetLogLevel меняет пороги уже открытого компонента
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	logger, ok := lm.loggers[component]
	if !ok {
		return fmt.Errorf("логгер компонента %s не найден", component)
	}
	logger.minConsoleLevel = consoleLevel
	logger.minFileLevel = fileLevel
	return nil
}

func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

// GetWorldLogger: генерация, чанки, симуляция
func GetWorldLogger() *Logger { return GetComponentLogger(ComponentWorld) }

// GetPhysicsLogger: коррекции столкновений
func GetPhysicsLogger() *Logger { return GetComponentLogger(ComponentPhysics) }

func GetStorageLogger() *Logger { return GetComponentLogger(ComponentStorage) }
func GetEventsLogger() *Logger  { return GetComponentLogger(ComponentEvents) }
func GetAPILogger() *Logger     { return GetComponentLogger(ComponentAPI) }
