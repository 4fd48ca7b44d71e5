package logging

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает имя уровня без учёта регистра
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "INFO", "":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("неизвестный уровень логирования: %q", s)
	}
}

// Logger пишет сообщения в консоль и в файл с разными порогами
type Logger struct {
	component       string
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

var (
	logDirMu     sync.RWMutex
	logDir       = "logs"
	consoleLevel = INFO

	// Глобальный экземпляр логгера
	globalLogger *Logger

	// defaultLogger используется до InitLogger и как запасной вариант
	defaultLogger = &Logger{
		consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
		minConsoleLevel: INFO,
		minFileLevel:    ERROR,
	}
)

// SetLogDir задаёт каталог для файлов логов
func SetLogDir(dir string) {
	logDirMu.Lock()
	defer logDirMu.Unlock()
	logDir = dir
}

func currentLogDir() string {
	logDirMu.RLock()
	defer logDirMu.RUnlock()
	return logDir
}

// NewLogger создаёт логгер компонента с отдельным файлом в каталоге логов
func NewLogger(component string) (*Logger, error) {
	dir := currentLogDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", dir, err)
	}

	// Создаем файл для логов с временной меткой
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(dir, fmt.Sprintf("%s_%s.log", component, timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	return &Logger{
		component:       component,
		consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
		fileLogger:      log.New(file, "", log.LstdFlags),
		file:            file,
		minConsoleLevel: currentConsoleLevel(),
		minFileLevel:    TRACE,
	}, nil
}

// NewWriterLogger создаёт логгер без файла, пишущий в w. Удобен для тестов и утилит.
func NewWriterLogger(component string, w io.Writer, level LogLevel) *Logger {
	return &Logger{
		component:       component,
		consoleLogger:   log.New(w, "", log.LstdFlags),
		minConsoleLevel: level,
		minFileLevel:    ERROR,
	}
}

// InitLogger инициализирует систему логирования сервера
func InitLogger() error {
	return InitDefaultLogger("server")
}

// InitDefaultLogger инициализирует глобальный логгер с указанным именем файла
func InitDefaultLogger(name string) error {
	logger, err := NewLogger(name)
	if err != nil {
		return err
	}
	globalLogger = logger
	return nil
}

// CloseLogger закрывает систему логирования
func CloseLogger() {
	if globalLogger != nil {
		globalLogger.Close()
		globalLogger = nil
	}
}

// CloseDefaultLogger закрывает глобальный логгер
func CloseDefaultLogger() {
	CloseLogger()
}

// SetConsoleLevel меняет порог вывода в консоль у глобального логгера,
// у уже созданных логгеров компонентов и у всех последующих
func SetConsoleLevel(level LogLevel) {
	logDirMu.Lock()
	consoleLevel = level
	logDirMu.Unlock()

	current().minConsoleLevel = level
	lm := GetLoggerManager()
	for _, component := range lm.ListComponents() {
		_ = lm.SetLogLevel(component, level, TRACE)
	}
}

func currentConsoleLevel() LogLevel {
	logDirMu.RLock()
	defer logDirMu.RUnlock()
	return consoleLevel
}

func current() *Logger {
	if globalLogger != nil {
		return globalLogger
	}
	return defaultLogger
}

// Close закрывает файл логгера
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.fileLogger = nil
	return err
}

// Component возвращает имя компонента
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.minConsoleLevel && (l.fileLogger == nil || level < l.minFileLevel) {
		return
	}

	message := fmt.Sprintf(format, args...)
	if l.component != "" {
		message = fmt.Sprintf("[%s] [%s] %s", level.String(), l.component, message)
	} else {
		message = fmt.Sprintf("[%s] %s", level.String(), message)
	}

	if l.fileLogger != nil && level >= l.minFileLevel {
		l.fileLogger.Println(message)
	}
	if level >= l.minConsoleLevel {
		l.consoleLogger.Println(message)
	}
}

// LogTrace логирует сообщение уровня TRACE
func LogTrace(format string, args ...interface{}) {
	current().log(TRACE, format, args...)
}

// LogDebug логирует сообщение уровня DEBUG
func LogDebug(format string, args ...interface{}) {
	current().log(DEBUG, format, args...)
}

// LogInfo логирует сообщение уровня INFO
func LogInfo(format string, args ...interface{}) {
	current().log(INFO, format, args...)
}

// LogWarn логирует сообщение уровня WARN
func LogWarn(format string, args ...interface{}) {
	current().log(WARN, format, args...)
}

// LogError логирует сообщение уровня ERROR
func LogError(format string, args ...interface{}) {
	current().log(ERROR, format, args...)
}

// HexDump создает hex дамп данных
func HexDump(data []byte) string {
	if len(data) == 0 {
		return "No data"
	}

	// Ограничиваем размер дампа до 256 байт
	size := min(len(data), 256)
	return hex.Dump(data[:size])
}

// LogSectionPayload логирует сохранённую секцию с hex дампом начала данных
func LogSectionPayload(key string, blocks int, payload []byte) {
	LogDebug("Секция %s: %d блоков, %d байт", key, blocks, len(payload))
	if len(payload) > 0 {
		LogTrace("%s", HexDump(payload))
	}
}

// LogBlockChange логирует изменение блока
func LogBlockChange(x, y, z int, mutation string, from, to string) {
	LogDebug("Блок (%d,%d,%d): %s %s -> %s", x, y, z, mutation, from, to)
}

// LogActorMovement логирует перемещение актёра за тик
func LogActorMovement(actor string, fromX, fromY, fromZ, toX, toY, toZ float64) {
	LogTrace("Актёр %s: (%.2f,%.2f,%.2f) -> (%.2f,%.2f,%.2f)",
		actor, fromX, fromY, fromZ, toX, toY, toZ)
}
