package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annel0/voxel-core/internal/physics"
)

// Config корневая структура конфигурации приложения.
// Незаданные поля заполняются значениями из Default().
type Config struct {
	World    WorldConfig    `yaml:"world"`
	Physics  PhysicsConfig  `yaml:"physics"`
	Storage  StorageConfig  `yaml:"storage"`
	EventBus EventBusConfig `yaml:"eventbus"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type WorldConfig struct {
	Seed         int64   `yaml:"seed"`
	ViewDistance int     `yaml:"view_distance"` // Радиус загрузки чанков вокруг точки появления
	TickRate     int     `yaml:"tick_rate"`     // Тиков симуляции в секунду
	SaveEvery    int     `yaml:"save_every_seconds"`
	SpawnX       float64 `yaml:"spawn_x"`
	SpawnZ       float64 `yaml:"spawn_z"`
}

type PhysicsConfig struct {
	Pad             float64 `yaml:"pad"`
	StepCooldown    float64 `yaml:"step_cooldown"`
	FallProbe       float64 `yaml:"fall_probe"`
	Gravity         float64 `yaml:"gravity"`
	GravityModifier float64 `yaml:"gravity_modifier"`
	MaxFallDistance float64 `yaml:"max_fall_distance"`
	JumpDecay       float64 `yaml:"jump_decay"`
	JumpCutoff      float64 `yaml:"jump_cutoff"`
	AutoStep        *bool   `yaml:"auto_step"`
}

type StorageConfig struct {
	Backend  string `yaml:"backend"` // memory | badger | tiered
	Path     string `yaml:"path"`    // Каталог BadgerDB
	RedisURL string `yaml:"redis_url"`
	CacheTTL int    `yaml:"cache_ttl_seconds"`
	MariaDSN string `yaml:"maria_dsn"` // Если задан, позиции игроков пишутся в MariaDB
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type ServerConfig struct {
	RESTPort     int    `yaml:"rest_port"`
	MetricsPort  int    `yaml:"metrics_port"`
	OTLPEndpoint string `yaml:"otlp_endpoint"` // host:port коллектора OTLP/HTTP, пусто: без экспорта
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	autoStep := true
	return &Config{
		World: WorldConfig{
			Seed:         12345,
			ViewDistance: 2,
			TickRate:     20,
			SaveEvery:    30,
			SpawnX:       8.5,
			SpawnZ:       8.5,
		},
		Physics: PhysicsConfig{
			Pad:             0.01,
			StepCooldown:    0.25,
			FallProbe:       0.1,
			Gravity:         9.80665,
			GravityModifier: 3.0,
			MaxFallDistance: 5.0,
			JumpDecay:       10.0,
			JumpCutoff:      0.025,
			AutoStep:        &autoStep,
		},
		Storage: StorageConfig{
			Backend:  "memory",
			Path:     "data/world",
			CacheTTL: 300,
		},
		EventBus: EventBusConfig{
			Stream:    "VOXEL_EVENTS",
			Retention: 24,
		},
		Logging: LoggingConfig{
			Level: "INFO",
			Dir:   "logs",
		},
	}
}

// ToEngineConfig переводит секцию physics в параметры движка
func (p PhysicsConfig) ToEngineConfig() physics.Config {
	cfg := physics.DefaultConfig()
	cfg.Pad = p.Pad
	cfg.StepCooldown = p.StepCooldown
	cfg.FallProbe = p.FallProbe
	cfg.Gravity = p.Gravity
	cfg.GravityModifier = p.GravityModifier
	cfg.MaxFallDistance = p.MaxFallDistance
	cfg.JumpDecay = p.JumpDecay
	cfg.JumpCutoff = p.JumpCutoff
	if p.AutoStep != nil {
		cfg.AutoStep = *p.AutoStep
	}
	return cfg
}

// TickInterval возвращает длительность одного тика симуляции
func (w WorldConfig) TickInterval() time.Duration {
	if w.TickRate <= 0 {
		return 50 * time.Millisecond
	}
	return time.Second / time.Duration(w.TickRate)
}

// CacheTTLDuration возвращает время жизни секций в Redis
func (s StorageConfig) CacheTTLDuration() time.Duration {
	return time.Duration(s.CacheTTL) * time.Second
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "VOXEL_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "VOXEL_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", берёт путь из ENV VOXEL_CONFIG; если и он пуст, возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return cfg, nil // конфиг не задан, используем дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения, без которых симуляция работать не может
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "badger", "tiered":
	default:
		return fmt.Errorf("неизвестный backend хранилища: %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "tiered" && c.Storage.RedisURL == "" {
		return fmt.Errorf("для backend tiered нужен storage.redis_url")
	}
	if c.Physics.Pad < 0 || c.Physics.StepCooldown < 0 || c.Physics.FallProbe <= 0 {
		return fmt.Errorf("некорректные параметры физики: pad=%.3f step_cooldown=%.3f fall_probe=%.3f",
			c.Physics.Pad, c.Physics.StepCooldown, c.Physics.FallProbe)
	}
	if c.World.ViewDistance < 0 {
		return fmt.Errorf("view_distance не может быть отрицательным: %d", c.World.ViewDistance)
	}
	return nil
}
