package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/annel0/voxel-core/internal/app"
	"github.com/annel0/voxel-core/internal/config"
	"github.com/annel0/voxel-core/internal/logging"
	"github.com/annel0/voxel-core/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "Путь к YAML конфигурации (по умолчанию ENV VOXEL_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// === ЛОГИРОВАНИЕ ===
	logging.SetLogDir(cfg.Logging.Dir)
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logging.LogWarn("⚠️ %v, используется INFO", err)
	}
	logging.SetConsoleLevel(level)

	logging.LogInfo("🧱 Запуск voxel-core: seed=%d, хранилище=%s", cfg.World.Seed, cfg.Storage.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === ТРАССИРОВКА ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, app.ServiceName, cfg.Server.OTLPEndpoint)
	if err != nil {
		logging.LogError("❌ Ошибка инициализации OpenTelemetry: %v", err)
	} else {
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				logging.LogError("❌ Ошибка остановки OpenTelemetry: %v", err)
			}
		}()
	}

	// === КОМПОНЕНТЫ ===
	server, err := app.New(ctx, cfg)
	if err != nil {
		logging.LogError("❌ Ошибка инициализации сервера: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := server.Close(); err != nil {
			logging.LogError("❌ Ошибка закрытия ресурсов: %v", err)
		}
	}()

	logging.LogInfo("✅ Все сервисы запущены")
	logging.LogInfo("   🌐 REST API: http://localhost:%d/api", cfg.Server.GetRESTPort())
	logging.LogInfo("   ❤️  Health check: http://localhost:%d/health", cfg.Server.GetRESTPort())
	logging.LogInfo("   📈 Метрики: http://localhost:%d/metrics", cfg.Server.GetMetricsPort())

	if err := server.Run(ctx); err != nil {
		logging.LogError("❌ Сервер остановлен с ошибкой: %v", err)
		return
	}
	logging.LogInfo("👋 Сервер успешно остановлен")
}
