package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"memorybook-parser/internal/adapters/archive"
	"memorybook-parser/internal/adapters/parser"
	"memorybook-parser/internal/cache"
	"memorybook-parser/internal/core/services"
	"memorybook-parser/internal/log"
	"memorybook-parser/internal/pkg/config"
	"memorybook-parser/internal/server"
	"memorybook-parser/internal/server/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера с маскировкой номеров телефонов
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	logger := log.NewMaskedLogger(handler)
	slog.SetDefault(logger)

	// 3. Валидация конфигурации (после инициализации логгера)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 4. Инициализация зависимостей конвейера
	taskStore := server.NewTaskStore()
	cacheStore := cache.NewCacheStore()
	archiveReader := archive.NewZipReader()
	jsonParser := parser.NewJsonParser()
	whatsappParser := parser.NewWhatsappParser()
	extractor := services.NewImageExtractionService(
		services.WithPoolSize(cfg.Extraction.PoolSize),
		services.WithExtractionLogger(logger.With(slog.String("component", "extractor"))),
	)
	resolver := services.NewIdentityService()
	linker := services.NewLinkerService()
	aggregator := services.NewAggregateService()
	processor := usecase.NewProcessExportUseCase(cfg,
		archiveReader, jsonParser, whatsappParser,
		extractor, resolver, linker, aggregator, cacheStore)

	// 5. Создание HTTP-сервера
	srv, err := server.New(cfg, processor, taskStore, cacheStore)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// 6. Запуск сервера и graceful shutdown
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		slog.Info("Starting server", "addr", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Signal received, shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	<-serverDone
	slog.Info("HTTP server stopped")

	slog.Info("Application exited gracefully")
	return nil
}
