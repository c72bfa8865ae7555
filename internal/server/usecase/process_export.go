package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"memorybook-parser/internal/adapters/archive"
	"memorybook-parser/internal/adapters/parser"
	"memorybook-parser/internal/cache"
	"memorybook-parser/internal/core/services"
	"memorybook-parser/internal/domain"
	"memorybook-parser/internal/pkg/config"
	"memorybook-parser/internal/ports"
)

// ProcessExportUseCase инкапсулирует конвейер обработки одного загруженного
// файла экспорта: чтение архива, извлечение изображений, определение формата,
// разбор, разрешение отправителя, связывание медиа и агрегация.
type ProcessExportUseCase struct {
	cfg            *config.Config
	archiveReader  ports.ArchiveReader
	jsonParser     ports.Parser
	whatsappParser ports.Parser
	extractor      ports.ImageExtractor
	resolver       ports.IdentityResolver
	linker         ports.MediaLinker
	aggregator     ports.Aggregator
	cacheStore     *cache.CacheStore
}

// NewProcessExportUseCase создает новый экземпляр ProcessExportUseCase.
func NewProcessExportUseCase(
	cfg *config.Config,
	archiveReader ports.ArchiveReader,
	jsonParser ports.Parser,
	whatsappParser ports.Parser,
	extractor ports.ImageExtractor,
	resolver ports.IdentityResolver,
	linker ports.MediaLinker,
	aggregator ports.Aggregator,
	cacheStore *cache.CacheStore,
) *ProcessExportUseCase {
	return &ProcessExportUseCase{
		cfg:            cfg,
		archiveReader:  archiveReader,
		jsonParser:     jsonParser,
		whatsappParser: whatsappParser,
		extractor:      extractor,
		resolver:       resolver,
		linker:         linker,
		aggregator:     aggregator,
		cacheStore:     cacheStore,
	}
}

// ProcessExport обрабатывает один загруженный файл экспорта.
// Наружу распространяется только терминальная ошибка "невозможно начать"
// (битый архив, нечитаемый документ); все остальное деградирует до
// частичного результата: импорт книги не должен срываться из-за одной
// битой строки или пропавшего изображения.
func (uc *ProcessExportUseCase) ProcessExport(ctx context.Context, ds ports.DataSource) (*domain.ParseSessionResult, error) {
	data, err := ds.Fetch()
	if err != nil {
		return nil, fmt.Errorf("не удалось извлечь данные из источника: %w", err)
	}

	name := ds.Name()

	// Проверка кеша по хешу содержимого
	hash := cache.CalculateHashFromBytes(data)
	if cachedItem, found := uc.cacheStore.Get(hash); found {
		slog.Info("Попадание в кеш для загрузки", "hash", hash, "name", name)
		return cachedItem.Data, nil
	}

	slog.Info("Обработка загруженного экспорта", "name", name, "size", len(data))

	var batches [][]domain.NormalizedMessage
	var images map[string]string

	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip":
		batches, images, err = uc.processArchive(ctx, data)
		if err != nil {
			return nil, err
		}
	case ".json":
		batch, parseErr := uc.jsonParser.Parse(data)
		if parseErr != nil {
			return nil, fmt.Errorf("не удалось разобрать JSON-экспорт %s: %w", name, parseErr)
		}
		batches = append(batches, batch)
	default:
		// Сырая расшифровка WhatsApp (.txt). Нераспознанные строки
		// дают ноль сообщений, но не ошибку.
		batch, parseErr := uc.whatsappParser.Parse(data)
		if parseErr != nil {
			return nil, fmt.Errorf("не удалось разобрать расшифровку %s: %w", name, parseErr)
		}
		batches = append(batches, batch)
	}

	allMessages := flatten(batches)
	uc.resolver.Resolve(allMessages)
	uc.linker.Link(allMessages, images)

	result := uc.aggregator.Aggregate([][]domain.NormalizedMessage{allMessages}, images)
	slog.Info("Обработка успешно завершена",
		"name", name,
		"message_count", result.Metadata.TotalMessages,
		"image_count", result.Metadata.TotalImages,
		"participant_count", len(result.Metadata.Participants))

	// Результаты с подставленным временем обработки зависят от момента
	// запуска и не кешируются
	if !result.HasFallbackTimestamps() {
		ttl := uc.cfg.CacheTTL()
		uc.cacheStore.Put(hash, result, ttl)
		slog.Info("Результат кеширован", "hash", hash, "ttl", ttl.String())
	}

	return result, nil
}

// processArchive обрабатывает zip-контейнер: извлекает изображения и
// разбирает каждый текстовый элемент своей стратегией. Элементы,
// не прошедшие классификацию, молча исключаются из результата.
func (uc *ProcessExportUseCase) processArchive(ctx context.Context, data []byte) ([][]domain.NormalizedMessage, map[string]string, error) {
	entries, err := uc.archiveReader.Entries(data)
	if err != nil {
		// Терминальная ошибка: загрузка отклоняется без повторов
		return nil, nil, err
	}

	images, err := uc.extractor.Extract(ctx, entries)
	if err != nil {
		return nil, nil, fmt.Errorf("извлечение изображений прервано: %w", err)
	}

	var batches [][]domain.NormalizedMessage
	for _, entry := range entries {
		if entry.IsDirectory || services.IsImageEntry(entry.Filename) {
			continue
		}

		content, readErr := archive.ReadEntry(entry)
		if readErr != nil {
			slog.Warn("элемент архива не прочитан, пропущен", "filename", entry.Filename, "error", readErr)
			continue
		}

		format := parser.DetectFormat(entry.Filename, content)
		var entryParser ports.Parser
		switch format {
		case parser.FormatJSON:
			entryParser = uc.jsonParser
		case parser.FormatWhatsApp, parser.FormatGenericText:
			entryParser = uc.whatsappParser
		default:
			continue
		}

		batch, parseErr := entryParser.Parse(content)
		if parseErr != nil {
			// Нечитаемый элемент дает ноль сообщений, но не валит сессию
			slog.Warn("элемент архива не разобран, пропущен",
				"filename", entry.Filename,
				"format", string(format),
				"error", parseErr)
			continue
		}

		slog.Info("Разобран элемент архива",
			"filename", entry.Filename,
			"format", string(format),
			"message_count", len(batch))
		batches = append(batches, batch)
	}

	return batches, images, nil
}

func flatten(batches [][]domain.NormalizedMessage) []domain.NormalizedMessage {
	var all []domain.NormalizedMessage
	for _, batch := range batches {
		all = append(all, batch...)
	}
	return all
}
