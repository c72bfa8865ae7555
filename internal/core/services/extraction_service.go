package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	// Регистрация декодеров для проверки целостности изображений.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"memorybook-parser/internal/adapters/archive"
	"memorybook-parser/internal/domain"
	"memorybook-parser/internal/ports"
)

// Расширения файлов, которые обрабатываются как изображения.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// MIME-типы по имени формата, которое возвращает image.DecodeConfig.
var mimeByFormat = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
}

// ExtractionOption — функциональная опция для настройки ImageExtractionService.
type ExtractionOption func(*ImageExtractionService)

// WithPoolSize устанавливает количество одновременных воркеров извлечения.
func WithPoolSize(n int) ExtractionOption {
	return func(s *ImageExtractionService) {
		if n > 0 {
			s.poolSize = n
		}
	}
}

// WithExtractionLogger устанавливает логгер для сервиса.
func WithExtractionLogger(l *slog.Logger) ExtractionOption {
	return func(s *ImageExtractionService) {
		if l != nil {
			s.log = l
		}
	}
}

// ImageExtractionService реализует интерфейс ImageExtractor: декодирует
// элементы-изображения архива в самодостаточные data URI.
// Сервис не хранит состояние и безопасен для одновременного использования.
type ImageExtractionService struct {
	poolSize int
	log      *slog.Logger
}

// NewImageExtractionService создает новый ImageExtractionService
// с использованием функциональных опций.
func NewImageExtractionService(opts ...ExtractionOption) ports.ImageExtractor {
	s := &ImageExtractionService{
		poolSize: 1,
		log:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// IsImageEntry сообщает, обрабатывается ли элемент архива как изображение
// (по расширению имени файла, без учета регистра).
func IsImageEntry(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Extract декодирует изображения из элементов архива.
// Сбой одного элемента логируется и пропускается: одно битое изображение
// не должно прерывать весь импорт.
func (s *ImageExtractionService) Extract(ctx context.Context, entries []domain.ArchiveEntry) (map[string]string, error) {
	var imageEntries []domain.ArchiveEntry
	for _, entry := range entries {
		if !entry.IsDirectory && IsImageEntry(entry.Filename) {
			imageEntries = append(imageEntries, entry)
		}
	}

	images := make(map[string]string, len(imageEntries))
	if len(imageEntries) == 0 {
		return images, nil
	}

	jobs := make(chan domain.ArchiveEntry)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := s.poolSize
	if workers > len(imageEntries) {
		workers = len(imageEntries)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				dataURI, err := decodeToDataURI(entry)
				if err != nil {
					s.log.Warn("изображение пропущено",
						slog.String("filename", entry.Filename),
						slog.String("error", err.Error()))
					continue
				}
				mu.Lock()
				images[entry.Filename] = dataURI
				mu.Unlock()
			}
		}()
	}

	for _, entry := range imageEntries {
		// Отмена имеет приоритет над раздачей работы
		if ctx.Err() != nil {
			close(jobs)
			wg.Wait()
			return images, ctx.Err()
		}
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return images, ctx.Err()
		case jobs <- entry:
		}
	}
	close(jobs)
	wg.Wait()

	return images, nil
}

// decodeToDataURI читает элемент архива, проверяет, что это декодируемое
// изображение, и кодирует его содержимое в data URI.
func decodeToDataURI(entry domain.ArchiveEntry) (string, error) {
	content, err := archive.ReadEntry(entry)
	if err != nil {
		return "", err
	}
	if len(content) == 0 {
		return "", fmt.Errorf("empty image entry")
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	mime, known := mimeByFormat[format]
	if !known {
		mime = "application/octet-stream"
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(content), nil
}
