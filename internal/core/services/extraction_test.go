package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"memorybook-parser/internal/domain"
)

// pngBytes кодирует маленькое валидное PNG-изображение.
func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Не удалось закодировать PNG: %v", err)
	}
	return buf.Bytes()
}

// memEntry создает элемент архива с содержимым в памяти.
func memEntry(filename string, content []byte) domain.ArchiveEntry {
	return domain.ArchiveEntry{
		Filename: filename,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

func TestImageExtractionService(t *testing.T) {
	t.Run("NewImageExtractionService создает корректный экземпляр", func(t *testing.T) {
		s := NewImageExtractionService()
		if s == nil {
			t.Error("Ожидался экземпляр ImageExtractionService, получен nil")
		}
	})

	t.Run("Извлечение валидных изображений", func(t *testing.T) {
		s := NewImageExtractionService(WithPoolSize(2))
		valid := pngBytes(t)

		entries := []domain.ArchiveEntry{
			memEntry("photos/a.png", valid),
			memEntry("photos/b.PNG", valid),
			memEntry("chat.txt", []byte("not an image")),
		}

		images, err := s.Extract(context.Background(), entries)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		if len(images) != 2 {
			t.Fatalf("Ожидалось 2 изображения, получено %d", len(images))
		}
		if !strings.HasPrefix(images["photos/a.png"], "data:image/png;base64,") {
			t.Errorf("Ожидался data URI с префиксом image/png, получено '%.40s'", images["photos/a.png"])
		}
	})

	t.Run("Битое изображение пропускается без ошибки", func(t *testing.T) {
		s := NewImageExtractionService()
		valid := pngBytes(t)

		entries := []domain.ArchiveEntry{
			memEntry("good1.png", valid),
			memEntry("broken.png", []byte("corrupt bytes")),
			memEntry("good2.png", valid),
		}

		images, err := s.Extract(context.Background(), entries)
		if err != nil {
			t.Fatalf("Неожиданная ошибка на уровне архива: %v", err)
		}

		if len(images) != 2 {
			t.Errorf("Ожидалось 2 изображения (битое пропущено), получено %d", len(images))
		}
		if _, exists := images["broken.png"]; exists {
			t.Error("Битое изображение не должно попадать в результат")
		}
	})

	t.Run("Пустой список элементов дает пустую карту", func(t *testing.T) {
		s := NewImageExtractionService()

		images, err := s.Extract(context.Background(), nil)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if len(images) != 0 {
			t.Errorf("Ожидалась пустая карта, получено %d элементов", len(images))
		}
	})

	t.Run("Отмена контекста прерывает извлечение", func(t *testing.T) {
		s := NewImageExtractionService()
		valid := pngBytes(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		entries := []domain.ArchiveEntry{
			memEntry("a.png", valid),
			memEntry("b.png", valid),
		}

		_, err := s.Extract(ctx, entries)
		if err == nil {
			t.Error("Ожидалась ошибка отмененного контекста")
		}
	})
}

func TestIsImageEntry(t *testing.T) {
	cases := map[string]bool{
		"a.jpg":        true,
		"b.JPEG":       true,
		"photos/c.png": true,
		"d.gif":        true,
		"e.webp":       true,
		"f.BMP":        true,
		"chat.txt":     false,
		"data.json":    false,
		"noext":        false,
	}

	for filename, expected := range cases {
		if got := IsImageEntry(filename); got != expected {
			t.Errorf("IsImageEntry(%q) = %v, ожидалось %v", filename, got, expected)
		}
	}
}
