package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

// buildZip собирает zip-архив в памяти из карты имя файла -> содержимое.
func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("Не удалось создать элемент %s: %v", name, err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("Не удалось записать элемент %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Не удалось закрыть архив: %v", err)
	}
	return buf.Bytes()
}

func TestZipReader(t *testing.T) {
	t.Run("Перечисление элементов архива", func(t *testing.T) {
		r := NewZipReader()
		data := buildZip(t, map[string][]byte{
			"chat.txt":         []byte("hello"),
			"photos/img_1.jpg": []byte{0x01, 0x02},
		})

		entries, err := r.Entries(data)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if len(entries) != 2 {
			t.Errorf("Ожидалось 2 элемента, получено %d", len(entries))
		}
	})

	t.Run("Каталоги пропускаются", func(t *testing.T) {
		var buf bytes.Buffer
		w := zip.NewWriter(&buf)
		if _, err := w.Create("photos/"); err != nil {
			t.Fatalf("Не удалось создать каталог: %v", err)
		}
		fw, err := w.Create("photos/img.jpg")
		if err != nil {
			t.Fatalf("Не удалось создать файл: %v", err)
		}
		if _, err := fw.Write([]byte{0x01}); err != nil {
			t.Fatalf("Не удалось записать файл: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Не удалось закрыть архив: %v", err)
		}

		r := NewZipReader()
		entries, err := r.Entries(buf.Bytes())
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("Ожидался 1 элемент (каталог пропущен), получено %d", len(entries))
		}
		if entries[0].Filename != "photos/img.jpg" {
			t.Errorf("Неожиданное имя элемента: %s", entries[0].Filename)
		}
	})

	t.Run("Битый контейнер дает ErrArchiveCorrupt", func(t *testing.T) {
		r := NewZipReader()

		entries, err := r.Entries([]byte("definitely not a zip archive"))
		if err == nil {
			t.Fatal("Ожидалась ошибка для битого архива, получено nil")
		}
		if !errors.Is(err, ErrArchiveCorrupt) {
			t.Errorf("Ожидался ErrArchiveCorrupt, получено %v", err)
		}
		if entries != nil {
			t.Error("Ожидался nil для битого архива")
		}
	})

	t.Run("Ленивое чтение содержимого элемента", func(t *testing.T) {
		r := NewZipReader()
		data := buildZip(t, map[string][]byte{"chat.txt": []byte("hello zip")})

		entries, err := r.Entries(data)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("Ожидался 1 элемент, получено %d", len(entries))
		}

		content, err := ReadEntry(entries[0])
		if err != nil {
			t.Fatalf("Не удалось прочитать элемент: %v", err)
		}
		if string(content) != "hello zip" {
			t.Errorf("Ожидалось содержимое 'hello zip', получено '%s'", string(content))
		}
	})
}
