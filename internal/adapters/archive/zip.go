package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"memorybook-parser/internal/domain"
	"memorybook-parser/internal/ports"
)

// ErrArchiveCorrupt — терминальная ошибка: контейнер не открывается вовсе.
// Загрузка должна быть отклонена с пользовательской ошибкой, без повторов.
var ErrArchiveCorrupt = errors.New("archive corrupt")

// ZipReader реализует интерфейс ArchiveReader поверх zip-контейнера.
type ZipReader struct{}

// NewZipReader создает новый экземпляр ZipReader.
func NewZipReader() ports.ArchiveReader {
	return &ZipReader{}
}

// Entries открывает архив из байтового среза и возвращает его элементы.
// Каталоги пропускаются. Содержимое элементов не читается: каждый элемент
// несет ленивую функцию Open, распаковка происходит по запросу.
func (r *ZipReader) Entries(data []byte) ([]domain.ArchiveEntry, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
	}

	var entries []domain.ArchiveEntry
	for _, zipFile := range zipReader.File {
		if zipFile.FileInfo().IsDir() {
			continue
		}

		zf := zipFile
		entries = append(entries, domain.ArchiveEntry{
			Filename: filepath.ToSlash(zf.Name),
			Open: func() (io.ReadCloser, error) {
				rc, openErr := zf.Open()
				if openErr != nil {
					return nil, fmt.Errorf("open zip entry %q: %w", zf.Name, openErr)
				}
				return rc, nil
			},
		})
	}

	return entries, nil
}

// ReadEntry полностью материализует содержимое одного элемента архива.
func ReadEntry(entry domain.ArchiveEntry) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read zip entry %q: %w", entry.Filename, err)
	}

	return content, nil
}
