package ports

import (
	"context"

	"memorybook-parser/internal/domain"
)

// DataSource определяет интерфейс для получения исходных данных экспорта.
type DataSource interface {
	// Fetch загружает данные из источника и возвращает их в виде байтового среза.
	Fetch() ([]byte, error)
	// Name возвращает имя исходного файла (используется для определения формата).
	Name() string
}

// ArchiveReader определяет интерфейс для чтения загруженного архива.
type ArchiveReader interface {
	// Entries открывает архив и возвращает его элементы (без каталогов).
	// Возвращает ErrArchiveCorrupt, если контейнер не открывается.
	Entries(data []byte) ([]domain.ArchiveEntry, error)
}

// Parser определяет интерфейс для разбора одного текстового элемента экспорта
// в последовательность нормализованных сообщений.
type Parser interface {
	Parse(data []byte) ([]domain.NormalizedMessage, error)
}

// ImageExtractor определяет интерфейс для извлечения изображений из архива
// в самодостаточные data URI, ключом служит имя файла внутри архива.
type ImageExtractor interface {
	Extract(ctx context.Context, entries []domain.ArchiveEntry) (map[string]string, error)
}

// IdentityResolver определяет интерфейс для эвристического назначения
// признака isMe по всей последовательности сообщений сессии.
type IdentityResolver interface {
	Resolve(messages []domain.NormalizedMessage)
}

// MediaLinker определяет интерфейс для связывания извлеченных изображений
// с сообщениями, ссылающимися на вложения.
type MediaLinker interface {
	Link(messages []domain.NormalizedMessage, images map[string]string)
}

// Aggregator определяет интерфейс для слияния разобранных фрагментов
// в итоговый результат сессии.
type Aggregator interface {
	Aggregate(batches [][]domain.NormalizedMessage, images map[string]string) *domain.ParseSessionResult
}

// Exporter определяет интерфейс для вывода результата сессии.
type Exporter interface {
	Export(result *domain.ParseSessionResult) error
}
