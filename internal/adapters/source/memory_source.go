package source

import (
	"fmt"

	"memorybook-parser/internal/ports"
)

// MemorySource реализует интерфейс DataSource для чтения данных из памяти.
// Используется для загрузок по HTTP, где имя файла приходит вместе с байтами.
type MemorySource struct {
	name string
	data []byte
}

// NewMemorySource создает новый экземпляр MemorySource.
func NewMemorySource(name string, data []byte) ports.DataSource {
	return &MemorySource{name: name, data: data}
}

// Fetch возвращает данные из памяти.
func (s *MemorySource) Fetch() ([]byte, error) {
	if s.data == nil {
		return nil, fmt.Errorf("данные не установлены")
	}

	// Возвращаем копию данных, чтобы избежать изменений оригинальных данных
	dataCopy := make([]byte, len(s.data))
	copy(dataCopy, s.data)

	return dataCopy, nil
}

// Name возвращает имя загруженного файла.
func (s *MemorySource) Name() string {
	return s.name
}
