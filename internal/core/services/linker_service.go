package services

import (
	"sort"

	"memorybook-parser/internal/domain"
	"memorybook-parser/internal/ports"
)

// LinkerService реализует интерфейс MediaLinker.
// Форматы экспорта не несут надежной привязки файла к сообщению, поэтому
// связывание выполняется по принципу "первое неиспользованное изображение".
// Это явное приближение; отсутствие подходящего изображения никогда
// не блокирует выдачу сообщения.
type LinkerService struct{}

// NewLinkerService создает новый экземпляр LinkerService.
func NewLinkerService() ports.MediaLinker {
	return &LinkerService{}
}

// Link сопоставляет извлеченные изображения сообщениям с вложениями
// без разрешенной ссылки. Сначала пробуется точное совпадение по имени
// файла, затем первое еще не использованное изображение.
// URL вложения может остаться пустой строкой.
func (s *LinkerService) Link(messages []domain.NormalizedMessage, images map[string]string) {
	if len(images) == 0 {
		return
	}

	// Детерминированный порядок выдачи изображений
	filenames := make([]string, 0, len(images))
	for filename := range images {
		filenames = append(filenames, filename)
	}
	sort.Strings(filenames)

	used := make(map[string]bool, len(filenames))

	// Первый проход: точные совпадения по имени файла
	for i := range messages {
		media := messages[i].Media
		if media == nil || media.Filename == "" {
			continue
		}
		if filename, ok := matchByName(media.Filename, filenames, used); ok {
			media.URL = images[filename]
			media.Filename = filename
			used[filename] = true
		}
	}

	// Второй проход: первое неиспользованное изображение
	for i := range messages {
		media := messages[i].Media
		if media == nil || media.URL != "" || media.Type != domain.MediaTypeImage {
			continue
		}
		for _, filename := range filenames {
			if used[filename] {
				continue
			}
			media.URL = images[filename]
			media.Filename = filename
			used[filename] = true
			break
		}
	}
}

// matchByName ищет изображение, чье имя в архиве совпадает с именем,
// на которое ссылается сообщение (по базовому имени, без каталогов).
func matchByName(wanted string, filenames []string, used map[string]bool) (string, bool) {
	wantedBase := baseName(wanted)
	for _, filename := range filenames {
		if used[filename] {
			continue
		}
		if filename == wanted || baseName(filename) == wantedBase {
			return filename, true
		}
	}
	return "", false
}

func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}
