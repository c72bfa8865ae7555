package domain

import (
	"io"
	"time"
)

// UnknownSender — имя-заглушка для сообщений, у которых не удалось
// распознать отправителя.
const UnknownSender = "Unknown"

// MediaType — тип вложения, на которое ссылается сообщение.
type MediaType string

const (
	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeAudio    MediaType = "audio"
	MediaTypeDocument MediaType = "document"
)

// Media описывает вложение, связанное с сообщением.
// URL может быть пустым, если подходящее изображение не было найдено.
type Media struct {
	Type     MediaType `json:"type"`
	URL      string    `json:"url"`
	Filename string    `json:"filename,omitempty"`
}

// NormalizedMessage — каноническое внутреннее представление одного сообщения
// чата, независимое от платформы-источника.
type NormalizedMessage struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsMe      bool      `json:"isMe"`
	Media     *Media    `json:"media,omitempty"`

	// TimestampFallback — true, если временная метка не была восстановлена
	// из источника и подставлено время обработки. Не сериализуется:
	// это диагностический признак, а не часть контракта.
	TimestampFallback bool `json:"-"`
}

// ArchiveEntry — один элемент внутри загруженного архива.
// Содержимое материализуется лениво через Open, чтобы не держать
// весь архив в памяти без необходимости.
type ArchiveEntry struct {
	Filename    string
	IsDirectory bool
	Open        func() (io.ReadCloser, error)
}

// ExtractedImage — изображение, извлеченное из архива.
// Filename служит ключом соединения с текстовым потоком сообщений.
type ExtractedImage struct {
	Filename string `json:"filename"`
	DataURI  string `json:"dataUri"`
}

// DateRange — диапазон дат сообщений сессии.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SessionMetadata — сводные метаданные одной сессии разбора.
type SessionMetadata struct {
	TotalMessages int        `json:"totalMessages"`
	TotalImages   int        `json:"totalImages"`
	DateRange     *DateRange `json:"dateRange"`
	Participants  []string   `json:"participants"`
}

// ParseSessionResult — итог одной сессии разбора загруженного файла.
// После построения не изменяется. Release вызывает только единоличный
// владелец результата; экземпляры, разделяемые кешем и задачами,
// отдаются сборщику мусора.
type ParseSessionResult struct {
	Messages []NormalizedMessage `json:"messages"`
	Images   map[string]string   `json:"images"`
	Metadata SessionMetadata     `json:"metadata"`
}

// HasFallbackTimestamps сообщает, содержит ли сессия сообщения с
// подставленным временем обработки. Такие результаты зависят от момента
// запуска и не должны кешироваться.
func (r *ParseSessionResult) HasFallbackTimestamps() bool {
	for i := range r.Messages {
		if r.Messages[i].TimestampFallback {
			return true
		}
	}
	return false
}

// Release освобождает ресурсы изображений сессии: очищает карту изображений
// и ссылки на них в сообщениях. Повторный вызов безопасен.
func (r *ParseSessionResult) Release() {
	for k := range r.Images {
		delete(r.Images, k)
	}
	for i := range r.Messages {
		if r.Messages[i].Media != nil {
			r.Messages[i].Media.URL = ""
		}
	}
}
