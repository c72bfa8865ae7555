package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"memorybook-parser/internal/domain"
	"memorybook-parser/internal/ports"
)

// Таблицы ключей-кандидатов, в порядке приоритета: первый непустой побеждает.
// Новые варианты схем экспорта добавляются расширением таблицы, не ветвлением.
var (
	textKeys      = []string{"text", "message", "content"}
	senderKeys    = []string{"sender_name", "sender", "from", "author"}
	timestampKeys = []string{"timestamp", "date", "time"}
)

// Числовые метки меньше этого порога трактуются как секунды эпохи,
// больше или равные — как миллисекунды. Сознательная эвристика.
const millisecondThreshold = 1e12

// Строковые форматы времени, принимаемые в порядке перечисления.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// JsonParser реализует интерфейс Parser для JSON-экспортов
// Messenger/Instagram.
type JsonParser struct {
	log *slog.Logger
}

// NewJsonParser создает новый экземпляр JsonParser.
func NewJsonParser() ports.Parser {
	return &JsonParser{log: slog.Default()}
}

// Parse разбирает JSON-экспорт в последовательность нормализованных сообщений.
// Принимаются массив записей на верхнем уровне и объект с полем "messages"
// (реальная форма экспорта Messenger). Записи без распознанного текстового
// поля пропускаются без ошибки.
func (p *JsonParser) Parse(data []byte) ([]domain.NormalizedMessage, error) {
	records, err := decodeRecords(data)
	if err != nil {
		return nil, err
	}

	var messages []domain.NormalizedMessage
	for _, record := range records {
		content, ok := firstNonEmptyString(record, textKeys)
		if !ok {
			continue
		}

		sender, ok := firstNonEmptyString(record, senderKeys)
		if !ok {
			sender = domain.UnknownSender
		}

		timestamp, fallback := p.extractTimestamp(record)

		msg := domain.NormalizedMessage{
			Sender:            sender,
			Content:           content,
			Timestamp:         timestamp,
			TimestampFallback: fallback,
			Media:             extractMedia(record),
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// decodeRecords приводит верхний уровень документа к срезу записей.
func decodeRecords(data []byte) ([]map[string]any, error) {
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var wrapper struct {
		Messages []map[string]any `json:"messages"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json export: %w", err)
	}

	return wrapper.Messages, nil
}

// firstNonEmptyString возвращает первое непустое строковое значение
// из перечисленных ключей-кандидатов.
func firstNonEmptyString(record map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		if value, exists := record[key]; exists {
			if s, isString := value.(string); isString && strings.TrimSpace(s) != "" {
				return s, true
			}
		}
	}
	return "", false
}

// extractTimestamp восстанавливает временную метку записи.
// Приоритет: timestamp_ms (миллисекунды эпохи), затем timestamp/date/time
// (строка или число). Если метку восстановить не удалось, подставляется
// время обработки; такая деградация логируется отдельно от нормального пути.
func (p *JsonParser) extractTimestamp(record map[string]any) (time.Time, bool) {
	if raw, exists := record["timestamp_ms"]; exists {
		if ms, ok := toFloat(raw); ok && ms > 0 {
			return time.UnixMilli(int64(ms)), false
		}
	}

	for _, key := range timestampKeys {
		raw, exists := record[key]
		if !exists {
			continue
		}
		switch typed := raw.(type) {
		case float64:
			if typed <= 0 {
				continue
			}
			if typed < millisecondThreshold {
				return time.Unix(int64(typed), 0), false
			}
			return time.UnixMilli(int64(typed)), false
		case string:
			if parsed, ok := parseTimestampString(typed); ok {
				return parsed, false
			}
		}
	}

	p.log.Warn("временная метка не восстановлена, подставлено время обработки",
		slog.String("degradation", "timestamp_fallback"))
	return time.Now(), true
}

// parseTimestampString разбирает строковую метку: сначала известные
// форматы дат, затем числовая эпоха.
func parseTimestampString(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, true
		}
	}

	if epoch, err := strconv.ParseFloat(trimmed, 64); err == nil && epoch > 0 {
		if epoch < millisecondThreshold {
			return time.Unix(int64(epoch), 0), true
		}
		return time.UnixMilli(int64(epoch)), true
	}

	return time.Time{}, false
}

// extractMedia выводит вложение из массивов photos/videos записи:
// uri первого элемента становится ссылкой вложения.
func extractMedia(record map[string]any) *domain.Media {
	if uri, ok := firstAttachmentURI(record, "photos"); ok {
		return &domain.Media{
			Type:     domain.MediaTypeImage,
			URL:      uri,
			Filename: path.Base(uri),
		}
	}
	if uri, ok := firstAttachmentURI(record, "videos"); ok {
		return &domain.Media{
			Type:     domain.MediaTypeVideo,
			URL:      uri,
			Filename: path.Base(uri),
		}
	}
	return nil
}

// firstAttachmentURI достает uri первого элемента массива вложений.
func firstAttachmentURI(record map[string]any, key string) (string, bool) {
	raw, exists := record[key]
	if !exists {
		return "", false
	}

	list, isList := raw.([]any)
	if !isList || len(list) == 0 {
		return "", false
	}

	first, isMap := list[0].(map[string]any)
	if !isMap {
		return "", false
	}

	uri, isString := first["uri"].(string)
	if !isString || uri == "" {
		return "", false
	}

	return uri, true
}

// toFloat приводит значение из декодированного JSON к float64.
func toFloat(raw any) (float64, bool) {
	switch typed := raw.(type) {
	case float64:
		return typed, true
	case string:
		parsed, err := strconv.ParseFloat(typed, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
