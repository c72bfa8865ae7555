package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"memorybook-parser/internal/domain"
	"memorybook-parser/internal/ports"
)

// Принятые шаблоны заголовка нового сообщения, в порядке приоритета.
// Группы во всех шаблонах одинаковы: день, месяц, год, часы, минуты,
// необязательные секунды, отправитель (без двоеточия), текст.
var headerPatterns = []*regexp.Regexp{
	// [DD/MM/YYYY, HH:MM:SS] Отправитель: Текст
	regexp.MustCompile(`^\[(\d{1,2})/(\d{1,2})/(\d{2,4}), (\d{1,2}):(\d{2})(?::(\d{2}))?\] ([^:]+): (.*)$`),
	// DD/MM/YYYY, HH:MM - Отправитель: Текст
	regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4}), (\d{1,2}):(\d{2})(?::(\d{2}))? - ([^:]+): (.*)$`),
	// DD/MM/YYYY HH:MM - Отправитель: Текст
	regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4}) (\d{1,2}):(\d{2})(?::(\d{2}))? - ([^:]+): (.*)$`),
}

// Маркеры пропущенных вложений WhatsApp. Регистр не учитывается.
var mediaMarkerPattern = regexp.MustCompile(`(?i)<\s*(media|image|photo|video|audio|document)\s+omitted\s*>`)

// WhatsappParser реализует интерфейс Parser для текстовых расшифровок WhatsApp.
type WhatsappParser struct{}

// NewWhatsappParser создает новый экземпляр WhatsappParser.
func NewWhatsappParser() ports.Parser {
	return &WhatsappParser{}
}

// header — разобранный заголовок нового сообщения.
type header struct {
	timestamp time.Time
	sender    string
	text      string
}

// matchHeader пытается распознать строку как начало нового сообщения.
// Строка с нечитаемой датой или временем считается НЕ совпавшей:
// она уйдет в продолжение предыдущего сообщения. Это принятое упрощение,
// а не дефект, который нужно чинить угадыванием даты.
func matchHeader(line string) (header, bool) {
	for _, pattern := range headerPatterns {
		groups := pattern.FindStringSubmatch(line)
		if groups == nil {
			continue
		}

		timestamp, ok := buildTimestamp(groups[1], groups[2], groups[3], groups[4], groups[5], groups[6])
		if !ok {
			continue
		}

		sender := strings.TrimSpace(groups[7])
		if sender == "" {
			sender = domain.UnknownSender
		}

		return header{
			timestamp: timestamp,
			sender:    sender,
			text:      groups[8],
		}, true
	}

	return header{}, false
}

// buildTimestamp собирает временную метку из токенов даты и времени.
// Порядок даты всегда DD/MM/YYYY, без определения локали; время локальное,
// преобразование часовых поясов не выполняется.
func buildTimestamp(dayStr, monthStr, yearStr, hourStr, minuteStr, secondStr string) (time.Time, bool) {
	day, _ := strconv.Atoi(dayStr)
	month, _ := strconv.Atoi(monthStr)
	year, _ := strconv.Atoi(yearStr)
	hour, _ := strconv.Atoi(hourStr)
	minute, _ := strconv.Atoi(minuteStr)
	second := 0
	if secondStr != "" {
		second, _ = strconv.Atoi(secondStr)
	}

	// Двузначный год относится к текущему веку
	if year < 100 {
		year += 2000
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)
	// time.Date нормализует переполнение (31/02 -> 03/03); такие даты отклоняем
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}

	return t, true
}

// Parse разбирает расшифровку построчно через явный аккумулятор
// "сообщение в работе": совпавший заголовок завершает предыдущее сообщение
// и начинает новое, несовпавшая строка присоединяется как продолжение.
// Мусор до первого валидного заголовка отбрасывается.
func (p *WhatsappParser) Parse(data []byte) ([]domain.NormalizedMessage, error) {
	var messages []domain.NormalizedMessage
	var current *domain.NormalizedMessage

	for _, rawLine := range strings.Split(string(data), "\n") {
		line := strings.TrimRight(rawLine, "\r")

		h, ok := matchHeader(line)
		if ok {
			if current != nil {
				messages = append(messages, finalizeMessage(*current))
			}
			current = &domain.NormalizedMessage{
				Sender:    h.sender,
				Content:   h.text,
				Timestamp: h.timestamp,
			}
			continue
		}

		if current == nil {
			continue
		}
		// Строки продолжения не создают новой временной метки
		current.Content += "\n" + line
	}

	if current != nil {
		messages = append(messages, finalizeMessage(*current))
	}

	return messages, nil
}

// finalizeMessage завершает накопленное сообщение: вырезает маркер
// пропущенного вложения из текста и помечает тип вложения.
// URL вложения остается пустым, его назначает компоновщик медиа.
func finalizeMessage(msg domain.NormalizedMessage) domain.NormalizedMessage {
	groups := mediaMarkerPattern.FindStringSubmatch(msg.Content)
	if groups == nil {
		return msg
	}

	msg.Content = strings.TrimSpace(mediaMarkerPattern.ReplaceAllString(msg.Content, ""))
	msg.Media = &domain.Media{Type: mediaTypeForMarker(groups[1])}
	return msg
}

// mediaTypeForMarker сопоставляет ключевое слово маркера с типом вложения.
func mediaTypeForMarker(keyword string) domain.MediaType {
	switch strings.ToLower(keyword) {
	case "video":
		return domain.MediaTypeVideo
	case "audio":
		return domain.MediaTypeAudio
	case "document":
		return domain.MediaTypeDocument
	default:
		// media, image, photo
		return domain.MediaTypeImage
	}
}
