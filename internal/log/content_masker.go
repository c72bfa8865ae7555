package log

import (
	"context"
	"log/slog"
	"regexp"
)

// ContentMaskerHandler - обертка для slog.Handler, которая маскирует
// телефонные номера в логах. В экспортах WhatsApp номер телефона часто
// выступает именем отправителя и не должен попадать в журналы.
type ContentMaskerHandler struct {
	handler slog.Handler
}

// NewContentMaskerHandler создает новый обработчик с маскировкой номеров
func NewContentMaskerHandler(handler slog.Handler) *ContentMaskerHandler {
	return &ContentMaskerHandler{
		handler: handler,
	}
}

// маскируем номера в международном формате: плюс, затем 8+ цифр
// с возможными пробелами, дефисами и скобками
var phoneNumberRegex = regexp.MustCompile(`\+\d[\d\s()-]{7,}\d`)

// maskPhones заменяет найденные номера на маску
func maskPhones(text string) string {
	return phoneNumberRegex.ReplaceAllString(text, "+***masked-phone***")
}

// Enabled реализует интерфейс slog.Handler
func (h *ContentMaskerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle реализует интерфейс slog.Handler
func (h *ContentMaskerHandler) Handle(ctx context.Context, record slog.Record) error {
	// Собираем новую запись без атрибутов оригинала: Clone() сохраняет
	// исходные атрибуты, и немаскированные значения ушли бы в журнал
	// рядом с маскированными копиями.
	r := slog.NewRecord(record.Time, record.Level, maskPhones(record.Message), record.PC)

	// Переносим атрибуты оригинальной записи в маскированном виде.
	record.Attrs(func(a slog.Attr) bool {
		r.AddAttrs(slog.Attr{
			Key:   a.Key,
			Value: maskAttributeValue(a.Value),
		})
		return true
	})

	return h.handler.Handle(ctx, r)
}

// WithAttrs реализует интерфейс slog.Handler
func (h *ContentMaskerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		maskedAttrs[i] = slog.Attr{
			Key:   attr.Key,
			Value: maskAttributeValue(attr.Value),
		}
	}
	return &ContentMaskerHandler{
		handler: h.handler.WithAttrs(maskedAttrs),
	}
}

// WithGroup реализует интерфейс slog.Handler
func (h *ContentMaskerHandler) WithGroup(name string) slog.Handler {
	return &ContentMaskerHandler{
		handler: h.handler.WithGroup(name),
	}
}

// maskAttributeValue рекурсивно маскирует значения атрибутов
func maskAttributeValue(value slog.Value) slog.Value {
	switch value.Kind() {
	case slog.KindString:
		return slog.StringValue(maskPhones(value.String()))
	case slog.KindAny:
		// Ошибки преобразуем в строку и тоже маскируем: имя файла
		// в тексте ошибки может содержать номер телефона.
		if err, ok := value.Any().(error); ok {
			return slog.StringValue(maskPhones(err.Error()))
		}
		return value
	case slog.KindGroup:
		group := value.Group()
		maskedGroup := make([]slog.Attr, len(group))
		for i, attr := range group {
			maskedGroup[i] = slog.Attr{
				Key:   attr.Key,
				Value: maskAttributeValue(attr.Value),
			}
		}
		return slog.GroupValue(maskedGroup...)
	default:
		// Для других типов возвращаем оригинальное значение
		return value
	}
}

// NewMaskedLogger создает новый экземпляр slog.Logger с маскировкой номеров
func NewMaskedLogger(handler slog.Handler) *slog.Logger {
	return slog.New(NewContentMaskerHandler(handler))
}
