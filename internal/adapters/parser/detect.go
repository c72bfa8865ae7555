package parser

import (
	"path/filepath"
	"strings"
)

// Format — стратегия разбора, применимая к элементу экспорта.
type Format string

const (
	// FormatJSON — платформенный JSON-экспорт (Messenger/Instagram).
	FormatJSON Format = "json"
	// FormatWhatsApp — текстовая расшифровка WhatsApp.
	FormatWhatsApp Format = "whatsapp-plaintext"
	// FormatGenericText — запасной вариант: файл похож на экспорт переписки.
	FormatGenericText Format = "generic-text"
	// FormatUnknown — элемент не распознан и молча исключается из результата.
	FormatUnknown Format = ""
)

// Маркеры, которыми WhatsApp помечает незашифрованные расшифровки.
// Английский и французский варианты экспорта.
var whatsappMarkers = []string{
	"Messages without end-to-end encryption",
	"Les messages ne sont pas chiffrés de bout en bout",
}

// Подстроки имени файла, указывающие на экспорт переписки.
var conversationNameHints = []string{"chat", "message", "conversation", "discussion"}

// DetectFormat классифицирует элемент экспорта по имени файла и содержимому.
// Возвращает ровно одну стратегию разбора либо FormatUnknown.
func DetectFormat(filename string, content []byte) Format {
	lowerName := strings.ToLower(filepath.Base(filename))
	ext := filepath.Ext(lowerName)

	if ext == ".json" {
		return FormatJSON
	}

	text := string(content)
	for _, marker := range whatsappMarkers {
		if strings.Contains(text, marker) {
			return FormatWhatsApp
		}
	}
	if ext == ".txt" && hasConversationHint(lowerName) {
		return FormatWhatsApp
	}

	if hasConversationHint(lowerName) || ext == ".txt" || ext == ".csv" || ext == ".html" {
		return FormatGenericText
	}

	return FormatUnknown
}

func hasConversationHint(lowerName string) bool {
	for _, hint := range conversationNameHints {
		if strings.Contains(lowerName, hint) {
			return true
		}
	}
	return false
}
