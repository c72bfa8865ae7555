package exporter

import (
	"fmt"
	"strings"

	"memorybook-parser/internal/domain"
	"memorybook-parser/internal/ports"
)

// ConsoleExporter реализует интерфейс Exporter для вывода результата сессии в консоль.
type ConsoleExporter struct{}

// NewConsoleExporter создает новый экземпляр ConsoleExporter.
func NewConsoleExporter() ports.Exporter {
	return &ConsoleExporter{}
}

// Export выводит сводку сессии и сообщения в консоль.
func (e *ConsoleExporter) Export(result *domain.ParseSessionResult) error {
	fmt.Println("--- Parsed Conversation ---")
	fmt.Printf("Messages: %d, Images: %d, Participants: %s\n",
		result.Metadata.TotalMessages,
		result.Metadata.TotalImages,
		strings.Join(result.Metadata.Participants, ", "))
	if result.Metadata.DateRange != nil {
		fmt.Printf("From %s to %s\n",
			result.Metadata.DateRange.Start.Format("2006-01-02 15:04:05"),
			result.Metadata.DateRange.End.Format("2006-01-02 15:04:05"))
	}

	if len(result.Messages) == 0 {
		fmt.Println("No messages found.")
		return nil
	}

	for _, msg := range result.Messages {
		marker := " "
		if msg.IsMe {
			marker = "*"
		}
		line := fmt.Sprintf("[%s] %s%s: %s",
			msg.Timestamp.Format("02/01/2006 15:04:05"), marker, msg.Sender, msg.Content)
		if msg.Media != nil {
			line += fmt.Sprintf(" <%s", msg.Media.Type)
			if msg.Media.Filename != "" {
				line += ": " + msg.Media.Filename
			}
			line += ">"
		}
		fmt.Println(line)
	}
	return nil
}
