package exporter

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"memorybook-parser/internal/domain"
	"memorybook-parser/internal/ports"
)

// ExcelExporter реализует интерфейс Exporter: сохраняет сообщения сессии
// в xlsx-файл, по строке на сообщение.
type ExcelExporter struct {
	outputPath string
}

// NewExcelExporter создает новый экземпляр ExcelExporter.
func NewExcelExporter(outputPath string) ports.Exporter {
	return &ExcelExporter{outputPath: outputPath}
}

// Export записывает результат сессии в xlsx-файл.
func (e *ExcelExporter) Export(result *domain.ParseSessionResult) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Messages"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	// Заголовки
	headers := []string{"ID", "Время", "Отправитель", "Владелец", "Текст", "Тип вложения", "Файл вложения"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}

	// Данные
	for i, msg := range result.Messages {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), msg.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), msg.Timestamp.Format(time.RFC3339))
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), msg.Sender)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), msg.IsMe)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), msg.Content)
		if msg.Media != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), string(msg.Media.Type))
			f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), msg.Media.Filename)
		}
	}

	if err := f.SaveAs(e.outputPath); err != nil {
		return fmt.Errorf("failed to save excel file: %w", err)
	}

	return nil
}
