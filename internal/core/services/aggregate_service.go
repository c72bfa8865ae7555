package services

import (
	"fmt"
	"sort"

	"memorybook-parser/internal/domain"
	"memorybook-parser/internal/ports"
)

// AggregateService реализует интерфейс Aggregator: сливает разобранные
// фрагменты в итоговый результат сессии. Сам разбор здесь не выполняется —
// только агрегация и поддержание инвариантов.
type AggregateService struct{}

// NewAggregateService создает новый экземпляр AggregateService.
func NewAggregateService() ports.Aggregator {
	return &AggregateService{}
}

// Aggregate объединяет фрагменты сообщений, сортирует их по временной метке
// (стабильно: при равных метках сохраняется порядок обнаружения), назначает
// последовательные идентификаторы и вычисляет сводные метаданные.
func (s *AggregateService) Aggregate(batches [][]domain.NormalizedMessage, images map[string]string) *domain.ParseSessionResult {
	var messages []domain.NormalizedMessage
	for _, batch := range batches {
		messages = append(messages, batch...)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})

	for i := range messages {
		messages[i].ID = fmt.Sprintf("msg-%d", i+1)
	}

	if images == nil {
		images = make(map[string]string)
	}

	return &domain.ParseSessionResult{
		Messages: messages,
		Images:   images,
		Metadata: buildMetadata(messages, images),
	}
}

// buildMetadata вычисляет сводку сессии: счетчики, диапазон дат
// и список участников в порядке первого появления.
func buildMetadata(messages []domain.NormalizedMessage, images map[string]string) domain.SessionMetadata {
	meta := domain.SessionMetadata{
		TotalMessages: len(messages),
		TotalImages:   len(images),
		Participants:  []string{},
	}

	seen := make(map[string]bool)
	for i := range messages {
		if !seen[messages[i].Sender] {
			seen[messages[i].Sender] = true
			meta.Participants = append(meta.Participants, messages[i].Sender)
		}
	}

	if len(messages) > 0 {
		// Сообщения уже отсортированы по времени
		meta.DateRange = &domain.DateRange{
			Start: messages[0].Timestamp,
			End:   messages[len(messages)-1].Timestamp,
		}
	}

	return meta
}
