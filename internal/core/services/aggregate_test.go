package services

import (
	"testing"
	"time"

	"memorybook-parser/internal/domain"
)

func TestAggregateService(t *testing.T) {
	base := time.Date(2023, time.March, 15, 12, 0, 0, 0, time.Local)

	t.Run("Слияние и хронологическая сортировка", func(t *testing.T) {
		s := NewAggregateService()

		batches := [][]domain.NormalizedMessage{
			{
				{Sender: "A", Content: "third", Timestamp: base.Add(2 * time.Minute)},
				{Sender: "A", Content: "first", Timestamp: base},
			},
			{
				{Sender: "B", Content: "second", Timestamp: base.Add(time.Minute)},
			},
		}

		result := s.Aggregate(batches, nil)

		if len(result.Messages) != 3 {
			t.Fatalf("Ожидалось 3 сообщения, получено %d", len(result.Messages))
		}
		for i := 0; i < len(result.Messages)-1; i++ {
			if result.Messages[i].Timestamp.After(result.Messages[i+1].Timestamp) {
				t.Errorf("Нарушен хронологический инвариант на позиции %d", i)
			}
		}
		if result.Messages[0].Content != "first" || result.Messages[2].Content != "third" {
			t.Errorf("Неожиданный порядок: %s, %s, %s",
				result.Messages[0].Content, result.Messages[1].Content, result.Messages[2].Content)
		}
	})

	t.Run("Стабильность при равных метках", func(t *testing.T) {
		s := NewAggregateService()

		batches := [][]domain.NormalizedMessage{{
			{Sender: "A", Content: "one", Timestamp: base},
			{Sender: "B", Content: "two", Timestamp: base},
			{Sender: "C", Content: "three", Timestamp: base},
		}}

		result := s.Aggregate(batches, nil)

		if result.Messages[0].Content != "one" ||
			result.Messages[1].Content != "two" ||
			result.Messages[2].Content != "three" {
			t.Errorf("Порядок обнаружения нарушен при равных метках")
		}
	})

	t.Run("Последовательные идентификаторы", func(t *testing.T) {
		s := NewAggregateService()

		batches := [][]domain.NormalizedMessage{{
			{Sender: "A", Timestamp: base},
			{Sender: "B", Timestamp: base.Add(time.Minute)},
		}}

		result := s.Aggregate(batches, nil)

		if result.Messages[0].ID != "msg-1" || result.Messages[1].ID != "msg-2" {
			t.Errorf("Неожиданные идентификаторы: %s, %s", result.Messages[0].ID, result.Messages[1].ID)
		}
	})

	t.Run("Метаданные сессии", func(t *testing.T) {
		s := NewAggregateService()

		batches := [][]domain.NormalizedMessage{{
			{Sender: "A", Timestamp: base},
			{Sender: "B", Timestamp: base.Add(time.Hour)},
			{Sender: "A", Timestamp: base.Add(30 * time.Minute)},
		}}
		images := map[string]string{"a.jpg": "data:uri-a"}

		result := s.Aggregate(batches, images)

		meta := result.Metadata
		if meta.TotalMessages != 3 {
			t.Errorf("Ожидалось 3 сообщения в сводке, получено %d", meta.TotalMessages)
		}
		if meta.TotalImages != 1 {
			t.Errorf("Ожидалось 1 изображение в сводке, получено %d", meta.TotalImages)
		}
		if len(meta.Participants) != 2 {
			t.Errorf("Ожидалось 2 участника, получено %d", len(meta.Participants))
		}
		if meta.DateRange == nil {
			t.Fatal("Ожидался диапазон дат")
		}
		if !meta.DateRange.Start.Equal(base) || !meta.DateRange.End.Equal(base.Add(time.Hour)) {
			t.Errorf("Неожиданный диапазон дат: %v - %v", meta.DateRange.Start, meta.DateRange.End)
		}
	})

	t.Run("Пустая сессия", func(t *testing.T) {
		s := NewAggregateService()

		result := s.Aggregate(nil, nil)

		if result.Metadata.TotalMessages != 0 {
			t.Errorf("Ожидалось 0 сообщений, получено %d", result.Metadata.TotalMessages)
		}
		if result.Metadata.DateRange != nil {
			t.Error("Диапазон дат пустой сессии должен быть nil")
		}
		if result.Images == nil {
			t.Error("Карта изображений не должна быть nil")
		}
		if len(result.Metadata.Participants) != 0 {
			t.Errorf("Ожидался пустой список участников, получено %d", len(result.Metadata.Participants))
		}
	})
}
