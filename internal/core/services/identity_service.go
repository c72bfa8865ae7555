package services

import (
	"memorybook-parser/internal/domain"
	"memorybook-parser/internal/ports"
)

// IdentityService реализует интерфейс IdentityResolver.
// Эвристика: владелец книги — самый частый отправитель. Для типичного
// экспорта переписки двух участников это верно; для групповых чатов
// с несколькими равночастотными участниками — принятое приближение.
type IdentityService struct{}

// NewIdentityService создает новый экземпляр IdentityService.
func NewIdentityService() ports.IdentityResolver {
	return &IdentityService{}
}

// Resolve назначает isMe = true всем сообщениям отправителя со строго
// наибольшим числом сообщений; остальным — isMe = false.
// Детерминированно: ничья разрешается в пользу отправителя,
// встреченного раньше.
func (s *IdentityService) Resolve(messages []domain.NormalizedMessage) {
	owner := MostFrequentSender(messages)

	for i := range messages {
		messages[i].IsMe = messages[i].Sender == owner
	}
}

// MostFrequentSender возвращает отправителя со строго наибольшим числом
// сообщений. Вынесена отдельно, чтобы эвристику можно было заменить
// (например, явным подтверждением участника), не трогая разбор.
func MostFrequentSender(messages []domain.NormalizedMessage) string {
	counts := make(map[string]int)
	var order []string

	for i := range messages {
		sender := messages[i].Sender
		if _, seen := counts[sender]; !seen {
			order = append(order, sender)
		}
		counts[sender]++
	}

	best := ""
	bestCount := 0
	for _, sender := range order {
		if counts[sender] > bestCount {
			best = sender
			bestCount = counts[sender]
		}
	}

	return best
}
