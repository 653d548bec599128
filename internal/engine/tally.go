package engine

import "quiz-result-service/internal/domain"

// OptimisticDelta is a local, unconfirmed adjustment of one choice's count.
type OptimisticDelta struct {
	ChoiceID string
	Amount   int64
}

// IsZero reports whether the delta changes nothing.
func (d OptimisticDelta) IsZero() bool {
	return d.ChoiceID == "" || d.Amount == 0
}

// Project applies delta to the authoritative tally without touching it.
func Project(authoritative domain.VoteTally, delta OptimisticDelta) domain.VoteTally {
	projected := authoritative
	if delta.IsZero() {
		return projected
	}
	switch delta.ChoiceID {
	case projected.A.ChoiceID:
		projected.A.Count += delta.Amount
	case projected.B.ChoiceID:
		projected.B.Count += delta.Amount
	}
	return projected
}

// PercentagesOf rounds 100*count/total for each side. An empty tally splits 50/50.
func PercentagesOf(tally domain.VoteTally) domain.Percentages {
	total := tally.Total()
	if total <= 0 {
		return domain.Percentages{A: 50, B: 50}
	}
	return domain.Percentages{
		A: roundedShare(tally.A.Count, total),
		B: roundedShare(tally.B.Count, total),
	}
}

// roundedShare is round(100*count/total) with halves rounded up.
func roundedShare(count, total int64) int {
	if count <= 0 {
		return 0
	}
	return int((200*count + total) / (2 * total))
}
