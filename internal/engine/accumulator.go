// Package engine holds the scoring, result matching and vote tally logic.
// Nothing in here performs I/O except through the TallyStore handed to a VoteCounter.
package engine

import "quiz-result-service/internal/domain"

// NormalizeLog keeps one answer per question. A later answer replaces an
// earlier one in the slot where the question was first answered.
func NormalizeLog(answers []domain.Answer) []domain.Answer {
	if len(answers) == 0 {
		return nil
	}
	slot := make(map[string]int, len(answers))
	out := make([]domain.Answer, 0, len(answers))
	for _, a := range answers {
		if i, ok := slot[a.QuestionID]; ok {
			out[i] = a
			continue
		}
		slot[a.QuestionID] = len(out)
		out = append(out, a)
	}
	return out
}

// Accumulate sums the weights of the normalized log. Empty input yields 0;
// deciding whether that is an error is up to the caller.
func Accumulate(answers []domain.Answer) domain.TotalScore {
	var total domain.TotalScore
	for _, a := range NormalizeLog(answers) {
		total += a.Weight
	}
	return total
}
