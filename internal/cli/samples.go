package cli

import "quiz-result-service/internal/domain"

// sampleTests is served when no Postgres is configured.
func sampleTests() map[string]domain.Test {
	return map[string]domain.Test{
		"weekend": {
			ID:    "weekend",
			Title: "What kind of weekender are you?",
			Kind:  domain.KindPsychology,
			Questions: []domain.Question{
				{
					ID: "q1", Ordinal: 1, Prompt: "Saturday morning, you are...",
					Choices: []domain.Choice{
						{ID: "c1", Text: "Already on a hike", Weight: 10},
						{ID: "c2", Text: "Still asleep", Weight: 0},
					},
				},
				{
					ID: "q2", Ordinal: 2, Prompt: "A friend calls with a last-minute party.",
					Choices: []domain.Choice{
						{ID: "c3", Text: "Stay home", Weight: 0},
						{ID: "c4", Text: "On my way", Weight: 25},
					},
				},
			},
			Results: []domain.Result{
				{
					ID: "homebody", Name: "Homebody", Description: "Recharging is a plan too.", Priority: 1,
					Conditions: []domain.Condition{domain.RangeCondition(domain.Bound(0), domain.Bound(19))},
				},
				{
					ID: "adventurer", Name: "Adventurer", Description: "Every weekend is a story.", Priority: 1,
					Conditions: []domain.Condition{domain.RangeCondition(domain.Bound(20), domain.Bound(40))},
				},
				{
					ID: "undecided", Name: "Undecided", Description: "Somewhere in between.", Priority: 9,
					Conditions: []domain.Condition{domain.DefaultCondition()},
				},
			},
		},
		"capitals": {
			ID:    "capitals",
			Title: "Capitals quiz",
			Kind:  domain.KindQuiz,
			Questions: []domain.Question{
				{
					ID: "q1", Ordinal: 1, Prompt: "Capital of Australia?", Points: 1,
					Choices: []domain.Choice{
						{ID: "o1", Text: "Sydney"},
						{ID: "o2", Text: "Canberra", Correct: true},
					},
				},
				{
					ID: "q2", Ordinal: 2, Prompt: "Capital of Canada?", Points: 2,
					Choices: []domain.Choice{
						{ID: "o1", Text: "Ottawa", Correct: true},
						{ID: "o2", Text: "Toronto"},
					},
				},
			},
			Results: []domain.Result{
				{ID: "perfect", Name: "Perfect score", Priority: 1, Conditions: []domain.Condition{domain.RangeCondition(domain.Bound(3), nil)}},
				{ID: "keep-going", Name: "Keep going", Priority: 2, Conditions: []domain.Condition{domain.DefaultCondition()}},
			},
		},
		"mountains-or-sea": {
			ID:    "mountains-or-sea",
			Title: "Balance game",
			Kind:  domain.KindBalance,
			Questions: []domain.Question{
				{
					ID: "b1", Ordinal: 1, Prompt: "Holidays in the mountains or by the sea?",
					Choices: []domain.Choice{{ID: "mountains", Text: "Mountains"}, {ID: "sea", Text: "Sea"}},
				},
			},
		},
	}
}
