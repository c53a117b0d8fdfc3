package questions

import (
	"html"
	"strings"

	"trivia-service/internal/client"
	"trivia-service/internal/constants"
	"trivia-service/internal/models"
)

// Normalize converts an upstream row into the internal schema. Rows that do
// not carry exactly four distinct, non-empty answers are rejected.
func Normalize(raw client.RawQuestion, shuffle func(n int, swap func(i, j int))) (models.Question, bool) {
	text := clean(raw.Question)
	correct := clean(raw.CorrectAnswer)
	if text == "" || correct == "" || len(raw.IncorrectAnswers) != constants.AnswerOptions-1 {
		return models.Question{}, false
	}

	answers := make([]string, 0, constants.AnswerOptions)
	answers = append(answers, correct)
	seen := map[string]bool{strings.ToLower(correct): true}
	for _, a := range raw.IncorrectAnswers {
		a = clean(a)
		if a == "" || seen[strings.ToLower(a)] {
			return models.Question{}, false
		}
		seen[strings.ToLower(a)] = true
		answers = append(answers, a)
	}

	q := models.Question{
		Text:               text,
		Answers:            answers,
		CorrectAnswerIndex: 0,
		Category:           clean(raw.Category),
		Difficulty:         strings.ToLower(clean(raw.Difficulty)),
	}
	return shuffleAnswers(q, shuffle), true
}

func shuffleAnswers(q models.Question, shuffle func(n int, swap func(i, j int))) models.Question {
	answers := make([]string, len(q.Answers))
	copy(answers, q.Answers)
	correct := q.CorrectAnswerIndex

	shuffle(len(answers), func(i, j int) {
		answers[i], answers[j] = answers[j], answers[i]
		switch correct {
		case i:
			correct = j
		case j:
			correct = i
		}
	})

	q.Answers = answers
	q.CorrectAnswerIndex = correct
	return q
}

func valid(q models.Question) bool {
	return q.Text != "" &&
		len(q.Answers) == constants.AnswerOptions &&
		q.CorrectAnswerIndex >= 0 &&
		q.CorrectAnswerIndex < constants.AnswerOptions
}

func clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}
