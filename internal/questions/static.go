package questions

import (
	_ "embed"

	json "github.com/goccy/go-json"

	"trivia-service/internal/models"
)

//go:embed static_questions.json
var staticQuestionsJSON []byte

var staticQuestions = mustLoadStatic(staticQuestionsJSON)

func mustLoadStatic(data []byte) []models.Question {
	var questions []models.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		panic("questions: invalid bundled question set: " + err.Error())
	}
	for _, q := range questions {
		if !valid(q) {
			panic("questions: invalid bundled question: " + q.Text)
		}
	}
	if len(questions) == 0 {
		panic("questions: bundled question set is empty")
	}
	return questions
}

// Static returns a copy of the bundled fallback question set.
func Static() []models.Question {
	out := make([]models.Question, len(staticQuestions))
	copy(out, staticQuestions)
	return out
}
