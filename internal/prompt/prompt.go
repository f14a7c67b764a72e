// Package prompt builds the embedding query and the chat completion messages
// for a movie recommendation. Everything here is pure and does no I/O.
package prompt

import (
	"github.com/popchoice/popchoice/internal/models"
)

// Refusal is the answer the model is told to give when the context does not
// contain a suitable movie.
const Refusal = "Sorry, I don't know the answer."

// Questions asked by the preferences form, in form order.
const (
	FavoriteMovieQuestion = "What's your favorite movie and why?"
	NewClassicQuestion    = "Are you in the mood for something new or a classic?"
	FunSeriousQuestion    = "Do you wanna have fun or do you want something serious?"
)

// SystemPrompt sets the persona and the answer-from-context rules.
const SystemPrompt = `You are an enthusiastic movie expert who loves recommending movies to people.
You will be given two pieces of information - some context about movies and a question.
Your main job is to formulate a detailed answer to the question using the provided context.
If you are unsure and cannot find the answer in the context, say, "` + Refusal + `"
Please do not make up the answer.`

const (
	recommendationQuestion = "A movie I would enjoy based on my preferences is."
	outputFormat           = "Movie Title (Year) - Description. Don't use any quotation marks for the title and description."
)

// Query joins the three answers with single spaces. Unanswered fields are
// empty, so the separators are always present.
func Query(p models.UserPreferences) string {
	return p.FavoriteMovie + " " + p.NewClassic + " " + p.FunSerious
}

// Messages returns the conversation for one recommendation: the system
// prompt, one user message per answered question, and a final user message
// carrying the matched context and the output format.
func Messages(match models.MatchResult, p models.UserPreferences) []models.ChatMessage {
	messages := make([]models.ChatMessage, 0, 5)
	messages = append(messages, models.ChatMessage{Role: models.RoleSystem, Content: SystemPrompt})

	answers := []struct {
		question string
		answer   string
	}{
		{FavoriteMovieQuestion, p.FavoriteMovie},
		{NewClassicQuestion, p.NewClassic},
		{FunSeriousQuestion, p.FunSerious},
	}

	for _, a := range answers {
		if a.answer == "" {
			continue
		}

		messages = append(messages, models.ChatMessage{
			Role:    models.RoleUser,
			Content: Answer(a.question, a.answer),
		})
	}

	messages = append(messages, models.ChatMessage{Role: models.RoleUser, Content: Context(match)})

	return messages
}

// Answer restates one question and the user's answer.
func Answer(question, answer string) string {
	return "You asked me: " + question + " My answer is: " + answer
}

// Context is the final user message. An absent match yields an empty context.
func Context(match models.MatchResult) string {
	content := ""
	if match.Found {
		content = match.Content
	}

	return "Context: " + content + ".\n" +
		"Question: " + recommendationQuestion + "\n" +
		"Format: " + outputFormat
}
