package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRecommendation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Recommendation
	}{
		{
			name: "title and description",
			text: "Inception (2010) - A thief steals secrets via dreams",
			want: Recommendation{Title: "Inception (2010)", Description: "A thief steals secrets via dreams"},
		},
		{
			name: "no delimiter keeps full text as title",
			text: "Unknown movie",
			want: Recommendation{Title: "Unknown movie", Description: ""},
		},
		{
			name: "refusal has no delimiter",
			text: "Sorry, I don't know the answer.",
			want: Recommendation{Title: "Sorry, I don't know the answer."},
		},
		{
			name: "only first delimiter splits",
			text: "Tenet (2020) - A spy thriller - with time inversion",
			want: Recommendation{Title: "Tenet (2020)", Description: "A spy thriller - with time inversion"},
		},
		{
			name: "leading delimiter gives empty title",
			text: " - Just a description",
			want: Recommendation{Title: "", Description: "Just a description"},
		},
		{
			name: "hyphen without spaces is not a delimiter",
			text: "Spider-Man (2002)",
			want: Recommendation{Title: "Spider-Man (2002)"},
		},
		{
			name: "empty text",
			text: "",
			want: Recommendation{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRecommendation(tt.text))
		})
	}
}

func TestNewMatchResult(t *testing.T) {
	got := NewMatchResult(MovieMatch{ID: 7, Content: "Movie X", Similarity: 0.82})

	assert.True(t, got.Found)
	assert.Equal(t, "Movie X", got.Content)
	assert.InDelta(t, 0.82, got.Similarity, 1e-9)
	assert.False(t, NoMatch.Found)
}
