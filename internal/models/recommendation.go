package models

import "strings"

// RecommendationDelimiter separates the title from the description in the
// completion output ("Movie Title (Year) - Description").
const RecommendationDelimiter = " - "

// Recommendation is the parsed completion output shown to the user.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ParseRecommendation splits text on the first RecommendationDelimiter.
// Everything after the first delimiter is the description, including any
// further delimiters. Text without a delimiter becomes the title and the
// description is empty.
func ParseRecommendation(text string) Recommendation {
	title, description, found := strings.Cut(text, RecommendationDelimiter)
	if !found {
		return Recommendation{Title: text}
	}

	return Recommendation{Title: title, Description: description}
}
