package models

// UserPreferences holds the three answers collected by the preferences form.
// Every field is optional; an unanswered question is the empty string.
type UserPreferences struct {
	FavoriteMovie string `json:"favoriteMovie" validate:"max=1000,no_null_bytes"` //nolint:tagliatelle // API contract
	NewClassic    string `json:"newClassic" validate:"max=1000,no_null_bytes"`    //nolint:tagliatelle // API contract
	FunSerious    string `json:"funSerious" validate:"max=1000,no_null_bytes"`    //nolint:tagliatelle // API contract
}
