package validation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popchoice/popchoice/internal/api/response"
	"github.com/popchoice/popchoice/internal/models"
)

func TestValidateStruct_UserPreferences(t *testing.T) {
	tests := []struct {
		name    string
		prefs   models.UserPreferences
		wantErr string
	}{
		{name: "valid", prefs: models.UserPreferences{FavoriteMovie: "Inception", NewClassic: "new"}},
		{name: "all empty is structurally valid", prefs: models.UserPreferences{}},
		{
			name:    "null byte",
			prefs:   models.UserPreferences{FunSerious: "fun\x00"},
			wantErr: "funSerious must not contain NULL bytes",
		},
		{
			name:    "too long",
			prefs:   models.UserPreferences{FavoriteMovie: strings.Repeat("a", 1001)},
			wantErr: "favoriteMovie must be at most 1000 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.prefs)
			if tt.wantErr == "" {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			require.Len(t, GetValidationErrorDetails(err), 1)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Run("decodes known fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"favoriteMovie":"Tenet","funSerious":"serious"}`))

		var prefs models.UserPreferences
		require.NoError(t, DecodeJSON(req, &prefs))
		assert.Equal(t, models.UserPreferences{FavoriteMovie: "Tenet", FunSerious: "serious"}, prefs)
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))

		var prefs models.UserPreferences
		assert.ErrorIs(t, DecodeJSON(req, &prefs), ErrEmptyBody)
	})

	t.Run("unknown field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"favorite_movie":"Tenet"}`))

		var prefs models.UserPreferences
		assert.Error(t, DecodeJSON(req, &prefs))
	})

	t.Run("trailing data", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"newClassic":"new"}{}`))

		var prefs models.UserPreferences
		assert.Error(t, DecodeJSON(req, &prefs))
	})
}

func TestRespondValidationError(t *testing.T) {
	err := ValidateStruct(models.UserPreferences{NewClassic: "a\x00"})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	RespondValidationError(rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var problem response.ProblemDetails
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	assert.Equal(t, "Validation Error", problem.Title)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "newClassic", problem.Errors[0].Location)
}
