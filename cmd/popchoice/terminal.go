package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/popchoice/popchoice/internal/models"
	"github.com/popchoice/popchoice/internal/prompt"
	"github.com/popchoice/popchoice/internal/service"
)

const (
	colorAccent = "#f5c518"
	colorText   = "#c9d1d9"
	colorGray   = "#8b949e"
	colorRed    = "#f85149"
)

// styles holds the lipgloss styles for the terminal form and recommendation.
type styles struct {
	Banner      lipgloss.Style
	Question    lipgloss.Style
	Title       lipgloss.Style
	Description lipgloss.Style
	Help        lipgloss.Style
	Error       lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Banner: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorAccent)).
			MarginBottom(1),
		Question: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText)),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorAccent)).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorGray)).
			Padding(0, 1),
		Description: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText)).
			Width(72).
			MarginTop(1),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray)).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorRed)),
	}
}

// terminalPresenter is the terminal rendition of the form and the recommendation view.
type terminalPresenter struct {
	in     *bufio.Reader
	out    io.Writer
	styles styles
}

var _ service.Presenter = (*terminalPresenter)(nil)

func newTerminalPresenter(in io.Reader, out io.Writer) *terminalPresenter {
	return &terminalPresenter{
		in:     bufio.NewReader(in),
		out:    out,
		styles: defaultStyles(),
	}
}

// RenderRecommendation prints the title and description in place of the form.
func (p *terminalPresenter) RenderRecommendation(_ context.Context, rec models.Recommendation) error {
	view := p.styles.Title.Render(rec.Title)
	if rec.Description != "" {
		view = lipgloss.JoinVertical(lipgloss.Left, view, p.styles.Description.Render(rec.Description))
	}

	_, err := fmt.Fprintln(p.out, view)

	return err
}

// RenderForm prints the form banner. The questions are asked by readPreferences.
func (p *terminalPresenter) RenderForm(context.Context) error {
	_, err := fmt.Fprintln(p.out, p.styles.Banner.Render("PopChoice"))

	return err
}

// renderError prints a failed run without leaving the loop.
func (p *terminalPresenter) renderError(err error) {
	_, _ = fmt.Fprintln(p.out, p.styles.Error.Render("Something went wrong: "+err.Error()))
}

// readPreferences asks the three questions in form order. Unanswered questions
// are empty strings. io.EOF is returned only when input ends before the first answer.
func (p *terminalPresenter) readPreferences() (models.UserPreferences, error) {
	var prefs models.UserPreferences

	fields := []struct {
		question string
		answer   *string
	}{
		{prompt.FavoriteMovieQuestion, &prefs.FavoriteMovie},
		{prompt.NewClassicQuestion, &prefs.NewClassic},
		{prompt.FunSeriousQuestion, &prefs.FunSerious},
	}

	for i, f := range fields {
		answer, err := p.readLine(p.styles.Question.Render(f.question))
		if err != nil {
			if errors.Is(err, io.EOF) && i > 0 {
				return prefs, nil
			}

			return prefs, err
		}

		*f.answer = answer
	}

	return prefs, nil
}

// goAgain asks whether to show the form again. Anything but an explicit "n"/"no" means yes.
func (p *terminalPresenter) goAgain() (bool, error) {
	answer, err := p.readLine(p.styles.Help.Render("Go again? [Y/n]"))
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "n", "no":
		return false, nil
	default:
		return true, nil
	}
}

func (p *terminalPresenter) readLine(label string) (string, error) {
	if _, err := fmt.Fprintln(p.out, label); err != nil {
		return "", err
	}

	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}

	return strings.TrimSpace(line), nil
}
