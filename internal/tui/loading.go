package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// LoadingState holds the spinner shown while work is in flight.
type LoadingState struct {
	spinner spinner.Model
	message string
}

// NewLoadingState creates a spinner with the default loading message.
func NewLoadingState() *LoadingState {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = OKStyle
	return &LoadingState{spinner: s, message: "Geocoding..."}
}

// Init starts the spinner animation.
func (l *LoadingState) Init() tea.Cmd {
	return l.spinner.Tick
}

// SetMessage replaces the text shown next to the spinner.
func (l *LoadingState) SetMessage(msg string) {
	l.message = msg
}

// Update advances the spinner on tick messages.
func (l *LoadingState) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	l.spinner, cmd = l.spinner.Update(msg)
	return cmd
}

// RenderLoading returns the spinner line, or plain text when loading is nil.
func RenderLoading(loading *LoadingState) string {
	if loading == nil {
		return "Geocoding..."
	}
	return fmt.Sprintf(" %s %s", loading.spinner.View(), loading.message)
}
