package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/planevent/geocoder/internal/geocode"
)

// Layout constants.
const (
	defaultWidth   = 80
	maxBarWidth    = 60
	barPadding     = 4
	maxVisibleRows = 8
	maxLabelLen    = 32
	truncateSuffix = "..."
)

// ViewState is the lifecycle stage of the batch view.
type ViewState int

const (
	// ViewStateLoading means items are still being resolved.
	ViewStateLoading ViewState = iota
	// ViewStateDone means every item has been handled.
	ViewStateDone
	// ViewStateCancelled means the user stopped the batch early.
	ViewStateCancelled
	// ViewStateError means the batch ended with an error.
	ViewStateError
)

// OutcomeMsg carries one resolved batch item.
type OutcomeMsg struct {
	Outcome geocode.Outcome
}

// BatchDoneMsg is sent once the batch returns.
type BatchDoneMsg struct {
	Err error
}

// BatchModel is the Bubble Tea model that renders batch geocoding progress.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type BatchModel struct {
	state    ViewState
	total    int
	outcomes []geocode.Outcome
	found    int
	missing  int
	current  string

	width        int
	bar          progress.Model
	loadingState *LoadingState
	cancel       context.CancelFunc

	err error
}

// NewBatchModel creates a model for a batch of total items. cancel is called
// when the user quits before the batch finishes; it may be nil.
func NewBatchModel(total int, cancel context.CancelFunc) BatchModel {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = maxBarWidth

	return BatchModel{
		state:        ViewStateLoading,
		total:        total,
		width:        defaultWidth,
		bar:          bar,
		loadingState: NewLoadingState(),
		cancel:       cancel,
	}
}

// Init starts the spinner.
func (m BatchModel) Init() tea.Cmd {
	return m.loadingState.Init()
}

// Update handles messages and updates the model state (Bubble Tea interface).
func (m BatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(maxBarWidth, max(msg.Width-barPadding, 0))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case OutcomeMsg:
		return m.handleOutcome(msg.Outcome), nil

	case BatchDoneMsg:
		if m.state == ViewStateLoading {
			if msg.Err != nil {
				m.state = ViewStateError
				m.err = msg.Err
			} else {
				m.state = ViewStateDone
			}
		}
		return m, tea.Quit

	case spinner.TickMsg:
		if m.state != ViewStateLoading {
			return m, nil
		}
		return m, m.loadingState.Update(msg)
	}
	return m, nil
}

func (m BatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		if m.state == ViewStateLoading {
			m.state = ViewStateCancelled
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m BatchModel) handleOutcome(outcome geocode.Outcome) BatchModel {
	m.outcomes = append(m.outcomes, outcome)
	if outcome.Found {
		m.found++
	} else {
		m.missing++
	}
	if outcome.Total > 0 {
		m.total = outcome.Total
	}
	m.current = fmt.Sprintf("Geocoding %d/%d: %s", outcome.Completed, m.total, itemLabel(outcome.Item))
	m.loadingState.SetMessage(m.current)
	return m
}

// View renders the model.
func (m BatchModel) View() string {
	sections := []string{HeaderStyle.Render("PlanEvent geocoder")}

	switch m.state {
	case ViewStateLoading:
		sections = append(sections, RenderLoading(m.loadingState))
	case ViewStateDone:
		sections = append(sections, OKStyle.Render(IconFound+" Batch complete"))
	case ViewStateCancelled:
		sections = append(sections, WarningStyle.Render("Batch cancelled"))
	case ViewStateError:
		sections = append(sections, CriticalStyle.Render("Batch failed: "+m.err.Error()))
	}

	sections = append(sections,
		" "+m.bar.ViewAs(m.Percent()),
		" "+m.renderCounts(),
	)
	if rows := m.renderRecent(); rows != "" {
		sections = append(sections, rows)
	}
	if m.state == ViewStateLoading {
		sections = append(sections, MutedStyle.Render(" q to stop"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m BatchModel) renderCounts() string {
	return fmt.Sprintf("%s %s   %s %s   %s",
		LabelStyle.Render("found"), ValueStyle.Render(fmt.Sprint(m.found)),
		LabelStyle.Render("missing"), ValueStyle.Render(fmt.Sprint(m.missing)),
		MutedStyle.Render(fmt.Sprintf("%d/%d", len(m.outcomes), m.total)),
	)
}

func (m BatchModel) renderRecent() string {
	if len(m.outcomes) == 0 {
		return ""
	}
	start := max(len(m.outcomes)-maxVisibleRows, 0)

	var sb strings.Builder
	for _, outcome := range m.outcomes[start:] {
		sb.WriteString(" ")
		sb.WriteString(renderOutcomeLine(outcome))
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func renderOutcomeLine(outcome geocode.Outcome) string {
	label := truncate(itemLabel(outcome.Item), maxLabelLen)
	if !outcome.Found || outcome.Coordinate == nil {
		return fmt.Sprintf("%s %s %s", CriticalStyle.Render(IconMissing), label, MutedStyle.Render("not found"))
	}
	icon := OKStyle.Render(IconFound)
	if outcome.Item.Coordinate != nil {
		icon = LabelStyle.Render(IconCached)
	}
	return fmt.Sprintf("%s %s %s", icon, label, ValueStyle.Render(outcome.Coordinate.String()))
}

// Percent returns the completed fraction in [0, 1].
func (m BatchModel) Percent() float64 {
	if m.total <= 0 {
		return 0
	}
	p := float64(len(m.outcomes)) / float64(m.total)
	return min(p, 1)
}

// State returns the current view state.
func (m BatchModel) State() ViewState { return m.state }

// Outcomes returns every outcome received so far, in arrival order.
func (m BatchModel) Outcomes() []geocode.Outcome { return m.outcomes }

// Found returns the number of items that resolved to a coordinate.
func (m BatchModel) Found() int { return m.found }

// Err returns the batch error, if any.
func (m BatchModel) Err() error { return m.err }

func itemLabel(item geocode.Item) string {
	switch {
	case item.Label != "":
		return item.Label
	case item.ID != "":
		return item.ID
	default:
		return item.Address
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-len(truncateSuffix)]) + truncateSuffix
}

// BatchRunner runs a batch, reporting each outcome through onProgress.
type BatchRunner func(ctx context.Context, onProgress geocode.ProgressFunc) error

// RunBatch drives run inside a Bubble Tea program and returns the final model
// once the batch completes or the user quits. Quitting cancels the batch's
// context; RunBatch still waits for run to return so in-flight cache writes
// finish.
func RunBatch(ctx context.Context, total int, run BatchRunner, opts ...tea.ProgramOption) (BatchModel, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(NewBatchModel(total, cancel), opts...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := run(ctx, func(outcome geocode.Outcome) {
			program.Send(OutcomeMsg{Outcome: outcome})
		})
		program.Send(BatchDoneMsg{Err: err})
	}()

	final, err := program.Run()
	cancel()
	<-done

	model, _ := final.(BatchModel)
	return model, err
}
