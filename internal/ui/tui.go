package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// TUIRenderer renders indexing progress with a bubbletea program: a
// spinner while the stage total is unknown, a progress bar once it is.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	done    chan struct{}
	started bool
}

// NewTUIRenderer creates a TUI renderer. It returns an error if the
// configured output is not a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}
	return &TUIRenderer{cfg: cfg, done: make(chan struct{})}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}

	styles := GetStyles(r.cfg.NoColor || DetectNoColor())
	model := newIndexModel(r.cfg.Label, styles)

	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	opts = append(opts, tea.WithContext(ctx))

	r.program = tea.NewProgram(model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()

	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(progressMsg(event))
	}
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(errorMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	program := r.program
	r.mu.Unlock()

	if program == nil {
		return nil
	}
	program.Quit()

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}

type progressMsg ProgressEvent
type errorMsg ErrorEvent
type completeMsg CompletionStats

// indexModel is the bubbletea model driving the index progress display.
type indexModel struct {
	label    string
	styles   Styles
	spinner  spinner.Model
	progress progress.Model

	stage    Stage
	current  int
	total    int
	item     string
	errors   int
	warnings int
	done     bool
	stats    CompletionStats
}

func newIndexModel(label string, styles Styles) *indexModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Active

	pb := progress.New(progress.WithSolidFill(ColorLime), progress.WithWidth(50), progress.WithoutPercentage())

	return &indexModel{
		label:    label,
		styles:   styles,
		spinner:  sp,
		progress: pb,
	}
}

func (m *indexModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *indexModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.progress.Width = msg.Width - 4
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil
	case progressMsg:
		m.stage = msg.Stage
		m.current = msg.Current
		m.total = msg.Total
		if msg.Item != "" {
			m.item = msg.Item
		} else if msg.Message != "" {
			m.item = msg.Message
		}
		return m, nil
	case errorMsg:
		if msg.IsWarn {
			m.warnings++
		} else {
			m.errors++
		}
		return m, nil
	case completeMsg:
		m.done = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *indexModel) View() string {
	var b strings.Builder

	if m.label != "" {
		b.WriteString(m.styles.Header.Render("veyra index: " + m.label))
		b.WriteString("\n\n")
	}

	if m.done {
		b.WriteString(m.styles.Success.Render(fmt.Sprintf(
			"Complete: %d items, %d chunks in %s",
			m.stats.Items, m.stats.Chunks, m.stats.Duration.Round(100*time.Millisecond))))
		if m.stats.Errors > 0 || m.stats.Warnings > 0 {
			b.WriteString(m.styles.Warning.Render(fmt.Sprintf(
				" (%d errors, %d warnings)", m.stats.Errors, m.stats.Warnings)))
		}
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(m.styles.Stage.Render(m.stage.String()))
	b.WriteString("\n")

	if m.total > 0 {
		b.WriteString(m.progress.ViewAs(float64(m.current) / float64(m.total)))
		b.WriteString(fmt.Sprintf(" %d/%d", m.current, m.total))
		b.WriteString("\n")
	}

	if m.item != "" {
		b.WriteString(m.styles.Dim.Render(m.item))
		b.WriteString("\n")
	}

	if m.errors > 0 || m.warnings > 0 {
		b.WriteString(m.styles.Label.Render(fmt.Sprintf("%d errors, %d warnings\n", m.errors, m.warnings)))
	}

	return b.String()
}
