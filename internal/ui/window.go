package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

const windowTick = 100 * time.Millisecond

type windowTickMsg struct{}

type windowDoneMsg struct{}

// windowModel shows a spinner and a bar filling up over a fixed window.
type windowModel struct {
	label     string
	window    time.Duration
	elapsed   time.Duration
	spinner   spinner.Model
	bar       progress.Model
	done      bool
	cancelled bool
}

func newWindowModel(label string, window time.Duration) windowModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return windowModel{
		label:   label,
		window:  window,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
	}
}

func tickWindow() tea.Cmd {
	return tea.Tick(windowTick, func(time.Time) tea.Msg { return windowTickMsg{} })
}

func (m windowModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickWindow())
}

func (m windowModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancelled = true
			return m, tea.Quit
		}
	case windowTickMsg:
		m.elapsed = min(m.elapsed+windowTick, m.window)
		return m, tickWindow()
	case windowDoneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m windowModel) percent() float64 {
	if m.window <= 0 {
		return 1
	}
	return float64(m.elapsed) / float64(m.window)
}

func (m windowModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return fmt.Sprintf("  %s %s  %s  %.1fs / %.1fs\n",
		m.spinner.View(), m.label, m.bar.ViewAs(m.percent()),
		m.elapsed.Seconds(), m.window.Seconds())
}

// RunWindow runs work while showing a countdown over window. Without a
// terminal on out it just runs work. Ctrl+C cancels the context given to work.
func RunWindow(ctx context.Context, out io.Writer, label string, window time.Duration, work func(context.Context) error) error {
	if !isTerminal(out) {
		return work(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newWindowModel(label, window), tea.WithOutput(out))
	errc := make(chan error, 1)
	go func() {
		errc <- work(ctx)
		p.Send(windowDoneMsg{})
	}()

	final, runErr := p.Run()
	if m, ok := final.(windowModel); ok && m.cancelled {
		cancel()
	}
	err := <-errc
	if err == nil && runErr != nil {
		return fmt.Errorf("failed to render progress: %w", runErr)
	}
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
