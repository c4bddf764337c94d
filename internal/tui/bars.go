// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"visualizer/internal/analysis"
)

const (
	defaultHeight = 16
	refreshRate   = time.Second / 30
)

// Eighth-block glyphs used for the partial top cell of a bar.
var blocks = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type tickMsg time.Time

// frameStore hands the latest frame from the pipeline to the UI loop.
type frameStore struct {
	mu     sync.Mutex
	bars   []float64
	frames uint64
}

func (s *frameStore) set(bars []float64) {
	s.mu.Lock()
	s.bars = append(s.bars[:0], bars...)
	s.frames++
	s.mu.Unlock()
}

func (s *frameStore) latest(dst []float64) ([]float64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(dst[:0], s.bars...), s.frames
}

// BarsModel is the Bubble Tea model drawing one column per bar.
type BarsModel struct {
	title   string
	bands   analysis.BandMap
	ceiling float64
	height  int
	width   int

	store  *frameStore
	bars   []float64
	frames uint64
}

// NewBarsModel creates a model for the given bands. Bar values are drawn
// relative to ceiling.
func NewBarsModel(title string, bands analysis.BandMap, ceiling float64) BarsModel {
	if ceiling <= 0 {
		ceiling = 1
	}
	return BarsModel{
		title:   title,
		bands:   bands,
		ceiling: ceiling,
		height:  defaultHeight,
		bars:    make([]float64, len(bands)),
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m BarsModel) Init() tea.Cmd {
	if m.store == nil {
		return nil
	}
	return tick()
}

func (m BarsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = max(msg.Height-6, 1)

	case tickMsg:
		if m.store != nil {
			m.bars, m.frames = m.store.latest(m.bars)
		}
		return m, tick()

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m BarsModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	for row := m.height - 1; row >= 0; row-- {
		for _, v := range m.bars {
			sb.WriteString(m.cell(v, row))
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(m.axis())
	sb.WriteString("\n\n")

	peak := 0.0
	if len(m.bars) > 0 {
		peak = slices.Max(m.bars)
	}
	sb.WriteString(infoStyle.Render(fmt.Sprintf("frames: %d  peak: %.2f  •  %s",
		m.frames, peak, keys.Quit.Help().Key+": "+keys.Quit.Help().Desc)))
	return sb.String()
}

// cell renders the glyph of a bar with value v at the given row.
func (m BarsModel) cell(v float64, row int) string {
	level := min(max(v/m.ceiling, 0), 1) * float64(m.height)
	fill := level - float64(row)

	var r rune
	switch {
	case fill >= 1:
		r = blocks[len(blocks)-1]
	case fill <= 0:
		return " "
	default:
		r = blocks[int(fill*float64(len(blocks)-1))]
	}

	switch frac := float64(row) / float64(m.height); {
	case frac >= 0.75:
		return highStyle.Render(string(r))
	case frac >= 0.4:
		return midStyle.Render(string(r))
	default:
		return lowStyle.Render(string(r))
	}
}

// axis labels the outer band edges under the bars.
func (m BarsModel) axis() string {
	if len(m.bands) == 0 {
		return ""
	}
	left := formatHz(m.bands[0].Low)
	right := formatHz(m.bands[len(m.bands)-1].High)
	gap := max(len(m.bands)-len(left)-len(right), 1)
	return highlightStyle.Render(left + strings.Repeat(" ", gap) + right)
}

func formatHz(f float64) string {
	if f >= 1000 {
		return fmt.Sprintf("%.1fk", f/1000)
	}
	return fmt.Sprintf("%.0f", f)
}

// Display is a sink that draws frames in the terminal. Send only stores
// the latest frame; the UI picks it up at its own refresh rate.
type Display struct {
	store   *frameStore
	program *tea.Program
	running atomic.Bool
	done    chan struct{}
}

// NewDisplay prepares the terminal UI. Call Run to take over the terminal.
func NewDisplay(title string, bands analysis.BandMap, ceiling float64, opts ...tea.ProgramOption) *Display {
	model := NewBarsModel(title, bands, ceiling)
	model.store = &frameStore{}

	return &Display{
		store:   model.store,
		program: tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...),
		done:    make(chan struct{}),
	}
}

// Run blocks until the user quits or Close is called.
func (d *Display) Run() error {
	d.running.Store(true)
	defer close(d.done)
	_, err := d.program.Run()
	return err
}

// Done is closed once Run returns.
func (d *Display) Done() <-chan struct{} {
	return d.done
}

func (d *Display) Send(bars []float64) error {
	d.store.set(bars)
	return nil
}

// Close quits the UI. Before Run has started the program is killed
// instead, since Quit would wait for the event loop.
func (d *Display) Close() error {
	if !d.running.Load() {
		d.program.Kill()
		return nil
	}
	d.program.Quit()
	return nil
}
