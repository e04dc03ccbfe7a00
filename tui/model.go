package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tonelab/engine"
	"tonelab/theme"
	"tonelab/theory"
	"tonelab/transport"
	"tonelab/widget"
)

type Model struct {
	Transport *transport.Transport
	Theme     *theme.Theme

	widgets  []widget.Controller
	current  int
	paramIdx int
	status   string
	quitting bool

	// cancels an in-flight offline render when the program quits
	renderCancel context.CancelFunc

	// rotating degree for the progression's "add chord" key
	nextDegree int
	// rotating note for the portamento's "note" key
	nextNote int
}

// StepMsg wakes the view on every scheduler hit so playheads move.
type StepMsg transport.StepEvent

type tickMsg time.Time

type renderDoneMsg struct {
	path string
	err  error
}

func NewModel(tr *transport.Transport, th *theme.Theme, widgets []widget.Controller) Model {
	return Model{
		Transport: tr,
		Theme:     th,
		widgets:   widgets,
	}
}

func ListenForSteps(tr *transport.Transport) tea.Cmd {
	return func() tea.Msg {
		return StepMsg(<-tr.Draw())
	}
}

// tick keeps the scope strip moving between scheduler hits.
func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(ListenForSteps(m.Transport), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case StepMsg:
		return m, ListenForSteps(m.Transport)

	case tickMsg:
		return m, tick()

	case renderDoneMsg:
		if m.renderCancel != nil {
			m.renderCancel()
			m.renderCancel = nil
		}
		if msg.err != nil {
			m.status = fmt.Sprintf("render failed: %v", msg.err)
		} else {
			m.status = "rendered " + msg.path
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cur := m.widgets[m.current]

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.renderCancel != nil {
			m.renderCancel()
		}
		for _, w := range m.widgets {
			w.Stop()
		}
		m.Transport.Stop()
		return m, tea.Quit

	case "1", "2", "3", "4", "5", "6", "7", "8", "9", "0":
		idx := int(msg.String()[0] - '1')
		if msg.String() == "0" {
			idx = 9
		}
		if idx < len(m.widgets) {
			m.current = idx
			m.paramIdx = 0
			m.status = ""
		}

	case "j", "down":
		if m.paramIdx < len(cur.Params())-1 {
			m.paramIdx++
		}

	case "k", "up":
		if m.paramIdx > 0 {
			m.paramIdx--
		}

	case "h", "left":
		m.adjustParam(cur, -1)

	case "l", "right":
		m.adjustParam(cur, +1)

	case "p", " ":
		if cur.State() == widget.StatePlaying {
			cur.Stop()
			m.status = "stopped"
		} else if err := cur.Play(); err != nil {
			m.status = err.Error()
		} else {
			m.status = "playing"
		}

	case "+", "=":
		m.Transport.SetBPM(m.Transport.BPM() + 5)

	case "-", "_":
		m.Transport.SetBPM(m.Transport.BPM() - 5)

	case "b":
		if w, ok := cur.(interface {
			SetBypass(bool)
			Bypassed() bool
		}); ok {
			w.SetBypass(!w.Bypassed())
			m.status = fmt.Sprintf("bypass %v", w.Bypassed())
		}

	case "a":
		if w, ok := cur.(*widget.Progression); ok {
			c := w.Key().Chord(m.nextDegree)
			w.AddChord(c)
			m.nextDegree = (m.nextDegree + 3) % 7
			m.status = "added " + c.String()
		}

	case "x":
		if w, ok := cur.(*widget.Progression); ok {
			chords := w.Chords()
			if len(chords) > 0 {
				w.RemoveChord(chords[len(chords)-1].ID)
				m.status = "removed last chord"
			}
		}

	case "n":
		if w, ok := cur.(*widget.Portamento); ok {
			notes := []theory.Pitch{
				{Class: theory.A, Octave: 3},
				{Class: theory.C, Octave: 4},
				{Class: theory.E, Octave: 4},
				{Class: theory.G, Octave: 4},
				{Class: theory.A, Octave: 4},
			}
			p := notes[m.nextNote%len(notes)]
			m.nextNote++
			w.NoteOn(p)
			m.status = "note " + p.String()
		}

	case "r":
		if w, ok := cur.(*widget.SlowedReverb); ok {
			ctx, cancel := context.WithCancel(context.Background())
			m.renderCancel = cancel
			m.status = "rendering..."
			return m, renderCmd(ctx, w)
		}
	}

	return m, nil
}

func renderCmd(ctx context.Context, w *widget.SlowedReverb) tea.Cmd {
	return func() tea.Msg {
		path, err := w.RenderToFile(ctx, ".", nil)
		return renderDoneMsg{path: path, err: err}
	}
}

func (m Model) adjustParam(cur widget.Controller, dir float64) {
	specs := cur.Params()
	if m.paramIdx >= len(specs) {
		return
	}
	s := specs[m.paramIdx]
	step := s.Step
	if step == 0 {
		step = (s.Max - s.Min) / 32
	}
	cur.Set(s.Name, cur.Get(s.Name)+dir*step)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	cur := m.widgets[m.current]

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	activeStyle := lipgloss.NewStyle().Foreground(m.Theme.Active())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())
	statusStyle := lipgloss.NewStyle().
		Foreground(m.Theme.FG()).
		Background(m.Theme.Muted()).
		Padding(0, 1)

	header := headerStyle.Render(fmt.Sprintf("tonelab  %s  %3.0fbpm",
		strings.ToUpper(m.Transport.Phase().String()), m.Transport.BPM()))

	// Widget picker line.
	var picker strings.Builder
	for i, w := range m.widgets {
		key := byte('1' + i)
		if i == 9 {
			key = '0'
		}
		label := fmt.Sprintf("%c:%s", key, w.Name())
		if i == m.current {
			picker.WriteString(activeStyle.Render(label))
		} else {
			picker.WriteString(dimStyle.Render(label))
		}
		picker.WriteString("  ")
	}

	stateLine := fmt.Sprintf("state: %s", cur.State())
	if err := cur.Err(); err != nil {
		stateLine += "  " + warnStyle.Render(err.Error())
	}

	help := dimStyle.Render("1-0:widget  jk:param  hl:adjust  p:play  b:bypass  +/-:tempo  q:quit")

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(picker.String())
	out.WriteString("\n\n")
	out.WriteString(stateLine)
	out.WriteString("\n\n")
	out.WriteString(m.renderParams(cur))
	if body := m.renderBody(cur); body != "" {
		out.WriteString("\n")
		out.WriteString(body)
	}
	if scope := m.renderScope(cur); scope != "" {
		out.WriteString("\n")
		out.WriteString(dimStyle.Render(scope))
		out.WriteString("\n")
	}
	out.WriteString("\n")
	out.WriteString(help)
	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(statusStyle.Render(m.status))
	}
	return out.String()
}

func (m Model) renderParams(cur widget.Controller) string {
	cursorStyle := lipgloss.NewStyle().Foreground(m.Theme.Cursor())
	var out strings.Builder
	for i, s := range cur.Params() {
		cursor := "  "
		line := fmt.Sprintf("%-14s %s", s.Name, formatValue(s, cur.Get(s.Name)))
		if i == m.paramIdx {
			cursor = string(m.Theme.Symbols.StepPlayhead) + " "
			line = cursorStyle.Render(line)
		}
		out.WriteString(cursor)
		out.WriteString(line)
		out.WriteString("\n")
	}
	return out.String()
}

func formatValue(s widget.ParamSpec, v float64) string {
	switch s.Kind {
	case widget.Bool:
		if v >= 0.5 {
			return "on"
		}
		return "off"
	case widget.Int, widget.Enum:
		return fmt.Sprintf("%d%s", int(v), s.Unit)
	default:
		return fmt.Sprintf("%.2f%s", v, s.Unit)
	}
}

// renderBody draws the widget-specific display under the parameter list.
func (m Model) renderBody(cur widget.Controller) string {
	switch w := cur.(type) {
	case *widget.Euclid:
		return m.renderPattern(w.Pattern(), w.CurrentStep()) + "\n"

	case *widget.Progression:
		return m.renderChords(w) + "\n"

	case *widget.Polyrhythm:
		a, b := w.Steps()
		lenA, lenB := int(w.Get("lenA")), int(w.Get("lenB"))
		return m.renderRow(lenA, a) + "\n" +
			m.renderRow(lenB, b) +
			fmt.Sprintf("  align:%d\n", w.AlignBeats())

	case *widget.Humanizer:
		return m.renderRow(8, w.CurrentStep()) + "\n"
	}
	return ""
}

func (m Model) renderPattern(p theory.Pattern, playhead int) string {
	sym := m.Theme.Symbols
	var out strings.Builder
	for i, hit := range p {
		switch {
		case i == playhead:
			out.WriteRune(sym.StepPlayhead)
		case hit:
			out.WriteRune(sym.StepActive)
		default:
			out.WriteRune(sym.StepEmpty)
		}
		out.WriteByte(' ')
	}
	return out.String()
}

func (m Model) renderRow(n, playhead int) string {
	sym := m.Theme.Symbols
	var out strings.Builder
	for i := 0; i < n; i++ {
		if i == playhead {
			out.WriteRune(sym.StepPlayhead)
		} else {
			out.WriteRune(sym.StepActive)
		}
		out.WriteByte(' ')
	}
	return out.String()
}

func (m Model) renderChords(w *widget.Progression) string {
	activeStyle := lipgloss.NewStyle().Foreground(m.Theme.Active())
	chords := w.Chords()
	analysis := w.Analysis()
	playhead := w.CurrentIndex()

	if len(chords) == 0 {
		return "(no chords, a:add)"
	}
	var out strings.Builder
	for i, slot := range chords {
		label := slot.Chord.String()
		if i < len(analysis) {
			label += " [" + analysis[i] + "]"
		}
		if i == playhead {
			out.WriteString(activeStyle.Render(label))
		} else {
			out.WriteString(label)
		}
		out.WriteString("  ")
	}
	return out.String()
}

// renderScope draws a one-line waveform sparkline from the widget's
// analyser tap.
func (m Model) renderScope(cur widget.Controller) string {
	a := cur.Analyser()
	if a == nil || cur.State() != widget.StatePlaying {
		return ""
	}
	samples := a.Snapshot(engine.TimeDomain)
	if len(samples) == 0 {
		return ""
	}

	const width = 48
	ramp := []rune(" ▁▂▃▄▅▆▇█")
	stride := len(samples) / width
	if stride == 0 {
		stride = 1
	}
	var out strings.Builder
	for i := 0; i < width && i*stride < len(samples); i++ {
		// peak over the stride window
		peak := 0.0
		for j := i * stride; j < (i+1)*stride && j < len(samples); j++ {
			v := samples[j]
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
		idx := int(peak * float64(len(ramp)-1))
		if idx >= len(ramp) {
			idx = len(ramp) - 1
		}
		out.WriteRune(ramp[idx])
	}
	return out.String()
}
