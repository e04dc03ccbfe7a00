package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"tonelab/config"
	"tonelab/debug"
	"tonelab/engine"
	"tonelab/theme"
	"tonelab/transport"
	"tonelab/tui"
	"tonelab/widget"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if cfg.UI.Debug {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	palette, err := theme.Load(cfg.UI.PaletteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "palette: %v\n", err)
		os.Exit(1)
	}
	th := theme.New(palette)

	ec := engine.NewContext(cfg.Audio.SampleRate)
	ec.BlockFrames = cfg.Audio.BlockFrames
	session := engine.NewSession(ec, engine.NewOtoOutput(ec))
	defer session.Close()

	tr := transport.New()
	defer tr.Close()
	tr.SetBPM(cfg.Scheduler.BPM)
	tr.SetLoopEndBeats(cfg.Scheduler.LoopEndBeats)

	env := widget.Env{
		Session:   session,
		Transport: tr,
		Loader:    engine.NewAssetLoader(),
	}

	// Seed the progression with a I-V-vi-IV so it sounds on first play.
	prog := widget.NewProgression(env)
	for _, degree := range []int{0, 4, 5, 3} {
		prog.AddChord(prog.Key().Chord(degree))
	}

	widgets := []widget.Controller{
		prog,
		widget.NewEuclid(env),
		widget.NewPolyrhythm(env),
		widget.NewTremolo(env),
		widget.NewPanner(env),
		widget.NewPortamento(env),
		widget.NewHumanizer(env),
		widget.NewGranular(env),
		widget.NewBassBoost(env),
		widget.NewSlowedReverb(env),
	}
	defer func() {
		for _, w := range widgets {
			w.Close()
		}
	}()

	m := tui.NewModel(tr, th, widgets)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
