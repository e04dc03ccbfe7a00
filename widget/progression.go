package widget

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"tonelab/engine"
	"tonelab/theory"
	"tonelab/transport"
)

// progressionVoices is the polyphony of the playback voice bank; chords
// with more notes than this drop the top.
const progressionVoices = 4

// ChordSlot is one entry of a progression, addressable by a stable id
// across reorder and replace operations.
type ChordSlot struct {
	ID    uuid.UUID
	Chord theory.Chord
}

// Progression is the chord-progression builder: an editable chord list
// with voicing control, Roman-numeral analysis against a key, and
// looped one-chord-per-beat playback.
type Progression struct {
	*base

	pmu          sync.Mutex
	key          theory.Key
	chords       []ChordSlot
	currentIndex int
	seq          *transport.Sequence
}

// NewProgression creates an empty progression in C major.
func NewProgression(env Env) *Progression {
	p := &Progression{
		key:          theory.Key{Root: theory.C, Mode: theory.ModeMajor},
		currentIndex: -1,
	}
	specs := []ParamSpec{
		{Name: "octave", Kind: Int, Min: 2, Max: 6, Step: 1, Default: 4, Binding: engine.BindImmediate},
		{Name: "voicing", Kind: Enum, Min: 0, Max: 2, Step: 1, Default: 0, Binding: engine.BindImmediate},
		{Name: "shift", Kind: Int, Min: -2, Max: 2, Step: 1, Default: 0, Unit: "oct", Binding: engine.BindImmediate},
		{Name: "level", Kind: Float, Min: 0, Max: 1, Default: 0.6, Unit: "gain", Binding: engine.BindRamped},
		{Name: "decay", Kind: Float, Min: 0.05, Max: 3, Default: 0.8, Unit: "s", Binding: engine.BindImmediate},
	}
	p.base = newBase(env, "progression", specs, p.buildRecipe)
	p.binder.Bind(engine.Binding{Param: "level", NodeID: "mix", Attr: "gain", Kind: engine.BindRamped})

	p.seq = env.Transport.AddSequence(1, transport.Quarter, p.onStep)
	return p
}

func (p *Progression) buildRecipe() engine.Recipe {
	r := engine.Recipe{
		Nodes: []engine.NodeSpec{
			{Kind: engine.KindGain, ID: "mix", Params: map[string]float64{"gain": p.Get("level")}},
			{Kind: engine.KindAnalyser, ID: "scope"},
		},
		Edges: [][2]string{{"mix", "scope"}},
	}
	for i := 0; i < progressionVoices; i++ {
		id := voiceID(i)
		r.Nodes = append(r.Nodes, engine.NodeSpec{
			Kind: engine.KindOscillator,
			ID:   id,
			Params: map[string]float64{
				"sustain": 0,
				"decay":   p.Get("decay"),
				"level":   0.25,
			},
		})
		r.Edges = append(r.Edges, [2]string{id, "mix"})
	}
	return r
}

func voiceID(i int) string {
	return "voice" + string(rune('0'+i))
}

// Key returns the analysis key.
func (p *Progression) Key() theory.Key {
	p.pmu.Lock()
	defer p.pmu.Unlock()
	return p.key
}

// SetKey changes the analysis key. Playback is unaffected.
func (p *Progression) SetKey(k theory.Key) {
	p.pmu.Lock()
	p.key = k
	p.pmu.Unlock()
}

// Chords returns a copy of the chord list.
func (p *Progression) Chords() []ChordSlot {
	p.pmu.Lock()
	defer p.pmu.Unlock()
	out := make([]ChordSlot, len(p.chords))
	copy(out, p.chords)
	return out
}

// AddChord appends a chord and returns its slot id.
func (p *Progression) AddChord(c theory.Chord) uuid.UUID {
	return p.InsertChord(len(p.chords), c)
}

// InsertChord places a chord at index i, clamped into range.
func (p *Progression) InsertChord(i int, c theory.Chord) uuid.UUID {
	p.pmu.Lock()
	if i < 0 {
		i = 0
	}
	if i > len(p.chords) {
		i = len(p.chords)
	}
	slot := ChordSlot{ID: uuid.New(), Chord: c}
	p.chords = append(p.chords, ChordSlot{})
	copy(p.chords[i+1:], p.chords[i:])
	p.chords[i] = slot
	p.pmu.Unlock()
	p.resize()
	return slot.ID
}

// RemoveChord deletes a slot by id.
func (p *Progression) RemoveChord(id uuid.UUID) {
	p.pmu.Lock()
	for i, s := range p.chords {
		if s.ID == id {
			p.chords = append(p.chords[:i], p.chords[i+1:]...)
			break
		}
	}
	p.pmu.Unlock()
	p.resize()
}

// MoveChord shifts the slot at index from to index to.
func (p *Progression) MoveChord(from, to int) {
	p.pmu.Lock()
	if from >= 0 && from < len(p.chords) && to >= 0 && to < len(p.chords) && from != to {
		s := p.chords[from]
		p.chords = append(p.chords[:from], p.chords[from+1:]...)
		p.chords = append(p.chords[:to], append([]ChordSlot{s}, p.chords[to:]...)...)
	}
	p.pmu.Unlock()
}

// ReplaceChord swaps the chord in a slot, keeping its id.
func (p *Progression) ReplaceChord(id uuid.UUID, c theory.Chord) {
	p.pmu.Lock()
	for i := range p.chords {
		if p.chords[i].ID == id {
			p.chords[i].Chord = c
			break
		}
	}
	p.pmu.Unlock()
}

// Analysis returns the Roman numeral of every chord in the current key.
func (p *Progression) Analysis() []string {
	p.pmu.Lock()
	defer p.pmu.Unlock()
	out := make([]string, len(p.chords))
	for i, s := range p.chords {
		out[i] = theory.RomanNumeral(s.Chord.Root, s.Chord.Quality, p.key)
	}
	return out
}

// CurrentIndex is the chord sounding now, -1 while stopped.
func (p *Progression) CurrentIndex() int {
	p.pmu.Lock()
	defer p.pmu.Unlock()
	return p.currentIndex
}

// resize keeps the sequence length equal to the chord count.
func (p *Progression) resize() {
	p.pmu.Lock()
	n := len(p.chords)
	p.pmu.Unlock()
	if n < 1 {
		n = 1
	}
	p.env.Transport.SetSteps(p.seq, n)
}

// onStep fires the voice bank with the step's chord tones.
func (p *Progression) onStep(at time.Time, step int, velocity float64) {
	p.pmu.Lock()
	if step < 0 || step >= len(p.chords) {
		p.currentIndex = -1
		p.pmu.Unlock()
		return
	}
	p.currentIndex = step
	chord := p.chords[step].Chord
	p.pmu.Unlock()

	g := p.liveGraph()
	if g == nil || p.State() != StatePlaying {
		return
	}
	styles := []theory.VoicingStyle{theory.VoicingClose, theory.VoicingSpread, theory.VoicingDrop2}
	voicing := theory.Voicing{
		Style:       styles[int(p.Get("voicing"))],
		OctaveShift: int(p.Get("shift")),
	}
	notes := theory.ChordNotes(chord.Root, chord.Quality, int(p.Get("octave")), voicing)
	for i := 0; i < progressionVoices; i++ {
		node := g.Node(voiceID(i))
		if node == nil {
			continue
		}
		if i < len(notes) {
			node.Param("frequency").Set(notes[i].Frequency())
			g.Trigger(voiceID(i), velocity)
		}
	}
}

// Play starts playback from the top of the progression.
func (p *Progression) Play() error {
	if err := p.base.Play(); err != nil {
		return err
	}
	p.env.Transport.Start()
	return nil
}

// Stop halts playback and clears the playhead.
func (p *Progression) Stop() {
	p.base.Stop()
	p.pmu.Lock()
	p.currentIndex = -1
	p.pmu.Unlock()
}

// Close drops the widget's sequence along with its graph.
func (p *Progression) Close() {
	p.env.Transport.RemoveSequence(p.seq)
	p.base.Close()
}
