// Package theory contains the pure music-theory kernel: pitch classes,
// chord construction, Roman numeral analysis, just-intonation intervals
// and Euclidean rhythm generation. Everything here is deterministic and
// side-effect free.
package theory

import (
	"fmt"
	"math"
)

// PitchClass is one of the twelve chromatic pitch names, 0 = C .. 11 = B.
type PitchClass int

const (
	C PitchClass = iota
	Cs
	D
	Ds
	E
	F
	Fs
	G
	Gs
	A
	As
	B
)

var pitchClassNames = [12]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
}

// ParsePitchClass maps a chromatic name ("C", "C#", ... "B") to its class.
func ParsePitchClass(name string) (PitchClass, bool) {
	for i, n := range pitchClassNames {
		if n == name {
			return PitchClass(i), true
		}
	}
	return 0, false
}

func (pc PitchClass) String() string {
	return pitchClassNames[((int(pc)%12)+12)%12]
}

// Add returns the pitch class shifted by semitones, modulo 12.
func (pc PitchClass) Add(semitones int) PitchClass {
	return PitchClass((((int(pc) + semitones) % 12) + 12) % 12)
}

// Pitch is a pitch class with an octave, e.g. C4.
type Pitch struct {
	Class  PitchClass
	Octave int
}

func (p Pitch) String() string {
	return fmt.Sprintf("%s%d", p.Class, p.Octave)
}

// MIDI returns the MIDI note number (C4 = 60).
func (p Pitch) MIDI() int {
	return (p.Octave+1)*12 + int(p.Class)
}

// Frequency returns the equal-temperament frequency in Hz (A4 = 440).
func (p Pitch) Frequency() float64 {
	return 440.0 * math.Exp2((float64(p.MIDI())-69.0)/12.0)
}

// ChordQuality enumerates the supported chord qualities.
type ChordQuality string

const (
	Major      ChordQuality = "major"
	Minor      ChordQuality = "minor"
	Diminished ChordQuality = "diminished"
	Augmented  ChordQuality = "augmented"
	Dom7       ChordQuality = "dom7"
	Maj7       ChordQuality = "maj7"
	Min7       ChordQuality = "min7"
	Dim7       ChordQuality = "dim7"
	Sus2       ChordQuality = "sus2"
	Sus4       ChordQuality = "sus4"
	Sixth      ChordQuality = "6"
	Min6       ChordQuality = "min6"
)

// chordIntervals maps each quality to semitone offsets from the root.
var chordIntervals = map[ChordQuality][]int{
	Major:      {0, 4, 7},
	Minor:      {0, 3, 7},
	Diminished: {0, 3, 6},
	Augmented:  {0, 4, 8},
	Dom7:       {0, 4, 7, 10},
	Maj7:       {0, 4, 7, 11},
	Min7:       {0, 3, 7, 10},
	Dim7:       {0, 3, 6, 9},
	Sus2:       {0, 2, 7},
	Sus4:       {0, 5, 7},
	Sixth:      {0, 4, 7, 9},
	Min6:       {0, 3, 7, 9},
}

// Intervals returns the semitone offsets for a quality, or nil if unknown.
func (q ChordQuality) Intervals() []int {
	return chordIntervals[q]
}

// IsMinor reports whether the quality has a minor third and no flat fifth.
func (q ChordQuality) IsMinor() bool {
	switch q {
	case Minor, Min7, Min6:
		return true
	}
	return false
}

// IsMajor reports whether the quality has a major third and a perfect fifth.
func (q ChordQuality) IsMajor() bool {
	switch q {
	case Major, Maj7, Dom7, Sixth:
		return true
	}
	return false
}

// IsDiminished reports whether the quality is diminished.
func (q ChordQuality) IsDiminished() bool {
	return q == Diminished || q == Dim7
}

// IsSeventh reports whether the quality carries a seventh.
func (q ChordQuality) IsSeventh() bool {
	switch q {
	case Dom7, Maj7, Min7, Dim7:
		return true
	}
	return false
}

// Chord is a root pitch class with a quality. The ID is assigned when the
// chord is inserted into a progression and never changes afterwards.
type Chord struct {
	Root    PitchClass
	Quality ChordQuality
	ID      string
}

func (c Chord) String() string {
	return fmt.Sprintf("%s %s", c.Root, c.Quality)
}

// Transpose shifts the chord root by semitones, preserving the quality.
// The ID is preserved as well: transposing a chord in place does not make
// it a different progression entry.
func (c Chord) Transpose(semitones int) Chord {
	c.Root = c.Root.Add(semitones)
	return c
}

// VoicingStyle selects the octave distribution of chord tones.
type VoicingStyle string

const (
	VoicingClose  VoicingStyle = "close"
	VoicingSpread VoicingStyle = "spread"
	VoicingDrop2  VoicingStyle = "drop2"
)

// Voicing is a style plus an overall octave shift in [-2, +2].
type Voicing struct {
	Style       VoicingStyle
	OctaveShift int
}

// ChordNotes returns the pitches of a chord at baseOctave under the given
// voicing. Unknown qualities degrade to just the root. For close voicing
// the result is monotonically non-decreasing in MIDI pitch; spread adds
// floor(i/2) octaves per tone; drop2 lowers the second-highest tone of a
// four-note chord by an octave and lists it directly after the root.
func ChordNotes(root PitchClass, quality ChordQuality, baseOctave int, v Voicing) []Pitch {
	shift := v.OctaveShift
	if shift < -2 {
		shift = -2
	}
	if shift > 2 {
		shift = 2
	}

	intervals := quality.Intervals()
	if intervals == nil {
		return []Pitch{{Class: root, Octave: baseOctave + shift}}
	}

	notes := make([]Pitch, len(intervals))
	for i, iv := range intervals {
		total := int(root) + iv
		octave := baseOctave + shift + total/12
		if v.Style == VoicingSpread {
			octave += i / 2
		}
		notes[i] = Pitch{Class: PitchClass(total % 12), Octave: octave}
	}

	if v.Style == VoicingDrop2 && len(notes) >= 4 {
		// Drop the second-highest tone an octave and slot it after the root.
		dropped := notes[2]
		dropped.Octave--
		notes[2] = notes[1]
		notes[1] = dropped
	}

	return notes
}
