package theory

import "strings"

// ScaleMode selects the scale flavour of a key.
type ScaleMode string

const (
	ModeMajor         ScaleMode = "major"
	ModeMinor         ScaleMode = "minor"
	ModeHarmonicMinor ScaleMode = "harmonicMinor"
)

// Key is a scale context: a tonic pitch class and a mode.
type Key struct {
	Root PitchClass
	Mode ScaleMode
}

var scaleIntervals = map[ScaleMode][]int{
	ModeMajor:         {0, 2, 4, 5, 7, 9, 11},
	ModeMinor:         {0, 2, 3, 5, 7, 8, 10},
	ModeHarmonicMinor: {0, 2, 3, 5, 7, 8, 11},
}

// Scale returns the seven pitch classes of the key.
func (k Key) Scale() []PitchClass {
	intervals := scaleIntervals[k.Mode]
	if intervals == nil {
		intervals = scaleIntervals[ModeMajor]
	}
	out := make([]PitchClass, len(intervals))
	for i, iv := range intervals {
		out[i] = k.Root.Add(iv)
	}
	return out
}

// DegreeOf returns the scale degree (0..6) of a pitch class within the key,
// or -1 if the class is not diatonic.
func (k Key) DegreeOf(pc PitchClass) int {
	for d, s := range k.Scale() {
		if s == pc {
			return d
		}
	}
	return -1
}

var numerals = [7]string{"I", "II", "III", "IV", "V", "VI", "VII"}

// Chord builds the diatonic triad on a scale degree (0..6, wrapped).
func (k Key) Chord(degree int) Chord {
	degree = ((degree % 7) + 7) % 7
	return Chord{
		Root:    k.Scale()[degree],
		Quality: diatonicQuality(k.Mode, degree),
	}
}

// diatonicQuality is what quality a triad built on each degree natively
// has. Degrees not listed are major.
func diatonicQuality(mode ScaleMode, degree int) ChordQuality {
	if mode == ModeMajor {
		switch degree {
		case 1, 2, 5:
			return Minor
		case 6:
			return Diminished
		}
		return Major
	}
	// Both minor modes share the natural-minor table here; the raised
	// seventh of harmonic minor only changes which classes are diatonic.
	switch degree {
	case 0, 3:
		return Minor
	case 1:
		return Diminished
	}
	return Major
}

// numeralString renders a degree with the case and decorations implied by
// the chord quality: lowercase for minor, ° for diminished, 7 for sevenths.
func numeralString(degree int, quality ChordQuality) string {
	n := numerals[degree]
	if quality.IsMinor() || quality.IsDiminished() {
		n = strings.ToLower(n)
	}
	if quality.IsDiminished() {
		n += "°"
	}
	if quality.IsSeventh() {
		n += "7"
	}
	return n
}

// qualityFits reports whether a chord quality is plausible on a degree with
// the given native quality. Sus and augmented chords are colour variants
// and accepted on any diatonic degree.
func qualityFits(chord ChordQuality, native ChordQuality) bool {
	switch native {
	case Minor:
		return chord.IsMinor()
	case Diminished:
		return chord.IsDiminished()
	default:
		return !chord.IsMinor() && !chord.IsDiminished()
	}
}

// RomanNumeral labels a chord's role within a key. Diatonic chords get the
// plain numeral; a major triad or dominant seventh sitting a perfect fifth
// above a diatonic degree is labelled as that degree's secondary dominant
// ("V/ii"); anything else is "?".
func RomanNumeral(chordRoot PitchClass, quality ChordQuality, key Key) string {
	d := key.DegreeOf(chordRoot)
	if d >= 0 && qualityFits(quality, diatonicQuality(key.Mode, d)) {
		return numeralString(d, quality)
	}

	// Secondary dominant: V/x for a major or dom7 chord whose root is a
	// perfect fifth above some diatonic degree.
	if quality == Major || quality == Dom7 {
		for t, pc := range key.Scale() {
			if chordRoot == pc.Add(7) {
				target := diatonicQuality(key.Mode, t)
				return "V/" + numeralString(t, target)
			}
		}
	}

	if d >= 0 {
		// Diatonic root with a borrowed quality; still name the degree.
		return numeralString(d, quality)
	}
	return "?"
}
