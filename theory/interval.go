package theory

// Interval names the twelve chromatic intervals plus the octave.
type Interval int

const (
	Unison Interval = iota
	MinorSecond
	MajorSecond
	MinorThird
	MajorThird
	PerfectFourth
	Tritone
	PerfectFifth
	MinorSixth
	MajorSixth
	MinorSeventh
	MajorSeventh
	Octave
)

// IntervalInfo describes an interval in just intonation.
type IntervalInfo struct {
	Name      string
	Num       int // ratio numerator
	Den       int // ratio denominator
	Consonant bool
}

var intervalTable = [13]IntervalInfo{
	{"unison", 1, 1, true},
	{"minor second", 16, 15, false},
	{"major second", 9, 8, false},
	{"minor third", 6, 5, true},
	{"major third", 5, 4, true},
	{"perfect fourth", 4, 3, true},
	{"tritone", 45, 32, false},
	{"perfect fifth", 3, 2, true},
	{"minor sixth", 8, 5, true},
	{"major sixth", 5, 3, true},
	{"minor seventh", 16, 9, false},
	{"major seventh", 15, 8, false},
	{"octave", 2, 1, true},
}

// Info returns the just-intonation description of the interval.
func (iv Interval) Info() IntervalInfo {
	if iv < Unison || iv > Octave {
		return intervalTable[Unison]
	}
	return intervalTable[iv]
}

func (iv Interval) String() string {
	return iv.Info().Name
}

// Ratio returns the just-intonation frequency ratio.
func (iv Interval) Ratio() float64 {
	info := iv.Info()
	return float64(info.Num) / float64(info.Den)
}

// IntervalFrequency returns the frequency of a note the given interval
// above baseHz, using just-intonation ratios.
func IntervalFrequency(baseHz float64, iv Interval) float64 {
	return baseHz * iv.Ratio()
}
