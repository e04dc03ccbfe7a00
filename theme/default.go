package theme

// DefaultPalette is the builtin color ramp used when no .gpl file is
// configured. Dark blue through teal to bright amber, ordered so the
// role positions in theme.go land on sensible colors.
func DefaultPalette() *Palette {
	return &Palette{
		Name: "tonelab",
		Colors: []RGB{
			{13, 17, 38},    // deep navy (bg)
			{24, 32, 62},    // dark slate (surface)
			{58, 72, 110},   // muted blue
			{120, 150, 190}, // readable blue-grey
			{86, 200, 210},  // teal accent
			{120, 230, 200}, // mint (cursor)
			{180, 240, 170}, // pale green (active)
			{240, 190, 90},  // amber (warning)
			{250, 225, 130}, // bright yellow (success)
		},
	}
}

// Load resolves a palette: an empty path means the builtin default,
// otherwise the .gpl file at path.
func Load(path string) (*Palette, error) {
	if path == "" {
		return DefaultPalette(), nil
	}
	return LoadGPL(path)
}
