package theory

// Pattern is a fixed-length sequence of steps, true = beat, false = rest.
// Patterns are treated as immutable: edits produce a new slice.
type Pattern []bool

// Beats counts the active steps.
func (p Pattern) Beats() int {
	n := 0
	for _, on := range p {
		if on {
			n++
		}
	}
	return n
}

// Rotate returns the pattern rotated left by n steps.
func (p Pattern) Rotate(n int) Pattern {
	if len(p) == 0 {
		return Pattern{}
	}
	n = ((n % len(p)) + len(p)) % len(p)
	out := make(Pattern, len(p))
	copy(out, p[n:])
	copy(out[len(p)-n:], p[:n])
	return out
}

// Toggle returns a copy with step i flipped.
func (p Pattern) Toggle(i int) Pattern {
	out := make(Pattern, len(p))
	copy(out, p)
	if i >= 0 && i < len(out) {
		out[i] = !out[i]
	}
	return out
}

// Bjorklund distributes k beats over n steps as evenly as the Euclidean
// algorithm allows. k = 0 gives all rests, k = n all beats; degenerate
// input (k > n, n <= 0) gives the all-rest pattern of length max(n, 0).
func Bjorklund(k, n int) Pattern {
	if n <= 0 {
		return Pattern{}
	}
	if k <= 0 || k > n {
		return make(Pattern, n)
	}

	// Bucket form of the algorithm: walk the steps accumulating k/n and
	// emit a beat each time the accumulator rolls over. Equivalent to the
	// pairing formulation up to rotation, which is all the rhythm family
	// promises.
	pattern := make(Pattern, n)
	bucket := 0
	for i := 0; i < n; i++ {
		bucket += k
		if bucket >= n {
			bucket -= n
			pattern[i] = true
		}
	}
	return pattern
}
