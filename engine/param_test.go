package engine

import (
	"math"
	"testing"
	"time"
)

func TestParamSetImmediate(t *testing.T) {
	p := NewParam(0.5, 0, 1)
	p.Set(0.8)
	if got := p.Value(); got != 0.8 {
		t.Fatalf("Value() = %v, want 0.8", got)
	}
	if got := p.Next(); got != 0.8 {
		t.Fatalf("Next() = %v, want 0.8", got)
	}
}

func TestParamClamp(t *testing.T) {
	p := NewParam(0, -1, 1)
	p.Set(5)
	if got := p.Value(); got != 1 {
		t.Fatalf("Value() = %v, want clamped 1", got)
	}
	p.Set(-5)
	if got := p.Value(); got != -1 {
		t.Fatalf("Value() = %v, want clamped -1", got)
	}
}

func TestParamRampTargetImmediate(t *testing.T) {
	p := NewParam(0, 0, 1)
	p.Ramp(1, 30*time.Millisecond, 48000)
	if got := p.Target(); got != 1 {
		t.Fatalf("Target() = %v, want 1 right after Ramp", got)
	}
	if got := p.Value(); got >= 1 {
		t.Fatalf("Value() = %v, expected still below target", got)
	}
}

func TestParamRampSettlesExactly(t *testing.T) {
	p := NewParam(0, 0, 1)
	const sr = 48000
	p.Ramp(0.7, 10*time.Millisecond, sr)

	// Ten time constants is far past settling.
	for i := 0; i < sr/10; i++ {
		p.Next()
	}
	if got := p.Value(); got != 0.7 {
		t.Fatalf("Value() = %v, want exactly 0.7 after settling", got)
	}
}

func TestParamRampMonotonic(t *testing.T) {
	p := NewParam(0, 0, 1)
	p.Ramp(1, 15*time.Millisecond, 48000)
	prev := 0.0
	for i := 0; i < 2000; i++ {
		v := p.Next()
		if v < prev {
			t.Fatalf("ramp went backwards at sample %d: %v < %v", i, v, prev)
		}
		prev = v
	}
}

func TestParamNextBlockMatchesNext(t *testing.T) {
	a := NewParam(0, 0, 1)
	b := NewParam(0, 0, 1)
	a.Ramp(1, 20*time.Millisecond, 48000)
	b.Ramp(1, 20*time.Millisecond, 48000)

	for i := 0; i < 128; i++ {
		a.Next()
	}
	got := b.NextBlock(128)
	if math.Abs(got-a.Value()) > 1e-9 {
		t.Fatalf("NextBlock(128) = %v, per-sample = %v", got, a.Value())
	}
}

func TestParamZeroTauJumps(t *testing.T) {
	p := NewParam(0, 0, 1)
	p.Ramp(1, 0, 48000)
	if got := p.Value(); got != 1 {
		t.Fatalf("Value() = %v, want immediate jump for zero tau", got)
	}
}
