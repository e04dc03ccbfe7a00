package engine

import (
	"math"
	"testing"
)

func TestSoftClipContinuousAtKnee(t *testing.T) {
	// The curve must meet the rails without a step where limiting
	// starts, otherwise peaks crossing the knee click.
	inside := softClip(0.9999)
	outside := softClip(1.0001)
	if math.Abs(float64(outside-inside)) > 1e-3 {
		t.Fatalf("step at knee: clip(0.9999) = %v, clip(1.0001) = %v", inside, outside)
	}
	if got := softClip(1); got != 1 {
		t.Fatalf("clip(1) = %v, want 1", got)
	}
	if got := softClip(-1); got != -1 {
		t.Fatalf("clip(-1) = %v, want -1", got)
	}
}

func TestSoftClipBounded(t *testing.T) {
	for _, x := range []float32{-100, -2, -1.5, -0.3, 0, 0.3, 1.5, 2, 100} {
		y := softClip(x)
		if y > 1 || y < -1 {
			t.Errorf("clip(%v) = %v, outside [-1, 1]", x, y)
		}
	}
	if softClip(0) != 0 {
		t.Error("clip(0) should be 0")
	}
	// Monotonic over the working range.
	prev := softClip(-1)
	for x := float32(-1); x <= 1; x += 0.01 {
		y := softClip(x)
		if y < prev {
			t.Fatalf("clip not monotonic at %v", x)
		}
		prev = y
	}
}
