package transport

import (
	"sync"
	"testing"
	"time"
)

func TestSubdivisionBeats(t *testing.T) {
	cases := []struct {
		sub  Subdivision
		want float64
	}{
		{Quarter, 1},
		{Eighth, 0.5},
		{Sixteenth, 0.25},
	}
	for _, tc := range cases {
		if got := tc.sub.Beats(); got != tc.want {
			t.Errorf("%s.Beats() = %v, want %v", tc.sub, got, tc.want)
		}
	}
}

func TestBPMClamp(t *testing.T) {
	tr := New()
	defer tr.Close()

	tr.SetBPM(10)
	if got := tr.BPM(); got != MinBPM {
		t.Errorf("BPM() = %v, want clamped %v", got, MinBPM)
	}
	tr.SetBPM(1000)
	if got := tr.BPM(); got != MaxBPM {
		t.Errorf("BPM() = %v, want clamped %v", got, MaxBPM)
	}
}

func TestPhaseMachine(t *testing.T) {
	tr := New()
	defer tr.Close()

	if tr.Phase() != Stopped {
		t.Fatalf("initial phase = %v", tr.Phase())
	}

	tr.Start()
	if tr.Phase() != Running {
		t.Fatalf("after Start: %v", tr.Phase())
	}
	tr.Pause()
	if tr.Phase() != Paused {
		t.Fatalf("after Pause: %v", tr.Phase())
	}
	tr.Start()
	if tr.Phase() != Running {
		t.Fatalf("after resume: %v", tr.Phase())
	}
	tr.Stop()
	if tr.Phase() != Stopped {
		t.Fatalf("after Stop: %v", tr.Phase())
	}
	if b := tr.Beat(); b != 0 {
		t.Fatalf("beat after Stop = %v, want 0", b)
	}
}

func TestStopEmitsFinalStep(t *testing.T) {
	tr := New()
	defer tr.Close()

	seq := tr.AddSequence(4, Quarter, nil)
	tr.Start()
	tr.Pause()
	tr.Start()
	tr.Stop()

	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-tr.Draw():
			if ev.SequenceID == seq.ID() && ev.Step == -1 {
				return
			}
		case <-deadline:
			t.Fatal("no stepIndex = -1 on the draw feed after Stop")
		}
	}
}

func TestPauseFreezesBeat(t *testing.T) {
	tr := New()
	defer tr.Close()
	tr.SetBPM(300)

	tr.Start()
	time.Sleep(150 * time.Millisecond)
	tr.Pause()

	b1 := tr.Beat()
	if b1 <= 0 {
		t.Fatalf("beat did not advance before pause: %v", b1)
	}
	time.Sleep(100 * time.Millisecond)
	b2 := tr.Beat()
	if b2 != b1 {
		t.Fatalf("beat moved while paused: %v -> %v", b1, b2)
	}

	tr.Start()
	time.Sleep(50 * time.Millisecond)
	if b3 := tr.Beat(); b3 <= b2 {
		t.Fatalf("beat did not resume from frozen value: %v after %v", b3, b2)
	}
}

func TestSequenceStepsCycle(t *testing.T) {
	tr := New()
	defer tr.Close()
	tr.SetBPM(MaxBPM) // 200 ms per beat

	var mu sync.Mutex
	var steps []int
	seq := tr.AddSequence(3, Sixteenth, func(at time.Time, step int, velocity float64) {
		mu.Lock()
		steps = append(steps, step)
		mu.Unlock()
		if velocity != 1 {
			t.Errorf("velocity = %v without humanize, want 1", velocity)
		}
	})
	_ = seq

	tr.Start()
	time.Sleep(400 * time.Millisecond)
	tr.Stop()

	mu.Lock()
	got := append([]int(nil), steps...)
	mu.Unlock()
	if len(got) < 4 {
		t.Fatalf("only %d steps dispatched: %v", len(got), got)
	}
	for i, s := range got {
		if s != i%3 {
			t.Fatalf("steps = %v, want cycling 0,1,2,0,...", got)
		}
	}
}

func TestConcurrentSequencesIndependent(t *testing.T) {
	tr := New()
	defer tr.Close()
	tr.SetBPM(MaxBPM)

	var mu sync.Mutex
	var ca, cb int
	tr.AddSequence(3, Sixteenth, func(at time.Time, step int, velocity float64) {
		mu.Lock()
		ca++
		mu.Unlock()
	})
	tr.AddSequence(4, Sixteenth, func(at time.Time, step int, velocity float64) {
		mu.Lock()
		cb++
		mu.Unlock()
	})

	tr.Start()
	time.Sleep(300 * time.Millisecond)
	tr.Stop()

	mu.Lock()
	gotA, gotB := ca, cb
	mu.Unlock()
	if gotA == 0 || gotB == 0 {
		t.Fatalf("sequences did not both run: %d, %d", gotA, gotB)
	}
	// Same subdivision, so the two cycle at the same rate regardless of
	// their differing lengths.
	if diff := gotA - gotB; diff < -1 || diff > 1 {
		t.Fatalf("step counts diverged: %d vs %d", gotA, gotB)
	}
}

func TestRemoveSequenceStopsDispatch(t *testing.T) {
	tr := New()
	defer tr.Close()
	tr.SetBPM(MaxBPM)

	var mu sync.Mutex
	fired := 0
	seq := tr.AddSequence(4, Sixteenth, func(at time.Time, step int, velocity float64) {
		mu.Lock()
		fired++
		mu.Unlock()
	})
	tr.Start()
	time.Sleep(120 * time.Millisecond)
	tr.RemoveSequence(seq)
	mu.Lock()
	at := fired
	mu.Unlock()
	time.Sleep(150 * time.Millisecond)
	tr.Stop()

	mu.Lock()
	after := fired
	mu.Unlock()
	if after > at+1 {
		t.Fatalf("sequence kept firing after removal: %d -> %d", at, after)
	}
}

func TestHumanizeDeterminism(t *testing.T) {
	a := NewHumanize(20, 0.5, 42)
	b := NewHumanize(20, 0.5, 42)
	for i := 0; i < 64; i++ {
		ta, va := a.next()
		tb, vb := b.next()
		if ta != tb || va != vb {
			t.Fatalf("draw %d diverged: (%v, %v) vs (%v, %v)", i, ta, va, tb, vb)
		}
	}
}

func TestHumanizeBounds(t *testing.T) {
	h := NewHumanize(10, 1, 7)
	for i := 0; i < 1000; i++ {
		off, vel := h.next()
		if off < -10*time.Millisecond || off > 10*time.Millisecond {
			t.Fatalf("timing offset %v outside +/-10ms", off)
		}
		if vel < 0.1 || vel > 1 {
			t.Fatalf("velocity %v outside [0.1, 1]", vel)
		}
	}
}

func TestHumanizeResetOnStop(t *testing.T) {
	tr := New()
	defer tr.Close()

	seq := tr.AddSequence(4, Quarter, nil)
	h := NewHumanize(5, 0.3, 99)
	tr.SetHumanize(seq, h)

	o1, v1 := h.next()
	tr.Start()
	tr.Stop() // arms sequences, rewinding the stream
	o2, v2 := h.next()
	if o1 != o2 || v1 != v2 {
		t.Fatalf("stream not rewound after stop: (%v,%v) vs (%v,%v)", o1, v1, o2, v2)
	}
}
