package engine

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	cases := []struct {
		frames, channels, rate int
	}{
		{100, 2, 44100},
		{1, 1, 48000},
		{4800, 2, 48000},
		{0, 2, 22050},
	}
	for _, tc := range cases {
		buf := &Buffer{
			SampleRate: tc.rate,
			Channels:   tc.channels,
			Data:       make([]float32, tc.frames*tc.channels),
		}
		out := EncodeWAV(buf)

		wantLen := 44 + tc.frames*tc.channels*2
		if len(out) != wantLen {
			t.Errorf("%d frames x %d ch: file length = %d, want %d", tc.frames, tc.channels, len(out), wantLen)
		}
		if !bytes.Equal(out[0:4], []byte("RIFF")) || !bytes.Equal(out[8:12], []byte("WAVE")) {
			t.Error("missing RIFF/WAVE magic")
		}
		if got := binary.LittleEndian.Uint32(out[4:8]); got != uint32(wantLen-8) {
			t.Errorf("RIFF chunk size = %d, want %d", got, wantLen-8)
		}
		if got := binary.LittleEndian.Uint16(out[20:22]); got != 1 {
			t.Errorf("format code = %d, want 1 (PCM)", got)
		}
		if got := binary.LittleEndian.Uint16(out[22:24]); got != uint16(tc.channels) {
			t.Errorf("channel count = %d, want %d", got, tc.channels)
		}
		if got := binary.LittleEndian.Uint32(out[24:28]); got != uint32(tc.rate) {
			t.Errorf("sample rate = %d, want %d", got, tc.rate)
		}
		if got := binary.LittleEndian.Uint16(out[34:36]); got != 16 {
			t.Errorf("bit depth = %d, want 16", got)
		}
		if got := binary.LittleEndian.Uint32(out[40:44]); got != uint32(tc.frames*tc.channels*2) {
			t.Errorf("data chunk size = %d, want %d", got, tc.frames*tc.channels*2)
		}
	}
}

func TestWAVRoundTrip(t *testing.T) {
	src := &Buffer{SampleRate: 44100, Channels: 2, Data: make([]float32, 2000)}
	for i := range src.Data {
		src.Data[i] = float32(math.Sin(float64(i) * 0.01))
	}
	// Out-of-range samples clamp rather than wrap.
	src.Data[0] = 1.5
	src.Data[1] = -1.5

	dec, err := decodePCM16(EncodeWAV(src))
	if err != nil {
		t.Fatal(err)
	}
	if dec.SampleRate != src.SampleRate || dec.Channels != src.Channels {
		t.Fatalf("format mismatch: %d Hz %d ch", dec.SampleRate, dec.Channels)
	}
	if len(dec.Data) != len(src.Data) {
		t.Fatalf("length = %d, want %d", len(dec.Data), len(src.Data))
	}

	const eps = 1.0 / 32767
	for i, want := range src.Data {
		if want > 1 {
			want = 1
		} else if want < -1 {
			want = -1
		}
		if diff := math.Abs(float64(dec.Data[i] - want)); diff > eps {
			t.Fatalf("sample %d: got %v want %v (diff %v)", i, dec.Data[i], want, diff)
		}
	}
}

func TestDecodePCM16Rejects(t *testing.T) {
	if _, err := decodePCM16([]byte("short")); err == nil {
		t.Error("truncated header accepted")
	}
	bad := EncodeWAV(&Buffer{SampleRate: 44100, Channels: 1, Data: make([]float32, 4)})
	copy(bad[0:4], "RIFX")
	if _, err := decodePCM16(bad); err == nil {
		t.Error("wrong magic accepted")
	}
}
