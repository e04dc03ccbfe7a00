package engine

import (
	"bytes"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testWAVBytes(t *testing.T, frames int) []byte {
	t.Helper()
	buf := &Buffer{SampleRate: 44100, Channels: 2, Data: make([]float32, frames*2)}
	for i := range buf.Data {
		buf.Data[i] = float32(math.Sin(float64(i) * 0.02))
	}
	return EncodeWAV(buf)
}

func TestAssetLoaderLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, testWAVBytes(t, 500), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewAssetLoader()
	res := <-l.Fetch(path)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Buffer.SampleRate != 44100 || res.Buffer.Channels != 2 {
		t.Fatalf("decoded format %d Hz %d ch", res.Buffer.SampleRate, res.Buffer.Channels)
	}
	if res.Buffer.Frames() != 500 {
		t.Fatalf("frames = %d, want 500", res.Buffer.Frames())
	}
	if l.Status(path) != AssetDecoded {
		t.Fatalf("status = %v, want decoded", l.Status(path))
	}
}

func TestAssetLoaderHTTPAndCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(testWAVBytes(t, 100))
	}))
	defer srv.Close()

	l := NewAssetLoader()

	// Concurrent fetches of the same URL share one request.
	chans := make([]<-chan AssetResult, 4)
	for i := range chans {
		chans[i] = l.Fetch(srv.URL + "/clip.wav")
	}
	for i, ch := range chans {
		select {
		case res := <-ch:
			if res.Err != nil {
				t.Fatalf("fetch %d: %v", i, res.Err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("fetch %d timed out", i)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("server hit %d times, want 1", hits.Load())
	}

	// A later fetch is served from cache.
	res := <-l.Fetch(srv.URL + "/clip.wav")
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if hits.Load() != 1 {
		t.Fatalf("cached fetch hit the server (%d hits)", hits.Load())
	}
}

func TestAssetLoaderSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "999999999")
		w.Write(bytes.Repeat([]byte{0}, 1024))
	}))
	defer srv.Close()

	l := NewAssetLoader()
	res := <-l.Fetch(srv.URL)
	if !errors.Is(res.Err, ErrAssetTooLarge) {
		t.Fatalf("err = %v, want ErrAssetTooLarge", res.Err)
	}
	if l.Status(srv.URL) != AssetFailed {
		t.Fatalf("status = %v, want failed", l.Status(srv.URL))
	}
}

func TestAssetLoaderDecodeFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(path, []byte("this is not audio"), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewAssetLoader()
	res := <-l.Fetch(path)
	if !errors.Is(res.Err, ErrAssetDecodeFailed) {
		t.Fatalf("err = %v, want ErrAssetDecodeFailed", res.Err)
	}

	// A failed slot stays failed until invalidated, then retries.
	res = <-l.Fetch(path)
	if res.Err == nil {
		t.Fatal("cached failure not returned")
	}
	if err := os.WriteFile(path, testWAVBytes(t, 10), 0644); err != nil {
		t.Fatal(err)
	}
	l.Invalidate(path)
	res = <-l.Fetch(path)
	if res.Err != nil {
		t.Fatalf("retry after Invalidate: %v", res.Err)
	}
}

func TestAssetLoaderMissingFile(t *testing.T) {
	l := NewAssetLoader()
	res := <-l.Fetch(filepath.Join(t.TempDir(), "nope.wav"))
	if !errors.Is(res.Err, ErrAssetFetchFailed) {
		t.Fatalf("err = %v, want ErrAssetFetchFailed", res.Err)
	}
}

func TestDecodeWAVRoundTrip(t *testing.T) {
	src := &Buffer{SampleRate: 48000, Channels: 1, Data: []float32{0, 0.25, -0.25, 0.99, -0.99}}
	buf, err := DecodeWAV(bytes.NewReader(EncodeWAV(src)))
	if err != nil {
		t.Fatal(err)
	}
	if buf.Channels != 1 || buf.SampleRate != 48000 {
		t.Fatalf("format %d Hz %d ch", buf.SampleRate, buf.Channels)
	}
	// Decoder normalisation differs by one LSB from the encoder's.
	const eps = 2.0 / 32767
	for i, want := range src.Data {
		if math.Abs(float64(buf.Data[i]-want)) > eps {
			t.Fatalf("sample %d: got %v want %v", i, buf.Data[i], want)
		}
	}
}
