package engine

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	riff "github.com/youpy/go-riff"
	wav "github.com/youpy/go-wav"

	"tonelab/debug"
)

// MaxAssetBytes is the upload size limit; anything larger shortcircuits
// to failed without fetching the body.
const MaxAssetBytes = 50 << 20 // 50 MiB

// AssetStatus tracks a sample asset's lifecycle.
type AssetStatus int

const (
	AssetIdle AssetStatus = iota
	AssetLoading
	AssetDecoded
	AssetFailed
)

func (s AssetStatus) String() string {
	switch s {
	case AssetIdle:
		return "idle"
	case AssetLoading:
		return "loading"
	case AssetDecoded:
		return "decoded"
	case AssetFailed:
		return "failed"
	}
	return "unknown"
}

// AssetResult is the settled outcome of a fetch.
type AssetResult struct {
	Buffer *Buffer
	Err    error
}

// assetEntry is one cache slot: either settled or pending with waiters
// sharing the outcome.
type assetEntry struct {
	status  AssetStatus
	result  AssetResult
	waiters []chan AssetResult
}

// AssetLoader fetches and decodes sample assets. Decoded buffers are
// cached by URL for the lifetime of the session; simultaneous requests
// for the same URL share one pending fetch.
type AssetLoader struct {
	mu      sync.Mutex
	entries map[string]*assetEntry
	client  *http.Client
}

// NewAssetLoader creates an empty loader.
func NewAssetLoader() *AssetLoader {
	return &AssetLoader{
		entries: make(map[string]*assetEntry),
		client:  http.DefaultClient,
	}
}

// Status returns the state of a URL slot without fetching.
func (l *AssetLoader) Status(url string) AssetStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[url]; ok {
		return e.status
	}
	return AssetIdle
}

// Fetch resolves a URL (http(s) or a local path) to a decoded buffer.
// The returned channel yields exactly one result.
func (l *AssetLoader) Fetch(url string) <-chan AssetResult {
	ch := make(chan AssetResult, 1)

	l.mu.Lock()
	if e, ok := l.entries[url]; ok {
		switch e.status {
		case AssetDecoded, AssetFailed:
			ch <- e.result
			l.mu.Unlock()
			return ch
		default:
			e.waiters = append(e.waiters, ch)
			l.mu.Unlock()
			return ch
		}
	}
	e := &assetEntry{status: AssetLoading, waiters: []chan AssetResult{ch}}
	l.entries[url] = e
	l.mu.Unlock()

	go l.load(url, e)
	return ch
}

// Invalidate drops a failed slot so the user can retry with a new file.
func (l *AssetLoader) Invalidate(url string) {
	l.mu.Lock()
	if e, ok := l.entries[url]; ok && e.status != AssetLoading {
		delete(l.entries, url)
	}
	l.mu.Unlock()
}

func (l *AssetLoader) load(url string, e *assetEntry) {
	buf, err := l.fetchAndDecode(url)
	res := AssetResult{Buffer: buf, Err: err}

	l.mu.Lock()
	e.result = res
	if err != nil {
		e.status = AssetFailed
	} else {
		e.status = AssetDecoded
	}
	waiters := e.waiters
	e.waiters = nil
	l.mu.Unlock()

	debug.Log("assets", "%s -> %s", url, e.status)
	for _, ch := range waiters {
		ch <- res
	}
}

func (l *AssetLoader) fetchAndDecode(url string) (*Buffer, error) {
	data, err := l.fetchBytes(url)
	if err != nil {
		return nil, err
	}
	buf, err := DecodeWAV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetDecodeFailed, err)
	}
	return buf, nil
}

func (l *AssetLoader) fetchBytes(url string) ([]byte, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		resp, err := l.client.Get(url)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAssetFetchFailed, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d", ErrAssetFetchFailed, resp.StatusCode)
		}
		if resp.ContentLength > MaxAssetBytes {
			return nil, fmt.Errorf("%w: %d bytes", ErrAssetTooLarge, resp.ContentLength)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, MaxAssetBytes+1))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAssetFetchFailed, err)
		}
		if len(data) > MaxAssetBytes {
			return nil, fmt.Errorf("%w: body over %d bytes", ErrAssetTooLarge, MaxAssetBytes)
		}
		return data, nil
	}

	info, err := os.Stat(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetFetchFailed, err)
	}
	if info.Size() > MaxAssetBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrAssetTooLarge, info.Size())
	}
	data, err := os.ReadFile(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetFetchFailed, err)
	}
	return data, nil
}

// DecodeWAV decodes a RIFF/WAVE stream into an interleaved buffer.
func DecodeWAV(r riff.RIFFReader) (*Buffer, error) {
	reader := wav.NewReader(r)
	format, err := reader.Format()
	if err != nil {
		return nil, err
	}

	buf := &Buffer{
		SampleRate: int(format.SampleRate),
		Channels:   int(format.NumChannels),
	}
	for {
		samples, err := reader.ReadSamples(4096)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, s := range samples {
			for ch := 0; ch < buf.Channels; ch++ {
				buf.Data = append(buf.Data, float32(reader.FloatValue(s, uint(ch))))
			}
		}
	}
	if len(buf.Data) == 0 {
		return nil, fmt.Errorf("no samples")
	}
	return buf, nil
}
