package theme

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefault(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if len(p.Colors) == 0 {
		t.Fatal("default palette has no colors")
	}
	// Endpoints must clamp.
	if p.Lookup(-1) != p.Colors[0] {
		t.Error("Lookup below range should return first color")
	}
	if p.Lookup(2) != p.Colors[len(p.Colors)-1] {
		t.Error("Lookup above range should return last color")
	}
}

func TestLoadGPLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gpl")
	data := "GIMP Palette\nName: test\nColumns: 2\n# comment\n0 0 0\n255 255 255\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "test" {
		t.Errorf("Name = %q, want test", p.Name)
	}
	if len(p.Colors) != 2 {
		t.Fatalf("got %d colors, want 2", len(p.Colors))
	}
	mid := p.Lookup(0.5)
	for i := 0; i < 3; i++ {
		if mid[i] < 126 || mid[i] > 129 {
			t.Errorf("midpoint channel %d = %d, want near 127", i, mid[i])
		}
	}
}

func TestLoadGPLEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.gpl")
	if err := os.WriteFile(path, []byte("GIMP Palette\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGPL(path); err == nil {
		t.Error("expected error for palette with no colors")
	}
}
