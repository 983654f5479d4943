package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	// Create a temporary directory with a golox.toml
	dir := t.TempDir()
	tomlContent := `
[project]
name = "test-app"
entry = "main.lox"

[vm]
stack-size = 4096
frame-depth = 128
trace = true

[cache]
enabled = false
path = "build/cache.db"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "test-app" {
		t.Errorf("project name = %q, want test-app", m.Project.Name)
	}
	if m.Project.Entry != "main.lox" {
		t.Errorf("project entry = %q, want main.lox", m.Project.Entry)
	}
	if m.VM.StackSize != 4096 {
		t.Errorf("stack size = %d, want 4096", m.VM.StackSize)
	}
	if m.VM.FrameDepth != 128 {
		t.Errorf("frame depth = %d, want 128", m.VM.FrameDepth)
	}
	if !m.VM.Trace {
		t.Error("trace = false, want true")
	}
	if m.Cache.Enabled {
		t.Error("cache enabled = true, want false")
	}

	wantEntry := filepath.Join(m.Dir, "main.lox")
	if m.EntryPath() != wantEntry {
		t.Errorf("EntryPath() = %q, want %q", m.EntryPath(), wantEntry)
	}
	wantCache := filepath.Join(m.Dir, "build", "cache.db")
	if m.CachePath() != wantCache {
		t.Errorf("CachePath() = %q, want %q", m.CachePath(), wantCache)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "bare"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !m.Cache.Enabled {
		t.Error("cache should default to enabled")
	}
	if m.VM.Trace {
		t.Error("trace should default to off")
	}
	if m.EntryPath() != "" {
		t.Errorf("EntryPath() = %q, want empty", m.EntryPath())
	}
	wantCache := filepath.Join(m.Dir, ".golox", "cache.db")
	if m.CachePath() != wantCache {
		t.Errorf("CachePath() = %q, want %q", m.CachePath(), wantCache)
	}
}

func TestLoadManifestMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load of empty dir should fail")
	}
}

func TestLoadManifestInvalid(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("not [valid toml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("Load of invalid toml should fail")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	tomlContent := `
[project]
name = "walker"
`
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil, want manifest")
	}
	if m.Project.Name != "walker" {
		t.Errorf("project name = %q, want walker", m.Project.Name)
	}

	absRoot, _ := filepath.Abs(root)
	if m.Dir != absRoot {
		t.Errorf("Dir = %q, want %q", m.Dir, absRoot)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m != nil {
		t.Errorf("FindAndLoad = %v, want nil", m)
	}
}
