package tempstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func mustStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestNew_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "tmp")
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if fi, err := os.Stat(s.Dir()); err != nil || !fi.IsDir() {
		t.Fatalf("store dir not created: %v", err)
	}
}

func TestNewJob_InvalidIDs(t *testing.T) {
	s := mustStore(t)
	for _, id := range []string{"", "a/b", `a\b`, "..", "."} {
		if _, err := s.NewJob(id); !errors.Is(err, ErrInvalidJobID) {
			t.Errorf("NewJob(%q) err = %v, want ErrInvalidJobID", id, err)
		}
	}
}

func TestWorkspace_Paths(t *testing.T) {
	s := mustStore(t)
	ws, err := s.NewJob("job42")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	tests := []struct {
		got, want string
	}{
		{ws.ClipPath(3, "mp3"), filepath.Join(s.Dir(), "job42_part3.mp3")},
		{ws.ClipPath(4, ".wav"), filepath.Join(s.Dir(), "job42_part4.wav")},
		{ws.ClipPath(5, ""), filepath.Join(s.Dir(), "job42_part5.mp3")},
		{ws.ManifestPath(), filepath.Join(s.Dir(), "job42_concat.txt")},
		{ws.OutputPath("mp3"), filepath.Join(s.Dir(), "job42_output.mp3")},
		{ws.OutputPath(".wav"), filepath.Join(s.Dir(), "job42_output.wav")},
		{ws.OutputPath(""), filepath.Join(s.Dir(), "job42_output.mp3")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("path = %q, want %q", tt.got, tt.want)
		}
		if !filepath.IsAbs(tt.got) {
			t.Errorf("path %q is not absolute", tt.got)
		}
	}
}

func TestCleanup_RemovesTempFilesKeepsOutput(t *testing.T) {
	s := mustStore(t)
	ws, _ := s.NewJob("jobA")

	for i := 0; i < 3; i++ {
		touch(t, ws.ClipPath(i, "mp3"))
	}
	touch(t, ws.ManifestPath())
	out := ws.OutputPath("mp3")
	touch(t, out)
	// Clip 3 was allocated but never written; it must not count as a failure.
	_ = ws.ClipPath(3, "mp3")

	if failed := ws.Cleanup(); failed != 0 {
		t.Errorf("Cleanup failed = %d, want 0", failed)
	}

	entries, _ := os.ReadDir(s.Dir())
	for _, e := range entries {
		if e.Name() != filepath.Base(out) {
			t.Errorf("leftover file %s", e.Name())
		}
	}
	if ws.Cleanup() != 0 {
		t.Error("second Cleanup should be a no-op")
	}
}

func TestCleanup_LogsFailuresAndContinues(t *testing.T) {
	s := mustStore(t)
	ws, _ := s.NewJob("jobB")

	// A non-empty directory at a clip path cannot be removed with os.Remove.
	blocked := ws.ClipPath(0, "mp3")
	if err := os.MkdirAll(filepath.Join(blocked, "inner"), 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, ws.ClipPath(1, "mp3"))

	if failed := ws.Cleanup(); failed != 1 {
		t.Errorf("Cleanup failed = %d, want 1", failed)
	}
	if _, err := os.Stat(ws.ClipPath(1, "mp3")); !errors.Is(err, os.ErrNotExist) {
		t.Error("clip 1 should have been removed despite the earlier failure")
	}
}

func TestConcurrentJobsAreIsolated(t *testing.T) {
	s := mustStore(t)
	a, _ := s.NewJob("jobA")
	b, _ := s.NewJob("jobB")

	var wg sync.WaitGroup
	for _, ws := range []*Workspace{a, b} {
		wg.Add(1)
		go func(ws *Workspace) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				_ = os.WriteFile(ws.ClipPath(i, "mp3"), []byte(ws.JobID()), 0o644)
			}
		}(ws)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		data, err := os.ReadFile(a.ClipPath(i, "mp3"))
		if err != nil || string(data) != "jobA" {
			t.Errorf("jobA clip %d = %q, %v", i, data, err)
		}
	}

	a.Cleanup()
	entries, _ := os.ReadDir(s.Dir())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "jobA_") {
			t.Errorf("jobA file %s survived cleanup", e.Name())
		}
	}
	if len(entries) != 5 {
		t.Errorf("jobB should still own 5 files, dir has %d", len(entries))
	}
}
