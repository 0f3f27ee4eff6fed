package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fpang/synthetic-patients/internal/batch"
)

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{65 * time.Second, "1:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.d); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	run := batch.Run{
		Pipeline: "instructions",
		Processed: []batch.Record{
			{CaseID: 1, Status: batch.StatusOK},
			{CaseID: 2, Status: batch.StatusError},
			{CaseID: 3, Status: batch.StatusOK},
		},
		Bundles: []batch.BundleRef{{Count: 3}},
	}
	want := "instructions: 3 cases (error=1 ok=2), 1 bundles in 0:42"
	if got := Summarize(run, 42*time.Second); got != want {
		t.Errorf("Summarize = %q, want %q", got, want)
	}
}

func TestResolveOutDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "out", "nested")

	got, err := ResolveOutDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != dir {
		t.Errorf("got %q, want %q", got, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}

	file := filepath.Join(root, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ResolveOutDir(file); err == nil {
		t.Error("expected error for a regular file")
	}
	if _, err := ResolveOutDir(""); err == nil {
		t.Error("expected error for empty path")
	}
}
