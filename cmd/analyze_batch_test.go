package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAnalyzeBatch_SaveGlob(t *testing.T) {
	home := isolate(t)

	// Two CSV files with the same basename in different directories
	d1 := filepath.Join(home, "d1")
	d2 := filepath.Join(home, "d2")
	for _, d := range []string{d1, d2} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
		if err := os.WriteFile(filepath.Join(d, "metrics.csv"), []byte("col1,col2\nA,1\nB,2\nC,3\n"), 0o644); err != nil {
			t.Fatalf("write csv: %v", err)
		}
	}

	out := runCmd(t, "analyze-batch", filepath.Join(home, "d*", "metrics.csv"), "--save", "-j", "2")
	if !strings.Contains(out, "[1/2] Processing metrics.csv") || !strings.Contains(out, "[2/2] Processing metrics.csv") {
		t.Fatalf("missing progress:\n%s", out)
	}
	if n := strings.Count(out, "✓ Dataset added"); n != 2 {
		t.Fatalf("expected 2 datasets added, got %d:\n%s", n, out)
	}
	list := runCmd(t, "list", "--datasets")
	if n := strings.Count(list, "metrics"); n != 2 {
		t.Fatalf("expected 2 stored datasets:\n%s", list)
	}
}

func TestAnalyzeBatch_QuietPrintsNothing(t *testing.T) {
	home := isolate(t)
	p := filepath.Join(home, "a.csv")
	if err := os.WriteFile(p, []byte("x,y\n1,2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if out := runCmd(t, "analyze-batch", p, "--quiet"); strings.TrimSpace(out) != "" {
		t.Fatalf("expected no output, got:\n%s", out)
	}
	if _, err := execCmd("analyze-batch", filepath.Join(home, "missing*.csv")); err == nil {
		t.Fatalf("expected no-match error")
	}
}
