package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("auth.denied", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "permission") {
		t.Fatalf("unexpected denied message: %q", got)
	}
}

func TestRenderWithData(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("exchange.ok", map[string]any{"A": "2", "B": "5"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "Rank 2") || !strings.Contains(got, "Rank 5") {
		t.Fatalf("placeholders not substituted: %q", got)
	}
}

func TestRenderMissingKeyErrors(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("move.ok", map[string]any{"From": "1"}); err == nil {
		t.Fatal("expected error for missing template data")
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	body := "run:\n  ok: \"done.\"\n"
	if err := os.WriteFile(filepath.Join(dir, "10-local.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("run.ok", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "done." {
		t.Fatalf("override not applied: %q", got)
	}
	// defaults not named in the override stay available
	if _, err := c.Render("auth.denied", nil); err != nil {
		t.Fatalf("default lost after override: %v", err)
	}
}
