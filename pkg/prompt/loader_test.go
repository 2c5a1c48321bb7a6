package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDirOverrides(t *testing.T) {
	dir := t.TempDir()
	override := "clarification: 'Say again? You said: {{.Transcript}}'\n"
	if err := os.WriteFile(filepath.Join(dir, "prompts.yaml"), []byte(override), 0o600); err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary()
	if err := lib.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	p, err := lib.Build(KindClarification, Context{Transcript: "blurb"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p != "Say again? You said: blurb" {
		t.Errorf("override not applied, got %q", p)
	}

	// Kinds not mentioned in the override keep the built-in template.
	p, err = lib.Build(KindExtraction, Context{Transcript: "add Aspirin"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(p, "add Aspirin") {
		t.Error("default extraction template lost after partial override")
	}
}

func TestLoadDirMissingDirIsNotAnError(t *testing.T) {
	lib := NewLibrary()
	if err := lib.LoadDir(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("LoadDir on missing dir: %v", err)
	}
}

func TestLoadDirRejectsUnknownKind(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("greeting: hello\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary()
	if err := lib.LoadDir(dir); err == nil {
		t.Error("expected error for unknown prompt kind")
	}
}

func TestLoadDirRejectsBadTemplate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("extraction: '{{.Broken'\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary()
	if err := lib.LoadDir(dir); err == nil {
		t.Error("expected error for unparsable template")
	}
}
