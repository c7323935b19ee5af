package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveDirectory(t *testing.T) {
	root := t.TempDir()
	pp, err := Resolve(root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if pp.Root != root {
		t.Fatalf("expected root %s, got %s", root, pp.Root)
	}
	if want := filepath.Join(root, DefaultProjectFile); pp.ProjectFile != want {
		t.Fatalf("expected project file %s, got %s", want, pp.ProjectFile)
	}
	if want := filepath.Join(root, ".emwy", "state.json"); pp.StateFile != want {
		t.Fatalf("expected state file %s, got %s", want, pp.StateFile)
	}
}

func TestResolveDocument(t *testing.T) {
	root := t.TempDir()
	doc := filepath.Join(root, "talk.yaml")
	if err := os.WriteFile(doc, []byte("emwy: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	pp, err := Resolve(doc)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if pp.Root != root || pp.ProjectFile != doc {
		t.Fatalf("unexpected paths: %+v", pp)
	}
	if got, want := pp.ExportFile(".mlt"), filepath.Join(root, "talk.mlt"); got != want {
		t.Fatalf("expected export %s, got %s", want, got)
	}
}

func TestResolveMissingDocumentByExtension(t *testing.T) {
	root := t.TempDir()
	pp, err := Resolve(filepath.Join(root, "new.yml"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if pp.Root != root {
		t.Fatalf("expected root %s, got %s", root, pp.Root)
	}
}

func TestResolveOutput(t *testing.T) {
	root := t.TempDir()
	pp := newProjectPaths(root, DefaultProjectFile)

	if got := pp.ResolveOutput("", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got, want := pp.ResolveOutput("out/edit.mlt", ""), filepath.Join(root, "out/edit.mlt"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	abs := filepath.Join(t.TempDir(), "edit.mlt")
	if got := pp.ResolveOutput(abs, ""); got != abs {
		t.Fatalf("expected %s, got %s", abs, got)
	}
}

func TestEnsureMetaDirs(t *testing.T) {
	pp := newProjectPaths(t.TempDir(), DefaultProjectFile)
	if err := pp.EnsureMetaDirs(); err != nil {
		t.Fatalf("EnsureMetaDirs: %v", err)
	}
	for _, dir := range []string{pp.MetaDir, pp.LogsDir} {
		ok, err := DirExists(dir)
		if err != nil || !ok {
			t.Fatalf("expected %s to exist (err=%v)", dir, err)
		}
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, err := FileExists(file); err != nil || !ok {
		t.Fatalf("FileExists(%s) = %v, %v", file, ok, err)
	}
	if ok, err := FileExists(dir); err != nil || ok {
		t.Fatalf("FileExists(dir) = %v, %v", ok, err)
	}
	if ok, err := FileExists(filepath.Join(dir, "missing")); err != nil || ok {
		t.Fatalf("FileExists(missing) = %v, %v", ok, err)
	}
}
