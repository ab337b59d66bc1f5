package preprocessor

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFileResolver(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "root.glsl"), "")
	writeFile(t, filepath.Join(dir, "near.glsl"), "near")
	writeFile(t, filepath.Join(dir, "inc", "lib.glsl"), "lib")

	r := NewFileResolver(0, filepath.Join(dir, "inc"))
	r.Register(0, filepath.Join(dir, "root.glsl"))

	// Quoted includes resolve relative to the including file first.
	id, data, err := r.Resolve(0, false, "near.glsl")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "near" {
		t.Errorf("data = %q, want %q", data, "near")
	}
	if id == 0 {
		t.Error("resolved id collides with the top level")
	}

	// System includes search only the configured directories.
	libID, data, err := r.Resolve(0, true, "lib.glsl")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "lib" {
		t.Errorf("data = %q, want %q", data, "lib")
	}

	// The same path keeps its id so #pragma once can recognize it.
	again, _, err := r.Resolve(id, true, "lib.glsl")
	if err != nil {
		t.Fatal(err)
	}
	if again != libID {
		t.Errorf("second resolve gave id %d, want %d", again, libID)
	}
	if got := r.PathOf(libID); filepath.Base(got) != "lib.glsl" {
		t.Errorf("PathOf(%d) = %q", libID, got)
	}

	if _, _, err := r.Resolve(0, false, "missing.glsl"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

// A full run over the host filesystem: quoted include relative to the
// including file, nested include relative to the included file.
func TestFileResolverEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.frag"), enableInclude+"#include \"util/a.glsl\"\nmain\n")
	writeFile(t, filepath.Join(dir, "util", "a.glsl"), "#include \"b.glsl\"\na\n")
	writeFile(t, filepath.Join(dir, "util", "b.glsl"), "b\n")

	src, err := os.ReadFile(filepath.Join(dir, "main.frag"))
	if err != nil {
		t.Fatal(err)
	}
	r := NewFileResolver(0)
	r.Register(0, filepath.Join(dir, "main.frag"))

	got, diags := drain(t, string(src), Options{Resolver: r})
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if want := "b.\n.a.\n.main.\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
