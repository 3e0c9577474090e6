package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkerDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt")
	writeFile(t, root, "notes/b.md")
	writeFile(t, root, "image.png")

	files, err := NewWalker(nil, nil).Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	// Sorted order.
	if filepath.Base(files[0].Path) != "a.txt" || filepath.Base(files[1].Path) != "b.md" {
		t.Errorf("unexpected order: %v %v", files[0].Path, files[1].Path)
	}
}

func TestWalkerExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.txt")
	writeFile(t, root, "drafts/skip.txt")

	files, err := NewWalker([]string{"**/*.txt"}, []string{"drafts/**"}).Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || filepath.Base(files[0].Path) != "keep.txt" {
		t.Errorf("unexpected files: %v", files)
	}
}
