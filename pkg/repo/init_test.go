package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/keelvcs/keel/pkg/object"
)

func TestInit_CreatesLayout(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	for _, sub := range []string{
		"objects",
		filepath.Join("refs", "heads"),
		filepath.Join("refs", "tags"),
		filepath.Join("logs", "refs", "heads"),
	} {
		if _, err := os.Stat(filepath.Join(r.KeelDir, sub)); err != nil {
			t.Errorf(".keel/%s missing: %v", sub, err)
		}
	}

	head, err := r.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != "refs/heads/main" {
		t.Errorf("HEAD = %q, want refs/heads/main", head)
	}

	// Re-init is refused.
	if _, err := Init(dir); err == nil {
		t.Fatalf("second Init succeeded")
	}
}

func TestOpen_SearchesUpward(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}

	nested := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	r, err := Open(nested)
	if err != nil {
		t.Fatalf("Open from nested dir: %v", err)
	}
	if r.RootDir != dir {
		t.Errorf("RootDir = %q, want %q", r.RootDir, dir)
	}
}

func TestOpen_NotARepository(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatalf("Open of plain dir succeeded")
	}
}

func TestResolveCommitish_RawHashAndFailures(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1\n"))
	head := mustCommit(t, r, "first")

	got, err := r.ResolveCommitish(string(head))
	if err != nil {
		t.Fatalf("ResolveCommitish(raw hash): %v", err)
	}
	if got != head {
		t.Errorf("resolved = %s, want %s", got, head)
	}

	byBranch, err := r.ResolveCommitish("main")
	if err != nil {
		t.Fatalf("ResolveCommitish(main): %v", err)
	}
	if byBranch != head {
		t.Errorf("main resolved to %s, want %s", byBranch, head)
	}

	for _, bad := range []string{"", "nope", "refs/heads/nope", "0123"} {
		if _, err := r.ResolveCommitish(bad); !errors.Is(err, ErrUnresolvableReference) {
			t.Errorf("ResolveCommitish(%q) = %v, want ErrUnresolvableReference", bad, err)
		}
	}

	// A blob hash names a real object but not a commit.
	blobHash, err := r.Store.WriteBlob(&object.Blob{Data: []byte("not a commit")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if _, err := r.ResolveCommitish(string(blobHash)); !errors.Is(err, ErrUnresolvableReference) {
		t.Errorf("ResolveCommitish(blob hash) = %v, want ErrUnresolvableReference", err)
	}
}
