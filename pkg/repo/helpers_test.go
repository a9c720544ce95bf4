package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/keelvcs/keel/pkg/object"
)

// initRepoWithFile creates a repo in a temp dir, writes one file, and stages
// it. The commit is left to the caller.
func initRepoWithFile(t *testing.T, name string, content []byte) *Repo {
	t.Helper()
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	writeAndAdd(t, r, name, content)
	return r
}

// writeAndAdd writes a file under the repo root and stages it.
func writeAndAdd(t *testing.T, r *Repo, name string, content []byte) {
	t.Helper()
	abs := filepath.Join(r.RootDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if err := r.Add(context.Background(), []string{abs}); err != nil {
		t.Fatalf("Add(%s): %v", name, err)
	}
}

// mustCommit commits the current index and returns the commit hash.
func mustCommit(t *testing.T, r *Repo, message string) object.Hash {
	t.Helper()
	h, err := r.Commit(message, "test-author")
	if err != nil {
		t.Fatalf("Commit(%q): %v", message, err)
	}
	return h
}

// readFile reads a repo-relative file from the working tree.
func readFile(t *testing.T, r *Repo, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(r.RootDir, filepath.FromSlash(name)))
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", name, err)
	}
	return string(data)
}
