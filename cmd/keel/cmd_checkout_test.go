package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keelvcs/keel/pkg/repo"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%q): %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("Chdir(%q): %v", prev, err)
		}
	})
}

func TestCheckoutCmd_RollbackFlow(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	r, err := repo.Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	write := func(content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	write("v1\n")
	add := newAddCmd()
	add.SetArgs([]string{"a.txt"})
	if err := add.Execute(); err != nil {
		t.Fatalf("add: %v", err)
	}

	commit := newCommitCmd()
	commit.SetArgs([]string{"-m", "first"})
	var commitOut bytes.Buffer
	commit.SetOut(&commitOut)
	if err := commit.Execute(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !strings.Contains(commitOut.String(), "[main ") {
		t.Errorf("commit output = %q, want branch prefix", commitOut.String())
	}

	first, err := r.ResolveCommitish("HEAD")
	if err != nil {
		t.Fatalf("ResolveCommitish: %v", err)
	}

	write("v2\n")
	add = newAddCmd()
	add.SetArgs([]string{"a.txt"})
	if err := add.Execute(); err != nil {
		t.Fatalf("add v2: %v", err)
	}
	commit = newCommitCmd()
	commit.SetArgs([]string{"-m", "second"})
	commit.SetOut(&commitOut)
	if err := commit.Execute(); err != nil {
		t.Fatalf("commit v2: %v", err)
	}

	checkout := newCheckoutCmd()
	checkout.SetArgs([]string{string(first), "-b", "rollback"})
	var checkoutOut bytes.Buffer
	checkout.SetOut(&checkoutOut)
	if err := checkout.Execute(); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !strings.Contains(checkoutOut.String(), "switched to branch 'rollback'") {
		t.Errorf("checkout output = %q", checkoutOut.String())
	}

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "v1\n" {
		t.Errorf("a.txt = %q, want v1", data)
	}

	branch, err := r.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "rollback" {
		t.Errorf("CurrentBranch = %q, want rollback", branch)
	}
}

func TestBranchCmd_ListMarksCurrent(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	r, err := repo.Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("v1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	add := newAddCmd()
	add.SetArgs([]string{"a.txt"})
	if err := add.Execute(); err != nil {
		t.Fatalf("add: %v", err)
	}
	commit := newCommitCmd()
	commit.SetArgs([]string{"-m", "first"})
	commit.SetOut(&bytes.Buffer{})
	if err := commit.Execute(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	head, err := r.ResolveCommitish("HEAD")
	if err != nil {
		t.Fatalf("ResolveCommitish: %v", err)
	}
	if err := r.CreateBranch("feature", head, false); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	branch := newBranchCmd()
	branch.SetArgs(nil)
	var out bytes.Buffer
	branch.SetOut(&out)
	if err := branch.Execute(); err != nil {
		t.Fatalf("branch: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("branch output = %q, want 2 lines", out.String())
	}
	sawCurrent := false
	for _, line := range lines {
		if strings.HasPrefix(line, "* ") {
			sawCurrent = true
			if !strings.Contains(line, "main") {
				t.Errorf("current marker on %q, want main", line)
			}
		}
	}
	if !sawCurrent {
		t.Errorf("no current-branch marker in %q", out.String())
	}
}
