package repo

import (
	"testing"

	"github.com/keelvcs/keel/pkg/object"
)

func buildIndex(t *testing.T, r *Repo, paths map[string]string) *Index {
	t.Helper()
	idx := &Index{Entries: make(map[string]*IndexEntry, len(paths))}
	for p, content := range paths {
		h, err := r.Store.WriteBlob(&object.Blob{Data: []byte(content)})
		if err != nil {
			t.Fatalf("WriteBlob(%s): %v", p, err)
		}
		idx.Entries[p] = &IndexEntry{Path: p, BlobHash: h, Mode: object.TreeModeFile}
	}
	return idx
}

func TestBuildTree_FlattenRoundtrip(t *testing.T) {
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	paths := map[string]string{
		"main.go":            "package main\n",
		"pkg/util/util.go":   "package util\n",
		"pkg/util/extra.go":  "package util // extra\n",
		"pkg/deep/a/b/c.txt": "deep\n",
	}
	idx := buildIndex(t, r, paths)

	root, err := r.BuildTree(idx)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}

	flat, err := r.FlattenTree(root)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(flat) != len(paths) {
		t.Fatalf("flattened entries = %d, want %d", len(flat), len(paths))
	}
	for _, e := range flat {
		if _, ok := paths[e.Path]; !ok {
			t.Errorf("unexpected path %q", e.Path)
		}
		if e.BlobHash != idx.Entries[e.Path].BlobHash {
			t.Errorf("%s blob = %s, want %s", e.Path, e.BlobHash, idx.Entries[e.Path].BlobHash)
		}
	}
}

func TestBuildTree_DeterministicRootHash(t *testing.T) {
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	paths := map[string]string{"a.go": "a\n", "dir/b.go": "b\n"}
	h1, err := r.BuildTree(buildIndex(t, r, paths))
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	h2, err := r.BuildTree(buildIndex(t, r, paths))
	if err != nil {
		t.Fatalf("BuildTree (second): %v", err)
	}
	if h1 != h2 {
		t.Errorf("root hashes differ: %s vs %s", h1, h2)
	}
}

func TestFlattenTree_FullPathOrder(t *testing.T) {
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	// Per-level name order puts "a" (the dir) before "a-b", but full-path
	// order puts "a-b" before "a/x". The flattened result must use the
	// latter.
	idx := buildIndex(t, r, map[string]string{
		"a/x": "x\n",
		"a-b": "dash\n",
	})
	root, err := r.BuildTree(idx)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}

	flat, err := r.FlattenTree(root)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(flat) != 2 {
		t.Fatalf("entries = %d, want 2", len(flat))
	}
	if flat[0].Path != "a-b" || flat[1].Path != "a/x" {
		t.Errorf("order = [%s %s], want [a-b a/x]", flat[0].Path, flat[1].Path)
	}
}

func TestFlattenTree_PreservesExecutableMode(t *testing.T) {
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	h, err := r.Store.WriteBlob(&object.Blob{Data: []byte("#!/bin/sh\n")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	idx := &Index{Entries: map[string]*IndexEntry{
		"run.sh": {Path: "run.sh", BlobHash: h, Mode: object.TreeModeExecutable},
	}}

	root, err := r.BuildTree(idx)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	flat, err := r.FlattenTree(root)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(flat) != 1 || flat[0].Mode != object.TreeModeExecutable {
		t.Errorf("flat = %+v, want executable run.sh", flat)
	}
}
