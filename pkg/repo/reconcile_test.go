package repo

import (
	"testing"

	"github.com/keelvcs/keel/pkg/object"
)

func hashOf(s string) object.Hash {
	return object.HashBytes([]byte(s))
}

func entry(path, content, mode string) TreeFileEntry {
	return TreeFileEntry{Path: path, BlobHash: hashOf(content), Mode: mode}
}

func idxOf(entries ...TreeFileEntry) *Index {
	idx := &Index{Entries: make(map[string]*IndexEntry, len(entries))}
	for _, e := range entries {
		idx.Entries[e.Path] = &IndexEntry{Path: e.Path, BlobHash: e.BlobHash, Mode: e.Mode}
	}
	return idx
}

func TestReconcile_Classification(t *testing.T) {
	const mode = object.TreeModeFile
	const exec = object.TreeModeExecutable

	tests := []struct {
		name      string
		old       []TreeFileEntry
		idx       *Index
		new       []TreeFileEntry
		wantKind  map[string]OpKind
		conflicts []string
	}{
		{
			name:     "clean unchanged keeps",
			old:      []TreeFileEntry{entry("a.go", "v1", mode)},
			idx:      idxOf(entry("a.go", "v1", mode)),
			new:      []TreeFileEntry{entry("a.go", "v1", mode)},
			wantKind: map[string]OpKind{"a.go": OpKeep},
		},
		{
			name:     "clean upstream content change writes",
			old:      []TreeFileEntry{entry("a.go", "v1", mode)},
			idx:      idxOf(entry("a.go", "v1", mode)),
			new:      []TreeFileEntry{entry("a.go", "v2", mode)},
			wantKind: map[string]OpKind{"a.go": OpWrite},
		},
		{
			name:     "clean mode-only change writes",
			old:      []TreeFileEntry{entry("run.sh", "s", mode)},
			idx:      idxOf(entry("run.sh", "s", mode)),
			new:      []TreeFileEntry{entry("run.sh", "s", exec)},
			wantKind: map[string]OpKind{"run.sh": OpWrite},
		},
		{
			name:     "clean gone upstream deletes",
			old:      []TreeFileEntry{entry("a.go", "v1", mode)},
			idx:      idxOf(entry("a.go", "v1", mode)),
			new:      nil,
			wantKind: map[string]OpKind{"a.go": OpDelete},
		},
		{
			name:     "new upstream file writes",
			old:      nil,
			idx:      idxOf(),
			new:      []TreeFileEntry{entry("b.go", "v1", mode)},
			wantKind: map[string]OpKind{"b.go": OpWrite},
		},
		{
			name:      "locally added absent from target conflicts",
			old:       nil,
			idx:       idxOf(entry("local.go", "mine", mode)),
			new:       nil,
			conflicts: []string{"local.go"},
		},
		{
			name:     "local change upstream untouched keeps",
			old:      []TreeFileEntry{entry("a.go", "v1", mode)},
			idx:      idxOf(entry("a.go", "edited", mode)),
			new:      []TreeFileEntry{entry("a.go", "v1", mode)},
			wantKind: map[string]OpKind{"a.go": OpKeep},
		},
		{
			name:     "local delete upstream untouched keeps",
			old:      []TreeFileEntry{entry("a.go", "v1", mode)},
			idx:      idxOf(),
			new:      []TreeFileEntry{entry("a.go", "v1", mode)},
			wantKind: map[string]OpKind{"a.go": OpKeep},
		},
		{
			name:     "deleted on both sides keeps",
			old:      []TreeFileEntry{entry("a.go", "v1", mode)},
			idx:      idxOf(),
			new:      nil,
			wantKind: map[string]OpKind{"a.go": OpKeep},
		},
		{
			name:     "both changed identically keeps",
			old:      []TreeFileEntry{entry("a.go", "v1", mode)},
			idx:      idxOf(entry("a.go", "v2", mode)),
			new:      []TreeFileEntry{entry("a.go", "v2", mode)},
			wantKind: map[string]OpKind{"a.go": OpKeep},
		},
		{
			name:      "divergent changes conflict",
			old:       []TreeFileEntry{entry("a.go", "v1", mode)},
			idx:       idxOf(entry("a.go", "mine", mode)),
			new:       []TreeFileEntry{entry("a.go", "theirs", mode)},
			conflicts: []string{"a.go"},
		},
		{
			name:      "local edit upstream delete conflicts",
			old:       []TreeFileEntry{entry("a.go", "v1", mode)},
			idx:       idxOf(entry("a.go", "mine", mode)),
			new:       nil,
			conflicts: []string{"a.go"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan := Reconcile(tc.old, tc.idx, tc.new)

			if len(tc.conflicts) > 0 {
				if len(plan.Conflicts) != len(tc.conflicts) {
					t.Fatalf("Conflicts = %v, want %v", plan.Conflicts, tc.conflicts)
				}
				for i, p := range tc.conflicts {
					if plan.Conflicts[i] != p {
						t.Errorf("Conflicts[%d] = %q, want %q", i, plan.Conflicts[i], p)
					}
				}
				return
			}
			if len(plan.Conflicts) != 0 {
				t.Fatalf("unexpected conflicts: %v", plan.Conflicts)
			}

			got := make(map[string]OpKind, len(plan.Ops))
			for _, op := range plan.Ops {
				got[op.Path] = op.Kind
			}
			if len(got) != len(tc.wantKind) {
				t.Fatalf("op paths = %v, want %v", got, tc.wantKind)
			}
			for p, k := range tc.wantKind {
				if got[p] != k {
					t.Errorf("op[%s] = %s, want %s", p, got[p], k)
				}
			}
		})
	}
}

func TestReconcile_OpsAreOrderedByPath(t *testing.T) {
	old := []TreeFileEntry{
		entry("z.go", "v1", object.TreeModeFile),
		entry("a.go", "v1", object.TreeModeFile),
		entry("m/n.go", "v1", object.TreeModeFile),
	}
	idx := idxOf(old...)
	plan := Reconcile(old, idx, old)

	var prev string
	for i, op := range plan.Ops {
		if i > 0 && op.Path < prev {
			t.Fatalf("ops out of order: %q after %q", op.Path, prev)
		}
		prev = op.Path
	}
}

func TestReconcile_WriteCarriesBlobAndMode(t *testing.T) {
	target := entry("run.sh", "script", object.TreeModeExecutable)
	plan := Reconcile(nil, idxOf(), []TreeFileEntry{target})

	if len(plan.Ops) != 1 || plan.Ops[0].Kind != OpWrite {
		t.Fatalf("plan = %+v, want single write", plan.Ops)
	}
	if plan.Ops[0].BlobHash != target.BlobHash || plan.Ops[0].Mode != object.TreeModeExecutable {
		t.Errorf("write op = %+v, want blob %s mode %s", plan.Ops[0], target.BlobHash, object.TreeModeExecutable)
	}
}
