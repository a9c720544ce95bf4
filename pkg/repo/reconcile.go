package repo

import (
	"sort"

	"github.com/keelvcs/keel/pkg/object"
)

// OpKind classifies what checkout must do to one path.
type OpKind int

const (
	OpKeep OpKind = iota
	OpWrite
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpKeep:
		return "keep"
	case OpWrite:
		return "write"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// PathOp is a single working-tree operation produced by the reconciler.
// Write carries the blob and mode to materialize; Delete and Keep only the
// path.
type PathOp struct {
	Kind     OpKind
	Path     string
	BlobHash object.Hash
	Mode     string
}

// CheckoutPlan is the ordered operation set for one checkout. A non-empty
// Conflicts list vetoes the whole plan: no subset is ever applied.
type CheckoutPlan struct {
	Ops       []PathOp
	Conflicts []string
}

// Reconcile computes the path operations needed to move the working tree and
// index from (oldTree, idx) to newTree. It is a pure function: one ordered
// merge-walk over the three path-sorted inputs, no filesystem access.
//
// Per-path classification, where "locally changed" means the index disagrees
// with the old tree and "upstream changed" means the new tree disagrees with
// the old tree:
//
//   - clean and unchanged upstream            -> Keep
//   - clean, upstream changed content or mode -> Write
//   - clean, gone upstream                    -> Delete
//   - absent everywhere but the new tree      -> Write (new file)
//   - locally added, absent from new tree     -> conflict (fail closed)
//   - locally changed, upstream unchanged     -> Keep (local state wins)
//   - both changed, identical result          -> Keep
//   - both changed, divergent                 -> conflict
//
// Mode-only differences count as changes.
func Reconcile(oldTree []TreeFileEntry, idx *Index, newTree []TreeFileEntry) *CheckoutPlan {
	oldByPath := treeByPath(oldTree)
	newByPath := treeByPath(newTree)

	entries := map[string]*IndexEntry{}
	if idx != nil && idx.Entries != nil {
		entries = idx.Entries
	}

	paths := make(map[string]struct{}, len(oldByPath)+len(entries)+len(newByPath))
	for p := range oldByPath {
		paths[p] = struct{}{}
	}
	for p := range entries {
		paths[p] = struct{}{}
	}
	for p := range newByPath {
		paths[p] = struct{}{}
	}
	ordered := make([]string, 0, len(paths))
	for p := range paths {
		ordered = append(ordered, p)
	}
	sort.Strings(ordered)

	plan := &CheckoutPlan{}
	for _, p := range ordered {
		oldE, inOld := oldByPath[p]
		idxE, inIdx := entries[p]
		newE, inNew := newByPath[p]

		// Locally added, not in target: fail closed rather than guess.
		if inIdx && !inOld && !inNew {
			plan.Conflicts = append(plan.Conflicts, p)
			continue
		}

		localChanged := inOld != inIdx || (inOld && inIdx && !indexMatchesTree(idxE, oldE))
		upstreamChanged := inOld != inNew || (inOld && inNew && !sameTreeEntry(oldE, newE))

		if !localChanged {
			switch {
			case !inNew:
				plan.Ops = append(plan.Ops, PathOp{Kind: OpDelete, Path: p})
			case !inOld || !sameTreeEntry(oldE, newE):
				plan.Ops = append(plan.Ops, PathOp{Kind: OpWrite, Path: p, BlobHash: newE.BlobHash, Mode: newE.Mode})
			default:
				plan.Ops = append(plan.Ops, PathOp{Kind: OpKeep, Path: p})
			}
			continue
		}

		switch {
		case !upstreamChanged:
			// Local modification or deletion of a path upstream left alone.
			plan.Ops = append(plan.Ops, PathOp{Kind: OpKeep, Path: p})
		case !inIdx && !inNew:
			// Deleted on both sides: agreement, nothing to do.
			plan.Ops = append(plan.Ops, PathOp{Kind: OpKeep, Path: p})
		case inIdx && inNew && indexMatchesTree(idxE, newE):
			// Both sides arrived at identical bytes and mode.
			plan.Ops = append(plan.Ops, PathOp{Kind: OpKeep, Path: p})
		default:
			plan.Conflicts = append(plan.Conflicts, p)
		}
	}
	return plan
}

func treeByPath(entries []TreeFileEntry) map[string]TreeFileEntry {
	m := make(map[string]TreeFileEntry, len(entries))
	for _, e := range entries {
		m[e.Path] = e
	}
	return m
}

func sameTreeEntry(a, b TreeFileEntry) bool {
	return a.BlobHash == b.BlobHash && normalizeFileMode(a.Mode) == normalizeFileMode(b.Mode)
}

func indexMatchesTree(e *IndexEntry, t TreeFileEntry) bool {
	return e.BlobHash == t.BlobHash && normalizeFileMode(e.Mode) == normalizeFileMode(t.Mode)
}
