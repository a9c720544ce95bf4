package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Reset restores index entries to their HEAD versions under the index lock.
//
// Behavior:
//   - If a path exists in HEAD, its index entry is reset to HEAD's blob/mode.
//   - If a path does not exist in HEAD, its index entry is removed.
//   - If no paths are provided, the entire index is reset to HEAD.
//
// A mixed reset (hard=false) leaves the working tree alone. A hard reset
// additionally rewrites the working tree to HEAD's content: every HEAD file
// is materialized and every tracked file missing from HEAD is removed. Hard
// resets ignore the paths argument and always cover the whole tree.
func (r *Repo) Reset(ctx context.Context, hard bool, paths []string) error {
	lock, err := r.LockIndex(ctx)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	defer lock.Release()

	idx, err := r.ReadIndex()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	headEntries, err := r.headTree()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	headByPath := treeByPath(headEntries)

	if hard {
		if err := r.resetHard(headEntries, idx); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		return nil
	}

	targets, err := r.resolveResetTargets(paths, idx, headByPath)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	for _, p := range targets {
		if headEntry, ok := headByPath[p]; ok {
			// Zero the stat fields so a later content check cannot trust
			// stale metadata when the worktree differs from HEAD.
			idx.Entries[p] = &IndexEntry{
				Path:     p,
				BlobHash: headEntry.BlobHash,
				Mode:     normalizeFileMode(headEntry.Mode),
				ModTime:  0,
				Size:     -1,
			}
			continue
		}
		delete(idx.Entries, p)
	}

	if err := r.WriteIndex(idx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// resetHard forces the working tree and index back to HEAD, overwriting local
// changes. Writes happen before removals, like checkout apply.
func (r *Repo) resetHard(headEntries []TreeFileEntry, idx *Index) error {
	headByPath := treeByPath(headEntries)

	newIdx := &Index{Entries: make(map[string]*IndexEntry, len(headEntries))}
	for _, e := range headEntries {
		abs := filepath.Join(r.RootDir, filepath.FromSlash(e.Path))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return &ApplyError{Path: e.Path, Err: err}
		}
		blob, err := r.Store.ReadBlob(e.BlobHash)
		if err != nil {
			return &ApplyError{Path: e.Path, Err: err}
		}
		if err := os.WriteFile(abs, blob.Data, filePermFromMode(e.Mode)); err != nil {
			return &ApplyError{Path: e.Path, Err: err}
		}
		if err := os.Chmod(abs, filePermFromMode(e.Mode)); err != nil {
			return &ApplyError{Path: e.Path, Err: err}
		}

		info, err := os.Stat(abs)
		if err != nil {
			return &ApplyError{Path: e.Path, Err: err}
		}
		newIdx.Entries[e.Path] = &IndexEntry{
			Path:     e.Path,
			BlobHash: e.BlobHash,
			Mode:     normalizeFileMode(e.Mode),
			ModTime:  info.ModTime().Unix(),
			Size:     info.Size(),
		}
	}

	// Tracked files absent from HEAD go away.
	for p := range idx.Entries {
		if _, ok := headByPath[p]; ok {
			continue
		}
		abs := filepath.Join(r.RootDir, filepath.FromSlash(p))
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			return &ApplyError{Path: p, Err: err}
		}
		r.removeEmptyParents(filepath.Dir(abs))
	}

	return r.WriteIndex(newIdx)
}

func (r *Repo) resolveResetTargets(paths []string, idx *Index, head map[string]TreeFileEntry) ([]string, error) {
	all := make(map[string]struct{}, len(idx.Entries)+len(head))
	for p := range idx.Entries {
		all[p] = struct{}{}
	}
	for p := range head {
		all[p] = struct{}{}
	}

	if len(paths) == 0 {
		return sortedPathSet(all), nil
	}

	targets := make(map[string]struct{})
	for _, raw := range paths {
		rel, err := r.repoRelPath(raw)
		if err != nil {
			return nil, err
		}
		rel = filepath.ToSlash(filepath.Clean(strings.TrimSpace(rel)))
		if rel == "" || rel == "." {
			for p := range all {
				targets[p] = struct{}{}
			}
			continue
		}

		matched := false
		if _, ok := all[rel]; ok {
			targets[rel] = struct{}{}
			matched = true
		}

		prefix := rel + "/"
		for p := range all {
			if strings.HasPrefix(p, prefix) {
				targets[p] = struct{}{}
				matched = true
			}
		}

		if !matched {
			return nil, fmt.Errorf("path %q did not match staged or HEAD entries", raw)
		}
	}

	return sortedPathSet(targets), nil
}

func sortedPathSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
