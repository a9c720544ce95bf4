package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Checkout moves the working tree, index, and HEAD to the given commitish.
// With a non-empty branch name it additionally recreates that branch at the
// target commit and attaches HEAD to it.
//
// Sequence:
//  1. Acquire the index lock. Contention surfaces as ErrLockContention and
//     is never retried here.
//  2. Resolve the target commit and its tree; read the current HEAD tree
//     (empty for an unborn branch) and the index.
//  3. Reconcile the three trees. Any conflict aborts with ConflictError
//     before a single file is touched.
//  4. Apply the plan: all writes first, then deletes, then rewrite the index
//     to match the target tree. Filesystem application is best-effort, not
//     transactional; a failure surfaces as ApplyError and may leave the tree
//     partially updated.
//  5. Force-move HEAD to the commit in detached form with a reflog entry,
//     and release the lock. This happens even for branch checkouts, so the
//     working tree is never attached to a branch that does not yet point at
//     the intended commit.
//  6. For branch checkouts: delete any existing branch of that name (HEAD is
//     detached, so the checked-out guard passes), recreate it at the target,
//     and point HEAD symbolically at it.
//
// The index lock is released on every exit path.
func (r *Repo) Checkout(ctx context.Context, commitish, branch string) error {
	lock, err := r.LockIndex(ctx)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	defer lock.Release()

	targetHash, err := r.ResolveCommitish(commitish)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	commit, err := r.Store.ReadCommit(targetHash)
	if err != nil {
		return fmt.Errorf("checkout: read commit %s: %w", targetHash, err)
	}

	newTree, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return fmt.Errorf("checkout: flatten target tree: %w", err)
	}
	oldTree, err := r.headTree()
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	idx, err := r.ReadIndex()
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	plan := Reconcile(oldTree, idx, newTree)
	if len(plan.Conflicts) > 0 {
		return fmt.Errorf("checkout: %w", &ConflictError{Paths: plan.Conflicts})
	}

	if err := r.applyPlan(plan); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	if err := r.rebuildIndex(plan, idx); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	if err := r.SetHeadDetached(targetHash, "checkout: moving to "+commitish); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	lock.Release()

	if branch == "" {
		return nil
	}

	// Recreate the branch at the target and attach HEAD to it.
	if _, err := r.ResolveRef("refs/heads/" + branch); err == nil {
		if err := r.DeleteBranch(branch); err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
	} else if !errors.Is(err, ErrUnresolvableReference) {
		return fmt.Errorf("checkout: %w", err)
	}
	if err := r.CreateBranch(branch, targetHash, true); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	if err := r.SetSymbolicHead("refs/heads/"+branch, "checkout: moving to "+branch); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	return nil
}

// headTree returns the flattened tree of the current HEAD commit, or an empty
// slice when HEAD is unborn.
func (r *Repo) headTree() ([]TreeFileEntry, error) {
	headHash, err := r.headHash()
	if err != nil {
		return nil, err
	}
	if headHash == "" {
		return nil, nil
	}
	commit, err := r.Store.ReadCommit(headHash)
	if err != nil {
		return nil, fmt.Errorf("read HEAD commit %s: %w", headHash, err)
	}
	return r.FlattenTree(commit.TreeHash)
}

// applyPlan materializes a checkout plan in the working directory. Writes run
// before deletes so an interrupted apply errs toward leftover files instead
// of missing ones.
func (r *Repo) applyPlan(plan *CheckoutPlan) error {
	for _, op := range plan.Ops {
		if op.Kind != OpWrite {
			continue
		}
		abs := filepath.Join(r.RootDir, filepath.FromSlash(op.Path))

		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return &ApplyError{Path: op.Path, Err: err}
		}
		blob, err := r.Store.ReadBlob(op.BlobHash)
		if err != nil {
			return &ApplyError{Path: op.Path, Err: err}
		}
		if err := os.WriteFile(abs, blob.Data, filePermFromMode(op.Mode)); err != nil {
			return &ApplyError{Path: op.Path, Err: err}
		}
		// WriteFile leaves the permissions of a pre-existing file alone, so
		// mode-only updates need an explicit chmod.
		if err := os.Chmod(abs, filePermFromMode(op.Mode)); err != nil {
			return &ApplyError{Path: op.Path, Err: err}
		}
	}

	for _, op := range plan.Ops {
		if op.Kind != OpDelete {
			continue
		}
		abs := filepath.Join(r.RootDir, filepath.FromSlash(op.Path))
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			return &ApplyError{Path: op.Path, Err: err}
		}
		r.removeEmptyParents(filepath.Dir(abs))
	}
	return nil
}

// rebuildIndex rewrites the index after a successful apply: written paths
// take the target tree's entry, kept paths retain their prior entry, deleted
// paths drop out.
func (r *Repo) rebuildIndex(plan *CheckoutPlan, prior *Index) error {
	idx := &Index{Entries: make(map[string]*IndexEntry, len(plan.Ops))}
	for _, op := range plan.Ops {
		switch op.Kind {
		case OpWrite:
			abs := filepath.Join(r.RootDir, filepath.FromSlash(op.Path))
			info, err := os.Stat(abs)
			if err != nil {
				return &ApplyError{Path: op.Path, Err: err}
			}
			idx.Entries[op.Path] = &IndexEntry{
				Path:     op.Path,
				BlobHash: op.BlobHash,
				Mode:     normalizeFileMode(op.Mode),
				ModTime:  info.ModTime().Unix(),
				Size:     info.Size(),
			}
		case OpKeep:
			if e, ok := prior.Entries[op.Path]; ok {
				idx.Entries[op.Path] = e
			}
		}
	}
	return r.WriteIndex(idx)
}

// removeEmptyParents removes empty directories up to (but not including)
// the repository root.
func (r *Repo) removeEmptyParents(dir string) {
	for {
		// Never remove the repo root itself.
		if dir == r.RootDir || !strings.HasPrefix(dir, r.RootDir) {
			return
		}

		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}

		os.Remove(dir)
		dir = filepath.Dir(dir)
	}
}
