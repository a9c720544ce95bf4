package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/keelvcs/keel/pkg/object"
)

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second
)

// UpdateRef writes a hash to the named ref file under .keel/. Parent
// directories are created as needed.
func (r *Repo) UpdateRef(name string, h object.Hash) error {
	return r.updateRef(name, h, nil, "update")
}

// UpdateRefCAS writes a hash to the named ref file under .keel/ using
// lockfile + rename atomic semantics. If expectedOld is provided, the
// update only succeeds when the current ref hash matches it.
func (r *Repo) UpdateRefCAS(name string, h object.Hash, expectedOld ...object.Hash) error {
	if len(expectedOld) > 1 {
		return fmt.Errorf("update ref %q: expected at most one old hash", name)
	}
	if len(expectedOld) == 1 {
		want := expectedOld[0]
		return r.updateRef(name, h, &want, "update")
	}
	return r.updateRef(name, h, nil, "update")
}

// ForceUpdateRef moves a ref to h unconditionally, recording message in the
// reflog. This is the force path the checkout orchestrator uses.
func (r *Repo) ForceUpdateRef(name string, h object.Hash, message string) error {
	return r.updateRef(name, h, nil, message)
}

// updateRef performs the durable replace: the new value is written to a
// lockfile and renamed over the ref, never overwritten in place, so a crash
// leaves either the old or the new value.
//
// Reflog append happens after the ref rename; if reflog append fails, the ref
// update remains committed and a RefUpdateReflogError is returned.
func (r *Repo) updateRef(name string, h object.Hash, expectedOld *object.Hash, message string) error {
	refPath := filepath.Join(r.KeelDir, filepath.FromSlash(name))

	dir := filepath.Dir(refPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	oldHash, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w", name, err)
	}
	if expectedOld != nil && oldHash != *expectedOld {
		return fmt.Errorf(
			"update ref %q: %w (expected %s, found %s)",
			name,
			ErrRefCASMismatch,
			*expectedOld,
			oldHash,
		)
	}

	if _, err := lockFile.WriteString(string(h) + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	cleanupLock = false

	if err := r.appendReflog(name, oldHash, h, message); err != nil {
		return &RefUpdateReflogError{
			Ref:     name,
			OldHash: oldHash,
			NewHash: h,
			Err:     err,
		}
	}

	return nil
}

// SetHeadDetached points HEAD directly at a commit hash (detached form),
// force-updating, and appends a HEAD reflog entry with the given message.
func (r *Repo) SetHeadDetached(h object.Hash, message string) error {
	old, err := r.headHash()
	if err != nil {
		return fmt.Errorf("detach HEAD: %w", err)
	}
	if err := r.writeHeadFile(string(h) + "\n"); err != nil {
		return fmt.Errorf("detach HEAD: %w", err)
	}
	if err := r.appendReflog("HEAD", old, h, message); err != nil {
		return &RefUpdateReflogError{Ref: "HEAD", OldHash: old, NewHash: h, Err: err}
	}
	return nil
}

// SetSymbolicHead points HEAD at a ref path (e.g. "refs/heads/main") and
// appends a HEAD reflog entry. The target ref may be unborn.
func (r *Repo) SetSymbolicHead(refName string, message string) error {
	if !strings.HasPrefix(refName, "refs/") {
		return fmt.Errorf("symbolic HEAD: %q is not a full ref path", refName)
	}
	old, err := r.headHash()
	if err != nil {
		return fmt.Errorf("symbolic HEAD: %w", err)
	}
	if err := r.writeHeadFile("ref: " + refName + "\n"); err != nil {
		return fmt.Errorf("symbolic HEAD: %w", err)
	}
	now, _ := r.ResolveRef(refName)
	if err := r.appendReflog("HEAD", old, now, message); err != nil {
		return &RefUpdateReflogError{Ref: "HEAD", OldHash: old, NewHash: now, Err: err}
	}
	return nil
}

// headHash resolves HEAD to a hash, tolerating an unborn branch ("" result).
func (r *Repo) headHash() (object.Hash, error) {
	h, err := r.ResolveRef("HEAD")
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, ErrUnresolvableReference) {
			return "", nil
		}
		return "", err
	}
	return h, nil
}

// writeHeadFile replaces .keel/HEAD via lockfile + rename.
func (r *Repo) writeHeadFile(content string) error {
	headPath := filepath.Join(r.KeelDir, "HEAD")
	lockPath := headPath + ".lock"

	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("lock HEAD: %w", err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	if _, err := lockFile.WriteString(content); err != nil {
		return fmt.Errorf("write HEAD: %w", err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("sync HEAD: %w", err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("close HEAD: %w", err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, headPath); err != nil {
		return fmt.Errorf("rename HEAD: %w", err)
	}
	cleanupLock = false
	return nil
}

// DeleteRef removes a ref file and its reflog. Missing reflogs are ignored;
// a missing ref file is an error.
func (r *Repo) DeleteRef(name string) error {
	refPath := filepath.Join(r.KeelDir, filepath.FromSlash(name))
	if err := os.Remove(refPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete ref %q: %w", name, ErrUnresolvableReference)
		}
		return fmt.Errorf("delete ref %q: %w", name, err)
	}
	logPath := filepath.Join(r.KeelDir, "logs", filepath.FromSlash(name))
	if err := os.Remove(logPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete ref %q: remove reflog: %w", name, err)
	}
	return nil
}

// ListRefs lists references under .keel/refs.
// Names are returned relative to refs root, e.g. "heads/main", "tags/v1".
func (r *Repo) ListRefs(prefix string) (map[string]object.Hash, error) {
	root := filepath.Join(r.KeelDir, "refs")
	dir := root
	if strings.TrimSpace(prefix) != "" {
		dir = filepath.Join(root, filepath.FromSlash(prefix))
	}

	refs := make(map[string]object.Hash)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		// Skip in-flight lockfiles.
		if strings.HasSuffix(d.Name(), ".lock") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		refs[name] = object.Hash(strings.TrimSpace(string(data)))
		return nil
	})
	if os.IsNotExist(err) {
		return refs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	return refs, nil
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

func readRefHash(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}
