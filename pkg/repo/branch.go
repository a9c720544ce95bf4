package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/keelvcs/keel/pkg/object"
)

// BranchScope selects which ref namespaces Branches enumerates.
type BranchScope int

const (
	ScopeLocal BranchScope = iota
	ScopeRemote
	ScopeAll
)

// Branch describes one branch reference. Name is the short name within its
// namespace ("main", "origin/main"); Ref is the full ref path, which stays
// unique even when short names collide across scopes.
type Branch struct {
	Name       string
	Ref        string
	Target     object.Hash
	CheckedOut bool
}

// CreateBranch creates a branch pointing at the given target hash. Without
// force it fails with ErrRefAlreadyExists when the branch exists; with force
// it moves the ref unconditionally.
func (r *Repo) CreateBranch(name string, target object.Hash, force bool) error {
	if err := validateBranchName(name); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	refName := "refs/heads/" + name

	if force {
		if err := r.ForceUpdateRef(refName, target, "branch: reset to "+string(target)); err != nil {
			return fmt.Errorf("create branch %q: %w", name, err)
		}
		return nil
	}

	// A CAS against the empty value doubles as the existence check.
	if err := r.UpdateRefCAS(refName, target, ""); err != nil {
		if errors.Is(err, ErrRefCASMismatch) {
			return fmt.Errorf("create branch %q: %w", name, ErrRefAlreadyExists)
		}
		return fmt.Errorf("create branch %q: %w", name, err)
	}
	return nil
}

// DeleteBranch removes a branch ref and its reflog. It fails with
// ErrBranchCheckedOut if HEAD symbolically resolves to the branch, and with
// ErrUnresolvableReference if the branch does not exist.
func (r *Repo) DeleteBranch(name string) error {
	if err := validateBranchName(name); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}

	current, err := r.CurrentBranch()
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	if current == name {
		return fmt.Errorf("delete branch %q: %w", name, ErrBranchCheckedOut)
	}

	if err := r.DeleteRef("refs/heads/" + name); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	return nil
}

// Branches enumerates branch refs in the given scope. The result order is
// unspecified; callers must not rely on it. Remote-tracking branches keep
// their remote prefix in Name and are never collapsed with same-named local
// branches; Ref disambiguates.
func (r *Repo) Branches(scope BranchScope) ([]Branch, error) {
	current, err := r.CurrentBranch()
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}

	var out []Branch
	if scope == ScopeLocal || scope == ScopeAll {
		refs, err := r.ListRefs("heads")
		if err != nil {
			return nil, fmt.Errorf("list branches: %w", err)
		}
		for name, target := range refs {
			short := strings.TrimPrefix(name, "heads/")
			out = append(out, Branch{
				Name:       short,
				Ref:        "refs/" + name,
				Target:     target,
				CheckedOut: short == current && current != "",
			})
		}
	}
	if scope == ScopeRemote || scope == ScopeAll {
		refs, err := r.ListRefs("remotes")
		if err != nil {
			return nil, fmt.Errorf("list branches: %w", err)
		}
		for name, target := range refs {
			out = append(out, Branch{
				Name:   strings.TrimPrefix(name, "remotes/"),
				Ref:    "refs/" + name,
				Target: target,
			})
		}
	}
	return out, nil
}

// CurrentBranch reads HEAD and returns the branch name if HEAD is a symbolic
// ref (e.g. "ref: refs/heads/main" -> "main"). If HEAD is detached (contains
// a raw hash), it returns "".
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}

	const prefix = "refs/heads/"
	if strings.HasPrefix(head, prefix) {
		return strings.TrimPrefix(head, prefix), nil
	}

	// Detached HEAD or unexpected format.
	return "", nil
}

func validateBranchName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("branch name is required")
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return fmt.Errorf("invalid branch name %q", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("invalid branch name %q", name)
	}
	if strings.ContainsAny(name, " \t\n\r") {
		return fmt.Errorf("invalid branch name %q", name)
	}
	return nil
}
