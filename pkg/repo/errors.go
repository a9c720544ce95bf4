package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/keelvcs/keel/pkg/object"
)

// Sentinel errors for expected repository conditions. Callers match them with
// errors.Is; the wrapped messages carry the path/ref/hash context.
var (
	// ErrLockContention means another operation holds the index lock. The
	// caller may retry later; the repository never retries internally.
	ErrLockContention = errors.New("index lock held by another operation")

	// ErrUnresolvableReference means a commitish or ref name did not resolve
	// to a known object.
	ErrUnresolvableReference = errors.New("unresolvable reference")

	// ErrCheckoutConflict means the reconciler found divergent local and
	// target changes. See ConflictError for the path list.
	ErrCheckoutConflict = errors.New("checkout conflict")

	// ErrCheckoutApply means a filesystem write or delete failed mid-apply.
	// The working tree may be partially updated. See ApplyError.
	ErrCheckoutApply = errors.New("checkout apply failed")

	// ErrRefAlreadyExists means a non-force branch or tag create hit an
	// existing ref.
	ErrRefAlreadyExists = errors.New("reference already exists")

	// ErrBranchCheckedOut means a branch delete targeted the branch HEAD
	// currently resolves to.
	ErrBranchCheckedOut = errors.New("branch is checked out")

	// ErrRefCASMismatch means a compare-and-swap ref update found a current
	// value other than the expected one.
	ErrRefCASMismatch = errors.New("ref compare-and-swap mismatch")

	ErrRefUpdatedButReflogAppendFailed = errors.New("ref updated but reflog append failed")
)

// ConflictError lists the paths modified both locally and in the checkout
// target relative to the old tree. The checkout aborts as a whole; no subset
// is applied.
type ConflictError struct {
	Paths []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting paths: %s", strings.Join(e.Paths, ", "))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrCheckoutConflict
}

// ApplyError reports a filesystem failure while applying a checkout plan.
// Writes are applied before deletes, so a partial apply leaves extra files
// behind rather than missing ones.
type ApplyError struct {
	Path string
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %q: %v", e.Path, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

func (e *ApplyError) Is(target error) bool {
	return target == ErrCheckoutApply
}

// RefUpdateReflogError indicates the ref file update succeeded, but appending
// the corresponding reflog entry failed.
type RefUpdateReflogError struct {
	Ref     string
	OldHash object.Hash
	NewHash object.Hash
	Err     error
}

func (e *RefUpdateReflogError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf(
		"update ref %q: %s (old=%s new=%s): %v",
		e.Ref,
		ErrRefUpdatedButReflogAppendFailed,
		e.OldHash,
		e.NewHash,
		e.Err,
	)
}

func (e *RefUpdateReflogError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *RefUpdateReflogError) Is(target error) bool {
	return target == ErrRefUpdatedButReflogAppendFailed
}
