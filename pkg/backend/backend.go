// Package backend routes repository operations between the native keel
// engine and a delegated external git process.
//
// Callers see one capability-union interface: every repository operation is a
// method on Backend, regardless of which backend actually executes it. The
// Facade tries the native engine first and falls through to the delegate for
// anything the engine does not implement.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/keelvcs/keel/pkg/object"
	"github.com/keelvcs/keel/pkg/repo"
)

// ErrNotSupported marks a capability a backend does not implement. The
// Facade treats it as "route to the delegate"; any other error is final.
var ErrNotSupported = errors.New("operation not supported by this backend")

// Backend is the capability-union interface: one method per repository
// operation. Implementations return ErrNotSupported for capabilities they do
// not cover.
type Backend interface {
	// Init creates a repository in the workspace.
	Init(ctx context.Context) error

	// Add stages the given paths.
	Add(ctx context.Context, paths []string) error

	// Commit records the staged state with the given message.
	Commit(ctx context.Context, message string) error

	// Tag creates a tag at HEAD; annotated when message is non-empty.
	Tag(ctx context.Context, name, message string) error

	// Checkout moves the working tree to commitish; with a branch name it
	// also recreates that branch there and attaches HEAD to it.
	Checkout(ctx context.Context, commitish, branch string) error

	// CreateBranch creates a branch at the current HEAD.
	CreateBranch(ctx context.Context, name string) error

	// DeleteBranch removes a branch that is not checked out.
	DeleteBranch(ctx context.Context, name string) error

	// Branches enumerates branches in the given scope.
	Branches(ctx context.Context, scope repo.BranchScope) ([]repo.Branch, error)

	// Reset restores the index (and with hard=true the working tree) to HEAD.
	Reset(ctx context.Context, hard bool) error

	// Fetch updates remote-tracking state from a remote.
	Fetch(ctx context.Context, remote, refspec string) error

	// Push publishes a branch to a remote.
	Push(ctx context.Context, remote, branch string, force bool) error

	// Clone materializes a remote repository at dest.
	Clone(ctx context.Context, remoteURL, dest string) error

	// RevParse resolves a commitish to an object hash.
	RevParse(ctx context.Context, commitish string) (object.Hash, error)
}

// DelegationError wraps a failure returned by the delegated backend. The
// delegate's message is preserved verbatim.
type DelegationError struct {
	Op  string
	Err error
}

func (e *DelegationError) Error() string {
	return fmt.Sprintf("delegated %s: %v", e.Op, e.Err)
}

func (e *DelegationError) Unwrap() error {
	return e.Err
}
