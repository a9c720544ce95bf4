package backend

import (
	"context"
	"errors"

	"github.com/keelvcs/keel/pkg/object"
	"github.com/keelvcs/keel/pkg/repo"
)

// Facade routes each operation to the native engine first and falls through
// to the delegate when the engine reports ErrNotSupported. Any other native
// error is final and is never retried against the delegate. Delegate failures
// come back wrapped in DelegationError.
type Facade struct {
	native   Backend
	delegate Backend
}

// NewFacade builds a facade over a native engine and a delegate. Either may
// be nil; a nil backend behaves as if every operation were unsupported.
func NewFacade(native, delegate Backend) *Facade {
	return &Facade{native: native, delegate: delegate}
}

// route runs op against the native backend, falling through to the delegate
// on ErrNotSupported.
func (f *Facade) route(op string, fn func(Backend) error) error {
	if f.native != nil {
		err := fn(f.native)
		if !errors.Is(err, ErrNotSupported) {
			return err
		}
	}
	if f.delegate == nil {
		return ErrNotSupported
	}
	if err := fn(f.delegate); err != nil {
		return &DelegationError{Op: op, Err: err}
	}
	return nil
}

func (f *Facade) Init(ctx context.Context) error {
	return f.route("init", func(b Backend) error { return b.Init(ctx) })
}

func (f *Facade) Add(ctx context.Context, paths []string) error {
	return f.route("add", func(b Backend) error { return b.Add(ctx, paths) })
}

func (f *Facade) Commit(ctx context.Context, message string) error {
	return f.route("commit", func(b Backend) error { return b.Commit(ctx, message) })
}

func (f *Facade) Tag(ctx context.Context, name, message string) error {
	return f.route("tag", func(b Backend) error { return b.Tag(ctx, name, message) })
}

func (f *Facade) Checkout(ctx context.Context, commitish, branch string) error {
	return f.route("checkout", func(b Backend) error { return b.Checkout(ctx, commitish, branch) })
}

func (f *Facade) CreateBranch(ctx context.Context, name string) error {
	return f.route("branch", func(b Backend) error { return b.CreateBranch(ctx, name) })
}

func (f *Facade) DeleteBranch(ctx context.Context, name string) error {
	return f.route("branch -d", func(b Backend) error { return b.DeleteBranch(ctx, name) })
}

func (f *Facade) Branches(ctx context.Context, scope repo.BranchScope) ([]repo.Branch, error) {
	var out []repo.Branch
	err := f.route("branch list", func(b Backend) error {
		branches, err := b.Branches(ctx, scope)
		if err != nil {
			return err
		}
		out = branches
		return nil
	})
	return out, err
}

func (f *Facade) Reset(ctx context.Context, hard bool) error {
	return f.route("reset", func(b Backend) error { return b.Reset(ctx, hard) })
}

func (f *Facade) Fetch(ctx context.Context, remote, refspec string) error {
	return f.route("fetch", func(b Backend) error { return b.Fetch(ctx, remote, refspec) })
}

func (f *Facade) Push(ctx context.Context, remote, branch string, force bool) error {
	return f.route("push", func(b Backend) error { return b.Push(ctx, remote, branch, force) })
}

func (f *Facade) Clone(ctx context.Context, remoteURL, dest string) error {
	return f.route("clone", func(b Backend) error { return b.Clone(ctx, remoteURL, dest) })
}

func (f *Facade) RevParse(ctx context.Context, commitish string) (object.Hash, error) {
	var out object.Hash
	err := f.route("rev-parse", func(b Backend) error {
		h, err := b.RevParse(ctx, commitish)
		if err != nil {
			return err
		}
		out = h
		return nil
	})
	return out, err
}
