package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/keelvcs/keel/pkg/object"
	"github.com/keelvcs/keel/pkg/repo"
)

// Native implements the engine-backed subset of Backend on top of pkg/repo.
// Transport operations (fetch, push, clone) report ErrNotSupported so the
// facade forwards them to the delegate. Fetch in particular stays delegated
// until a native implementation can match the delegate's force-update
// semantics.
type Native struct {
	workspace string
}

// NewNative creates a native backend rooted at workspace.
func NewNative(workspace string) *Native {
	return &Native{workspace: workspace}
}

func (n *Native) open() (*repo.Repo, error) {
	return repo.Open(n.workspace)
}

func (n *Native) Init(ctx context.Context) error {
	_, err := repo.Init(n.workspace)
	return err
}

func (n *Native) Add(ctx context.Context, paths []string) error {
	r, err := n.open()
	if err != nil {
		return err
	}
	return r.Add(ctx, paths)
}

func (n *Native) Commit(ctx context.Context, message string) error {
	r, err := n.open()
	if err != nil {
		return err
	}
	_, err = r.Commit(message, n.author(r))
	return err
}

func (n *Native) Tag(ctx context.Context, name, message string) error {
	r, err := n.open()
	if err != nil {
		return err
	}
	head, err := r.ResolveCommitish("HEAD")
	if err != nil {
		return err
	}
	if strings.TrimSpace(message) == "" {
		return r.CreateTag(name, head, false)
	}
	_, err = r.CreateAnnotatedTag(name, head, n.author(r), message, false)
	return err
}

func (n *Native) Checkout(ctx context.Context, commitish, branch string) error {
	r, err := n.open()
	if err != nil {
		return err
	}
	return r.Checkout(ctx, commitish, branch)
}

func (n *Native) CreateBranch(ctx context.Context, name string) error {
	r, err := n.open()
	if err != nil {
		return err
	}
	head, err := r.ResolveCommitish("HEAD")
	if err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	return r.CreateBranch(name, head, false)
}

func (n *Native) DeleteBranch(ctx context.Context, name string) error {
	r, err := n.open()
	if err != nil {
		return err
	}
	return r.DeleteBranch(name)
}

func (n *Native) Branches(ctx context.Context, scope repo.BranchScope) ([]repo.Branch, error) {
	r, err := n.open()
	if err != nil {
		return nil, err
	}
	return r.Branches(scope)
}

func (n *Native) Reset(ctx context.Context, hard bool) error {
	r, err := n.open()
	if err != nil {
		return err
	}
	return r.Reset(ctx, hard, nil)
}

func (n *Native) Fetch(ctx context.Context, remote, refspec string) error {
	return ErrNotSupported
}

func (n *Native) Push(ctx context.Context, remote, branch string, force bool) error {
	return ErrNotSupported
}

func (n *Native) Clone(ctx context.Context, remoteURL, dest string) error {
	return ErrNotSupported
}

func (n *Native) RevParse(ctx context.Context, commitish string) (object.Hash, error) {
	r, err := n.open()
	if err != nil {
		return "", err
	}
	return r.ResolveCommitish(commitish)
}

func (n *Native) author(r *repo.Repo) string {
	cfg, err := r.ReadConfig()
	if err != nil || strings.TrimSpace(cfg.User.Name) == "" {
		return "keel"
	}
	return cfg.User.Name
}
