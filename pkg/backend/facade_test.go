package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/keelvcs/keel/pkg/object"
	"github.com/keelvcs/keel/pkg/repo"
)

// recordingBackend implements Backend with configurable per-op behavior,
// recording which operations reached it.
type recordingBackend struct {
	calls []string
	errs  map[string]error
	hash  object.Hash
}

func (b *recordingBackend) op(name string) error {
	b.calls = append(b.calls, name)
	if b.errs != nil {
		return b.errs[name]
	}
	return nil
}

func (b *recordingBackend) Init(ctx context.Context) error  { return b.op("init") }
func (b *recordingBackend) Add(ctx context.Context, paths []string) error {
	return b.op("add")
}
func (b *recordingBackend) Commit(ctx context.Context, message string) error {
	return b.op("commit")
}
func (b *recordingBackend) Tag(ctx context.Context, name, message string) error {
	return b.op("tag")
}
func (b *recordingBackend) Checkout(ctx context.Context, commitish, branch string) error {
	return b.op("checkout")
}
func (b *recordingBackend) CreateBranch(ctx context.Context, name string) error {
	return b.op("create-branch")
}
func (b *recordingBackend) DeleteBranch(ctx context.Context, name string) error {
	return b.op("delete-branch")
}
func (b *recordingBackend) Branches(ctx context.Context, scope repo.BranchScope) ([]repo.Branch, error) {
	if err := b.op("branches"); err != nil {
		return nil, err
	}
	return []repo.Branch{{Name: "main"}}, nil
}
func (b *recordingBackend) Reset(ctx context.Context, hard bool) error { return b.op("reset") }
func (b *recordingBackend) Fetch(ctx context.Context, remote, refspec string) error {
	return b.op("fetch")
}
func (b *recordingBackend) Push(ctx context.Context, remote, branch string, force bool) error {
	return b.op("push")
}
func (b *recordingBackend) Clone(ctx context.Context, remoteURL, dest string) error {
	return b.op("clone")
}
func (b *recordingBackend) RevParse(ctx context.Context, commitish string) (object.Hash, error) {
	if err := b.op("rev-parse"); err != nil {
		return "", err
	}
	return b.hash, nil
}

func TestFacade_NativeHandlesSupportedOps(t *testing.T) {
	native := &recordingBackend{}
	delegate := &recordingBackend{}
	f := NewFacade(native, delegate)

	if err := f.Checkout(context.Background(), "main", ""); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if len(native.calls) != 1 || native.calls[0] != "checkout" {
		t.Errorf("native calls = %v", native.calls)
	}
	if len(delegate.calls) != 0 {
		t.Errorf("delegate reached for a native-supported op: %v", delegate.calls)
	}
}

func TestFacade_NotSupportedRoutesToDelegate(t *testing.T) {
	native := &recordingBackend{errs: map[string]error{"fetch": ErrNotSupported}}
	delegate := &recordingBackend{}
	f := NewFacade(native, delegate)

	if err := f.Fetch(context.Background(), "origin", ""); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(delegate.calls) != 1 || delegate.calls[0] != "fetch" {
		t.Errorf("delegate calls = %v, want [fetch]", delegate.calls)
	}
}

func TestFacade_NativeErrorIsFinal(t *testing.T) {
	boom := errors.New("native checkout failed")
	native := &recordingBackend{errs: map[string]error{"checkout": boom}}
	delegate := &recordingBackend{}
	f := NewFacade(native, delegate)

	err := f.Checkout(context.Background(), "main", "")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want native error", err)
	}
	if len(delegate.calls) != 0 {
		t.Errorf("delegate reached after a final native error: %v", delegate.calls)
	}
	var de *DelegationError
	if errors.As(err, &de) {
		t.Errorf("native error wrapped as DelegationError")
	}
}

func TestFacade_DelegateFailureWrapped(t *testing.T) {
	boom := fmt.Errorf("remote hung up")
	native := &recordingBackend{errs: map[string]error{"push": ErrNotSupported}}
	delegate := &recordingBackend{errs: map[string]error{"push": boom}}
	f := NewFacade(native, delegate)

	err := f.Push(context.Background(), "origin", "main", false)
	var de *DelegationError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DelegationError", err)
	}
	if de.Op != "push" {
		t.Errorf("Op = %q, want push", de.Op)
	}
	if !errors.Is(err, boom) {
		t.Errorf("delegate cause not preserved: %v", err)
	}
}

func TestFacade_NilDelegate(t *testing.T) {
	native := &recordingBackend{errs: map[string]error{"clone": ErrNotSupported}}
	f := NewFacade(native, nil)

	if err := f.Clone(context.Background(), "ssh://example/repo", "repo"); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("Clone = %v, want ErrNotSupported", err)
	}
}

func TestFacade_ValueReturningOps(t *testing.T) {
	want := object.HashBytes([]byte("target"))
	native := &recordingBackend{hash: want}
	f := NewFacade(native, nil)

	got, err := f.RevParse(context.Background(), "main")
	if err != nil {
		t.Fatalf("RevParse: %v", err)
	}
	if got != want {
		t.Errorf("RevParse = %s, want %s", got, want)
	}

	branches, err := f.Branches(context.Background(), repo.ScopeLocal)
	if err != nil {
		t.Fatalf("Branches: %v", err)
	}
	if len(branches) != 1 || branches[0].Name != "main" {
		t.Errorf("Branches = %+v", branches)
	}
}

func TestNative_TransportOpsReportNotSupported(t *testing.T) {
	n := NewNative(t.TempDir())
	ctx := context.Background()

	if err := n.Fetch(ctx, "origin", ""); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Fetch = %v, want ErrNotSupported", err)
	}
	if err := n.Push(ctx, "origin", "main", false); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Push = %v, want ErrNotSupported", err)
	}
	if err := n.Clone(ctx, "url", "dest"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Clone = %v, want ErrNotSupported", err)
	}
}
