package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/keelvcs/keel/pkg/object"
	"github.com/keelvcs/keel/pkg/repo"
)

const gitCommandTimeout = 5 * time.Minute

// GitExec is the delegated backend: every operation shells out to an external
// git binary working against a git checkout coexisting with the keel
// workspace. The engine makes no assumptions about its internal locking or
// state.
type GitExec struct {
	workspace string
	exe       string
	stdout    io.Writer
	stderr    io.Writer
}

// NewGitExec creates a delegated backend for workspace. An empty exe means
// "git" from PATH. Output streams may be nil to discard.
func NewGitExec(workspace, exe string, stdout, stderr io.Writer) *GitExec {
	if strings.TrimSpace(exe) == "" {
		exe = "git"
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &GitExec{workspace: workspace, exe: exe, stdout: stdout, stderr: stderr}
}

func (g *GitExec) Init(ctx context.Context) error {
	return g.runStreaming(ctx, g.workspace, "init")
}

// git runs a command against the delegated repository, requiring that the
// .git directory already exists.
func (g *GitExec) git(ctx context.Context, args ...string) error {
	if err := ensureGitRepository(g.workspace); err != nil {
		return err
	}
	return g.runStreaming(ctx, g.workspace, args...)
}

func (g *GitExec) gitCapture(ctx context.Context, args ...string) ([]byte, error) {
	if err := ensureGitRepository(g.workspace); err != nil {
		return nil, err
	}
	return g.runCapture(ctx, g.workspace, args...)
}

func (g *GitExec) Add(ctx context.Context, paths []string) error {
	return g.git(ctx, append([]string{"add", "--"}, paths...)...)
}

func (g *GitExec) Commit(ctx context.Context, message string) error {
	return g.git(ctx, "commit", "-m", message)
}

func (g *GitExec) Tag(ctx context.Context, name, message string) error {
	if strings.TrimSpace(message) == "" {
		return g.git(ctx, "tag", name)
	}
	return g.git(ctx, "tag", "-a", name, "-m", message)
}

func (g *GitExec) Checkout(ctx context.Context, commitish, branch string) error {
	if branch == "" {
		return g.git(ctx, "checkout", "--detach", commitish)
	}
	return g.git(ctx, "checkout", "-B", branch, commitish)
}

func (g *GitExec) CreateBranch(ctx context.Context, name string) error {
	return g.git(ctx, "branch", name)
}

func (g *GitExec) DeleteBranch(ctx context.Context, name string) error {
	return g.git(ctx, "branch", "-d", name)
}

func (g *GitExec) Branches(ctx context.Context, scope repo.BranchScope) ([]repo.Branch, error) {
	args := []string{"for-each-ref", "--format=%(refname) %(objectname) %(HEAD)"}
	switch scope {
	case repo.ScopeLocal:
		args = append(args, "refs/heads")
	case repo.ScopeRemote:
		args = append(args, "refs/remotes")
	default:
		args = append(args, "refs/heads", "refs/remotes")
	}

	out, err := g.gitCapture(ctx, args...)
	if err != nil {
		return nil, err
	}

	var branches []repo.Branch
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		ref := fields[0]
		name := strings.TrimPrefix(ref, "refs/heads/")
		name = strings.TrimPrefix(name, "refs/remotes/")
		branches = append(branches, repo.Branch{
			Name:       name,
			Ref:        ref,
			Target:     object.Hash(fields[1]),
			CheckedOut: len(fields) >= 3 && fields[2] == "*",
		})
	}
	return branches, nil
}

func (g *GitExec) Reset(ctx context.Context, hard bool) error {
	if hard {
		return g.git(ctx, "reset", "--hard")
	}
	return g.git(ctx, "reset", "--mixed")
}

func (g *GitExec) Fetch(ctx context.Context, remote, refspec string) error {
	args := []string{"fetch", "--tags", "--force"}
	if strings.TrimSpace(remote) != "" {
		args = append(args, remote)
	}
	if strings.TrimSpace(refspec) != "" {
		args = append(args, refspec)
	}
	return g.git(ctx, args...)
}

func (g *GitExec) Push(ctx context.Context, remote, branch string, force bool) error {
	args := []string{"push"}
	if force {
		args = append(args, "--force")
	}
	if strings.TrimSpace(remote) != "" {
		args = append(args, remote)
	}
	if strings.TrimSpace(branch) != "" {
		args = append(args, branch)
	}
	return g.git(ctx, args...)
}

func (g *GitExec) Clone(ctx context.Context, remoteURL, dest string) error {
	return g.runStreaming(ctx, "", "clone", remoteURL, dest)
}

func (g *GitExec) RevParse(ctx context.Context, commitish string) (object.Hash, error) {
	out, err := g.gitCapture(ctx, "rev-parse", commitish)
	if err != nil {
		return "", err
	}
	return object.Hash(strings.TrimSpace(string(out))), nil
}

// ensureGitRepository verifies a .git directory exists for delegated
// operations that require one.
func ensureGitRepository(root string) error {
	stat, err := os.Stat(filepath.Join(root, ".git"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("git delegation requires a .git repository in %s", root)
		}
		return err
	}
	if !stat.IsDir() {
		return fmt.Errorf("%s/.git is not a directory", root)
	}
	return nil
}

func (g *GitExec) runCapture(ctx context.Context, dir string, args ...string) ([]byte, error) {
	gitArgs := append([]string{}, args...)
	if strings.TrimSpace(dir) != "" {
		gitArgs = append([]string{"-C", dir}, gitArgs...)
	}
	cctx, cancel := context.WithTimeout(ctx, gitCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, g.exe, gitArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}
	return stdout.Bytes(), nil
}

func (g *GitExec) runStreaming(ctx context.Context, dir string, args ...string) error {
	gitArgs := append([]string{}, args...)
	if strings.TrimSpace(dir) != "" {
		gitArgs = append([]string{"-C", dir}, gitArgs...)
	}
	cctx, cancel := context.WithTimeout(ctx, gitCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, g.exe, gitArgs...)
	cmd.Stdout = g.stdout
	cmd.Stderr = g.stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return nil
}
