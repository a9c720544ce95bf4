package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/keelvcs/keel/pkg/object"
)

// Init creates a new keel repository at path. It creates the .keel/ directory
// structure: HEAD, objects/, refs/heads/, refs/tags/, and logs/. Returns an
// error if a .keel/ directory already exists.
func Init(path string) (*Repo, error) {
	keelDir := filepath.Join(path, ".keel")

	// Fail if .keel/ already exists.
	if _, err := os.Stat(keelDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", keelDir)
	}

	dirs := []string{
		filepath.Join(keelDir, "objects"),
		filepath.Join(keelDir, "refs", "heads"),
		filepath.Join(keelDir, "refs", "tags"),
		filepath.Join(keelDir, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	// Write default HEAD. The main branch is unborn until the first commit.
	headPath := filepath.Join(keelDir, "HEAD")
	if err := os.WriteFile(headPath, []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}

	return &Repo{
		RootDir: path,
		KeelDir: keelDir,
		Store:   object.NewStore(keelDir),
	}, nil
}

// Open searches upward from path for a .keel/ directory and opens the
// repository. Returns an error if no .keel/ directory is found.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		keelDir := filepath.Join(cur, ".keel")
		info, err := os.Stat(keelDir)
		if err == nil && info.IsDir() {
			return &Repo{
				RootDir: cur,
				KeelDir: keelDir,
				Store:   object.NewStore(keelDir),
			}, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open: not a keel repository (or any parent up to /)")
		}
		cur = parent
	}
}

// Head reads .keel/HEAD. If the content starts with "ref: ", it returns the
// ref path (e.g., "refs/heads/main"). Otherwise it returns the raw content
// as a detached hash string.
func (r *Repo) Head() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.KeelDir, "HEAD"))
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	content := strings.TrimRight(string(data), "\n")

	if strings.HasPrefix(content, "ref: ") {
		return strings.TrimPrefix(content, "ref: "), nil
	}
	return content, nil
}

// ResolveRef resolves a ref name to an object hash.
//
// Resolution order:
//  1. If name is "HEAD", read HEAD. If HEAD is symbolic, resolve the target ref.
//  2. If name starts with "refs/", read .keel/<name>.
//  3. Otherwise, try "refs/heads/<name>".
//
// A missing ref file reports ErrUnresolvableReference.
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	if name == "HEAD" {
		head, err := r.Head()
		if err != nil {
			return "", err
		}
		// If Head returned a ref path, resolve it recursively.
		if strings.HasPrefix(head, "refs/") {
			return r.ResolveRef(head)
		}
		// Detached HEAD: the value is a hash.
		return object.Hash(head), nil
	}

	var refPath string
	if strings.HasPrefix(name, "refs/") {
		refPath = filepath.Join(r.KeelDir, filepath.FromSlash(name))
	} else {
		refPath = filepath.Join(r.KeelDir, "refs", "heads", filepath.FromSlash(name))
	}

	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("resolve ref %q: %w", name, ErrUnresolvableReference)
		}
		return "", fmt.Errorf("resolve ref %q: %w", name, err)
	}
	return object.Hash(strings.TrimRight(string(data), "\n")), nil
}

// ResolveCommitish resolves a commitish ("HEAD", a full hash, a branch name,
// a tag name, or a full ref path) to the hash of a commit object.
// Annotated tags are peeled to the commit they point at.
func (r *Repo) ResolveCommitish(name string) (object.Hash, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("resolve commitish: empty name: %w", ErrUnresolvableReference)
	}

	h, err := r.resolveCommitishRaw(name)
	if err != nil {
		return "", err
	}
	return r.peelToCommit(name, h)
}

func (r *Repo) resolveCommitishRaw(name string) (object.Hash, error) {
	if name == "HEAD" || strings.HasPrefix(name, "refs/") {
		h, err := r.ResolveRef(name)
		if err != nil || h == "" {
			return "", fmt.Errorf("resolve %q: %w", name, ErrUnresolvableReference)
		}
		return h, nil
	}

	// Branch, then tag, then raw hash.
	if h, err := r.ResolveRef("refs/heads/" + name); err == nil && h != "" {
		return h, nil
	}
	if h, err := r.ResolveRef("refs/tags/" + name); err == nil && h != "" {
		return h, nil
	}
	if looksLikeHash(name) && r.Store.Has(object.Hash(name)) {
		return object.Hash(name), nil
	}
	return "", fmt.Errorf("resolve %q: %w", name, ErrUnresolvableReference)
}

// peelToCommit follows annotated tag objects until it reaches a commit hash.
func (r *Repo) peelToCommit(name string, h object.Hash) (object.Hash, error) {
	for depth := 0; depth < 8; depth++ {
		objType, _, err := r.Store.Read(h)
		if err != nil {
			return "", fmt.Errorf("resolve %q: %w", name, ErrUnresolvableReference)
		}
		switch objType {
		case object.TypeCommit:
			return h, nil
		case object.TypeTag:
			tag, err := r.Store.ReadTag(h)
			if err != nil {
				return "", fmt.Errorf("resolve %q: peel tag: %w", name, err)
			}
			h = tag.TargetHash
		default:
			return "", fmt.Errorf("resolve %q: %s object is not a commit: %w", name, objType, ErrUnresolvableReference)
		}
	}
	return "", fmt.Errorf("resolve %q: tag chain too deep: %w", name, ErrUnresolvableReference)
}

func looksLikeHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
