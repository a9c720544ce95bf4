package repo

import (
	"github.com/keelvcs/keel/pkg/object"
)

// Repo represents an opened keel repository. It owns the workspace root, the
// .keel metadata directory, and the content-addressed object store. All
// index-mutating operations on one Repo serialize through the single index
// lock (see LockIndex); Repos rooted at different workspaces are independent.
type Repo struct {
	RootDir string        // working directory root
	KeelDir string        // .keel/ directory
	Store   *object.Store // content-addressed object store
}
