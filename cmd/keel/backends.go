package main

import (
	"github.com/spf13/cobra"

	"github.com/keelvcs/keel/pkg/backend"
	"github.com/keelvcs/keel/pkg/repo"
)

// openFacade builds the routed backend for the current directory: the native
// engine first, an external git process as the delegate. The delegate's
// binary comes from repository config when one is set.
func openFacade(cmd *cobra.Command) *backend.Facade {
	workspace := "."
	exe := ""
	if r, err := repo.Open(workspace); err == nil {
		workspace = r.RootDir
		if cfg, err := r.ReadConfig(); err == nil {
			exe = cfg.Git.Executable
		}
	}

	native := backend.NewNative(workspace)
	delegate := backend.NewGitExec(workspace, exe, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return backend.NewFacade(native, delegate)
}
