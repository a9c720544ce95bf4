package main

import (
	"github.com/spf13/cobra"
)

func newPushCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "push [remote] [branch]",
		Short: "Publish a branch to a remote",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			remote := "origin"
			branch := ""
			if len(args) > 0 {
				remote = args[0]
			}
			if len(args) > 1 {
				branch = args[1]
			}
			return openFacade(cmd).Push(cmd.Context(), remote, branch, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force-update the remote ref")

	return cmd
}
