package main

import (
	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	var refspec string

	cmd := &cobra.Command{
		Use:   "fetch [remote]",
		Short: "Update remote-tracking state from a remote",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remote := "origin"
			if len(args) == 1 {
				remote = args[0]
			}
			return openFacade(cmd).Fetch(cmd.Context(), remote, refspec)
		},
	}

	cmd.Flags().StringVar(&refspec, "refspec", "", "restrict the fetch to a single refspec")

	return cmd
}
