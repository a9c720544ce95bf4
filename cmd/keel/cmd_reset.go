package main

import (
	"github.com/keelvcs/keel/pkg/repo"
	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	var hard bool

	cmd := &cobra.Command{
		Use:   "reset [paths...]",
		Short: "Restore index entries (and with --hard the working tree) from HEAD",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			return r.Reset(cmd.Context(), hard, args)
		},
	}

	cmd.Flags().BoolVar(&hard, "hard", false, "also rewrite the working tree to HEAD")

	return cmd
}
