package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/keelvcs/keel/pkg/repo"
	"github.com/spf13/cobra"
)

func newCheckoutCmd() *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "checkout <commitish>",
		Short: "Move the working tree to a commit, optionally recreating a branch there",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			err := openFacade(cmd).Checkout(cmd.Context(), target, branch)
			if err != nil {
				var conflict *repo.ConflictError
				if errors.As(err, &conflict) {
					out := cmd.ErrOrStderr()
					fmt.Fprintln(out, "checkout aborted; conflicting paths:")
					for _, p := range conflict.Paths {
						fmt.Fprintf(out, "  %s\n", p)
					}
				}
				return err
			}

			out := cmd.OutOrStdout()
			if branch != "" {
				fmt.Fprintf(out, "switched to branch '%s' at %s\n", branch, shortRef(target))
			} else {
				fmt.Fprintf(out, "HEAD is now detached at %s\n", shortRef(target))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&branch, "branch", "b", "", "recreate this branch at the target and attach HEAD to it")

	return cmd
}

func shortRef(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 64 {
		return s[:8]
	}
	return s
}
