package main

import (
	"fmt"

	"github.com/keelvcs/keel/pkg/repo"
	"github.com/spf13/cobra"
)

func newBranchCmd() *cobra.Command {
	var deleteBranch string
	var remotes bool
	var all bool

	cmd := &cobra.Command{
		Use:   "branch [name]",
		Short: "List, create, or delete branches",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			// Delete mode.
			if deleteBranch != "" {
				if err := r.DeleteBranch(deleteBranch); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted branch '%s'\n", deleteBranch)
				return nil
			}

			// Create mode.
			if len(args) == 1 {
				head, err := r.ResolveCommitish("HEAD")
				if err != nil {
					return fmt.Errorf("cannot resolve HEAD: %w", err)
				}
				return r.CreateBranch(args[0], head, false)
			}

			// List mode.
			scope := repo.ScopeLocal
			if all {
				scope = repo.ScopeAll
			} else if remotes {
				scope = repo.ScopeRemote
			}
			branches, err := r.Branches(scope)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, b := range branches {
				marker := " "
				if b.CheckedOut {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, b.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&deleteBranch, "delete", "d", "", "delete the named branch")
	cmd.Flags().BoolVarP(&remotes, "remotes", "r", false, "list remote-tracking branches")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list local and remote-tracking branches")

	return cmd
}
