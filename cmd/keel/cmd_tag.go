package main

import (
	"fmt"
	"strings"

	"github.com/keelvcs/keel/pkg/object"
	"github.com/keelvcs/keel/pkg/repo"
	"github.com/spf13/cobra"
)

func newTagCmd() *cobra.Command {
	var deleteTag string
	var force bool
	var message string
	var showHash bool

	cmd := &cobra.Command{
		Use:   "tag [name] [target]",
		Short: "List, create, or delete tags",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			if strings.TrimSpace(deleteTag) != "" {
				if len(args) > 0 {
					return fmt.Errorf("tag --delete does not accept positional args")
				}
				return r.DeleteTag(deleteTag)
			}

			if len(args) == 0 {
				names, err := r.ListTags()
				if err != nil {
					return err
				}
				for _, name := range names {
					if showHash {
						h, err := r.ResolveTag(name)
						if err != nil {
							return err
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", h, name)
					} else {
						fmt.Fprintln(cmd.OutOrStdout(), name)
					}
				}
				return nil
			}

			name := args[0]
			var target object.Hash
			if len(args) == 2 {
				target, err = r.ResolveCommitish(args[1])
				if err != nil {
					return err
				}
			} else {
				target, err = r.ResolveCommitish("HEAD")
				if err != nil {
					return fmt.Errorf("resolve HEAD: %w", err)
				}
			}

			if strings.TrimSpace(message) != "" {
				tagger := ""
				if cfg, err := r.ReadConfig(); err == nil {
					tagger = cfg.User.Name
				}
				_, err := r.CreateAnnotatedTag(name, target, tagger, message, force)
				return err
			}
			return r.CreateTag(name, target, force)
		},
	}

	cmd.Flags().StringVarP(&deleteTag, "delete", "d", "", "delete the named tag")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing tag")
	cmd.Flags().StringVarP(&message, "message", "m", "", "create an annotated tag with this message")
	cmd.Flags().BoolVar(&showHash, "show-hash", false, "show tag target hashes when listing")

	return cmd
}
