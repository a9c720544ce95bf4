package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newCloneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clone <url> [dest]",
		Short: "Clone a remote repository",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := args[0]
			dest := ""
			if len(args) == 2 {
				dest = args[1]
			} else {
				dest = defaultCloneDest(url)
			}
			if dest == "" {
				return fmt.Errorf("cannot derive a destination from %q; pass one explicitly", url)
			}
			return openFacade(cmd).Clone(cmd.Context(), url, dest)
		},
	}
}

func defaultCloneDest(url string) string {
	base := filepath.Base(strings.TrimSuffix(strings.TrimRight(url, "/"), ".git"))
	if base == "." || base == "/" || base == "" {
		return ""
	}
	return base
}
