package main

import (
	"fmt"
	"path"
	"strings"

	gogit "github.com/Nivl/git-go"
	"github.com/spf13/cobra"
)

func newCloneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone URL [DIRECTORY]",
		Short: "clone a remote repository over smart-HTTP",
		Args:  cobra.RangeArgs(1, 2),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		url := args[0]
		dir := args[1:]

		target := ""
		if len(dir) == 1 {
			target = dir[0]
		} else {
			target = defaultCloneDir(url)
		}

		_, err := gogit.Clone(url, target)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Cloned into %s\n", target)
		return nil
	}

	return cmd
}

// defaultCloneDir derives the directory name git itself would use
// for a clone URL when none is given on the command line: the last
// path segment, with a trailing ".git" stripped.
func defaultCloneDir(url string) string {
	name := path.Base(strings.TrimSuffix(url, "/"))
	return strings.TrimSuffix(name, ".git")
}
