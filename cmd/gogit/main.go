// Command gogit is a minimal, git-compatible plumbing CLI: enough to
// initialize a repository, inspect and create objects by hand, and
// clone a remote over smart-HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errors.Cause(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gogit",
		Short:         "a minimal git-compatible client core",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newCatFileCmd())
	cmd.AddCommand(newHashObjectCmd())
	cmd.AddCommand(newLsTreeCmd())
	cmd.AddCommand(newWriteTreeCmd())
	cmd.AddCommand(newCommitTreeCmd())
	cmd.AddCommand(newCloneCmd())

	return cmd
}
