package main

import (
	"fmt"
	"os"

	gogit "github.com/Nivl/git-go"
	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/internal/errutil"
	"github.com/spf13/cobra"
)

func newLsTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-tree --name-only TREE",
		Short: "list the entries of a tree object",
		Args:  cobra.ExactArgs(1),
	}

	nameOnly := cmd.Flags().Bool("name-only", false, "list only the entry names")

	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		if !*nameOnly {
			return fmt.Errorf("ls-tree requires --name-only")
		}

		pwd, err := os.Getwd()
		if err != nil {
			return err
		}
		r, err := gogit.OpenRepository(pwd)
		if err != nil {
			return err
		}
		defer errutil.Close(r, &err)

		oid, err := ginternals.NewOidFromString(args[0])
		if err != nil {
			return fmt.Errorf("not a valid object id %s: %w", args[0], err)
		}

		t, err := r.GetTree(oid)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, e := range t.Entries() {
			fmt.Fprintln(out, e.Path)
		}
		return nil
	}

	return cmd
}
