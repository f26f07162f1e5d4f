package main

import (
	"fmt"
	"os"

	gogit "github.com/Nivl/git-go"
	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/internal/errutil"
	"github.com/spf13/cobra"
)

func newCommitTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit-tree TREE [-p PARENT]... -m MESSAGE",
		Short: "create a commit object from a tree and optional parents",
		Args:  cobra.ExactArgs(1),
	}

	parents := cmd.Flags().StringArrayP("parent", "p", nil, "id of a parent commit")
	message := cmd.Flags().StringP("message", "m", "", "commit message")

	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		treeID, err := ginternals.NewOidFromString(args[0])
		if err != nil {
			return fmt.Errorf("not a valid tree id %s: %w", args[0], err)
		}

		parentIDs := make([]ginternals.Oid, len(*parents))
		for i, p := range *parents {
			parentIDs[i], err = ginternals.NewOidFromString(p)
			if err != nil {
				return fmt.Errorf("not a valid parent id %s: %w", p, err)
			}
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

		c, err := r.NewCommit(treeID, parentIDs, *message)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), c.ID().String())
		return nil
	}

	return cmd
}
