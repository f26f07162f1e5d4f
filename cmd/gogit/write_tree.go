package main

import (
	"fmt"
	"os"

	gogit "github.com/Nivl/git-go"
	"github.com/Nivl/git-go/internal/errutil"
	"github.com/spf13/cobra"
)

func newWriteTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write-tree",
		Short: "snapshot the current directory into a tree object",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		pwd, err := os.Getwd()
		if err != nil {
			return err
		}
		r, err := gogit.OpenRepository(pwd)
		if err != nil {
			return err
		}
		defer errutil.Close(r, &err)

		oid, err := r.WriteTree()
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), oid.String())
		return nil
	}

	return cmd
}
