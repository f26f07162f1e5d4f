package main

import (
	"fmt"
	"os"

	gogit "github.com/Nivl/git-go"
	"github.com/Nivl/git-go/ginternals"
	"github.com/Nivl/git-go/internal/errutil"
	"github.com/spf13/cobra"
)

func newCatFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat-file -p OBJECT",
		Short: "print the content of a repository object",
		Args:  cobra.ExactArgs(1),
	}

	prettyPrint := cmd.Flags().BoolP("p", "p", false, "pretty-print the object's content")

	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		if !*prettyPrint {
			return fmt.Errorf("cat-file requires -p")
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

		o, err := r.GetObject(oid)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(o.Bytes())
		return err
	}

	return cmd
}
