package main

import (
	"fmt"
	"os"

	gogit "github.com/Nivl/git-go"
	"github.com/Nivl/git-go/internal/errutil"
	"github.com/spf13/cobra"
)

func newHashObjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-object -w FILE",
		Short: "store a file as a blob and print its id",
		Args:  cobra.ExactArgs(1),
	}

	write := cmd.Flags().BoolP("w", "w", false, "actually write the object into the database")

	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		if !*write {
			return fmt.Errorf("hash-object requires -w")
		}

		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
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

		blob, err := r.NewBlob(content)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), blob.ID().String())
		return nil
	}

	return cmd
}
