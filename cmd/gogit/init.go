package main

import (
	"fmt"
	"os"

	gogit "github.com/Nivl/git-go"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "create an empty git repository",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		pwd, err := os.Getwd()
		if err != nil {
			return err
		}
		if _, err := gogit.InitRepository(pwd); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Initialized git directory")
		return nil
	}

	return cmd
}
