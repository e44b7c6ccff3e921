package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/todosync/internal/app"
	"github.com/nhle/todosync/internal/theme"
)

func checkCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the calendar and every source's credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			a, err := app.New(env.provider, env.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, theme.Header("todosync check"))

			failed := false
			for _, r := range a.Check(cmd.Context()) {
				fmt.Fprintln(out, theme.CheckLine(r.Name, r.Detail, r.Err))
				failed = failed || r.Err != nil
			}
			if failed {
				return errCheckFailed
			}
			return nil
		},
	}
}
