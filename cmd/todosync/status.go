package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/todosync/internal/app"
	"github.com/nhle/todosync/internal/store"
	"github.com/nhle/todosync/internal/theme"
)

func statusCmd(opts *globalOptions) *cobra.Command {
	var (
		limit  int
		latest bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recently journaled sync cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()

			path, err := app.LoadJournalPath(env.provider)
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Fprintln(out, theme.MutedStyle.Render("journal disabled"))
				return nil
			}
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintln(out, theme.MutedStyle.Render("no cycles journaled yet"))
				return nil
			}

			journal, err := store.NewSQLiteStore(path)
			if err != nil {
				return err
			}
			defer journal.Close()

			var cycles []store.Cycle
			if latest {
				cycles, err = journal.LatestCycles(cmd.Context())
			} else {
				cycles, err = journal.RecentCycles(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(out, theme.Header("todosync status"))
			fmt.Fprintln(out, theme.MutedStyle.Render(path))
			fmt.Fprintln(out, theme.CyclesTable(cycles))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of cycles to show")
	cmd.Flags().BoolVar(&latest, "latest", false, "show only the last cycle of each synchronizer")

	return cmd
}
