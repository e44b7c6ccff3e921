// Command todosync keeps CalDAV todos in sync with remote notifications.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/todosync/internal/app"
	"github.com/nhle/todosync/internal/config"
	"github.com/nhle/todosync/internal/credential"
	"github.com/nhle/todosync/internal/logging"
	"github.com/nhle/todosync/internal/store"
)

var version = "dev"

type globalOptions struct {
	configPath string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "todosync",
		Short:         "Two-way sync between GitHub notifications and CalDAV todos",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"config file (default: first of config.yml, .config/config.yml, ~/.config/todosync/config.yml)")

	root.AddCommand(runCmd(opts))
	root.AddCommand(onceCmd(opts))
	root.AddCommand(checkCmd(opts))
	root.AddCommand(statusCmd(opts))
	root.AddCommand(configCmd(opts))
	root.AddCommand(credentialsCmd())
	root.AddCommand(versionCmd())

	return root
}

func runCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the sync daemon until interrupted (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), opts)
		},
	}
}

func onceCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run one reconciliation cycle of every enabled synchronizer",
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
			journal, err := a.OpenJournal()
			if err != nil {
				return err
			}

			outcomes, err := a.NewSupervisor(recorder(journal)).RunOnce(cmd.Context())
			if journal != nil {
				journal.Close()
			}
			for _, name := range slices.Sorted(maps.Keys(outcomes)) {
				out := outcomes[name]
				fmt.Fprintf(cmd.OutOrStdout(),
					"%s: created %d, completed %d, reopened %d, marked read %d, deleted %d, pending %d\n",
					name, out.Created, out.Completed, out.Uncompleted, out.MarkedRead, out.Deleted, out.Pending)
			}
			return err
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "todosync", version)
		},
	}
}

func runDaemon(ctx context.Context, opts *globalOptions) error {
	env, err := setup(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	a, err := app.New(env.provider, env.logger)
	if err != nil {
		return err
	}
	journal, err := a.OpenJournal()
	if err != nil {
		return err
	}
	if journal != nil {
		defer journal.Close()
	}

	env.logger.Info("starting", "version", version, "synchronizers", len(a.Synchronizers))
	return a.NewSupervisor(recorder(journal)).Run(ctx)
}

// recorder avoids handing a typed nil journal to the supervisor.
func recorder(journal *store.SQLiteStore) store.Store {
	if journal == nil {
		return nil
	}
	return journal
}

// env is the configuration and logger shared by every command.
type env struct {
	provider *config.Provider
	logger   *slog.Logger
	logFile  io.Closer
}

func (e *env) Close() {
	e.logFile.Close()
}

func setup(opts *globalOptions) (*env, error) {
	provider, err := config.Load(opts.configPath, credential.New())
	if err != nil {
		return nil, err
	}

	logOpts, err := app.LoadLogOptions(provider)
	if err != nil {
		return nil, err
	}
	logger, logFile, err := logging.New(logOpts, os.Stderr)
	if err != nil {
		return nil, err
	}

	if provider.UserPath() == "" {
		logger.Warn("no config file found; using defaults", "searched", config.SearchPaths())
	} else {
		logger.Debug("config loaded", "path", provider.UserPath())
	}

	return &env{provider: provider, logger: logger, logFile: logFile}, nil
}

// errCheckFailed is returned by check when any probe failed.
var errCheckFailed = errors.New("check failed")
