package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/folklore/luck-server-go/internal/config"
	"github.com/folklore/luck-server-go/internal/database"
	"github.com/folklore/luck-server-go/internal/jobs"
	"github.com/folklore/luck-server-go/internal/repository"
	"github.com/folklore/luck-server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env")
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type storeFlags struct {
	driver string
	dsn    string
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	flags := &storeFlags{}

	root := &cobra.Command{
		Use:           "folklorectl",
		Short:         "Inspect and maintain the folklore luck store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.driver, "driver", cfg.DatabaseDriver, "database driver: sqlite|postgres")
	root.PersistentFlags().StringVar(&flags.dsn, "dsn", cfg.DatabaseURL, "database file path or connection url")

	root.AddCommand(newInitDBCmd(flags))
	root.AddCommand(newStatsCmd(flags))
	root.AddCommand(newLuckCmd(flags))
	root.AddCommand(newHistoryCmd(flags))
	root.AddCommand(newReconcileCmd(flags))
	return root
}

type app struct {
	db       *database.DB
	luck     *service.LuckService
	stats    *service.StatsService
	sessions repository.SessionRepository
}

func openApp(ctx context.Context, flags *storeFlags) (*app, error) {
	cfg := config.Config{Host: "localhost", Port: 1, DatabaseDriver: flags.driver, DatabaseURL: flags.dsn}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := database.Connect(flags.driver, flags.dsn)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	interactions := repository.NewInteractionRepository(db.DB)
	sessions := repository.NewSessionRepository(db.DB)

	return &app{
		db:       db,
		luck:     service.NewLuckService(db, interactions, sessions),
		stats:    service.NewStatsService(interactions, sessions),
		sessions: sessions,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// withApp opens the store for the duration of one command.
func withApp(flags *storeFlags, fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()
	a, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newInitDBCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create tables and indexes if they do not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(_ context.Context, a *app) error {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", a.db.Driver())
				return nil
			})
		},
	}
}

func newStatsCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print global statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(ctx context.Context, a *app) error {
				stats, err := a.stats.Compute(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
}

func newLuckCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "luck <session_id>",
		Short: "Print the running luck total of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app) error {
				result, err := a.luck.GetLuck(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newHistoryCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history <session_id>",
		Short: "Print a session's interactions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(ctx context.Context, a *app) error {
				result, err := a.luck.GetHistory(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newReconcileCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild session totals from recorded interactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(flags, func(ctx context.Context, a *app) error {
				job := jobs.NewReconcileJob(a.db, a.sessions, 0)
				result, err := job.RunOnce(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}
