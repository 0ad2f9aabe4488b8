package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/temcen/reelrec/internal/cache"
	"github.com/temcen/reelrec/internal/config"
	"github.com/temcen/reelrec/internal/database"
	"github.com/temcen/reelrec/internal/services"
)

var errNoSecret = errors.New("auth.jwt_secret (JWT_SECRET) is not set")

// cliState is shared by the subcommands; it is filled in PersistentPreRunE.
type cliState struct {
	verbose bool
	cfg     *config.Config
	logger  *logrus.Logger
}

func newRootCmd() *cobra.Command {
	state := &cliState{}

	root := &cobra.Command{
		Use:           "reelctl",
		Short:         "Operational tasks for the recommendation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to load .env file: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			state.cfg = cfg

			state.logger = logrus.New()
			state.logger.SetOutput(cmd.ErrOrStderr())
			state.logger.SetLevel(logrus.WarnLevel)
			if state.verbose {
				state.logger.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&state.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newTokenCmd(state),
		newMigrateCmd(state),
		newInvalidateCmd(state),
	)
	return root
}

// newTokenCmd mints a bearer token accepted by POST /api/recommendations.
func newTokenCmd(state *cliState) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin token for creating recommendations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			auth := services.NewAuthService(state.cfg.Auth.JWTSecret, state.logger)
			if !auth.Enabled() {
				return errNoSecret
			}

			token, err := auth.GenerateToken(subject, services.RoleAdmin, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "reelctl", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

// newMigrateCmd applies the schema for deployments that run with
// database.auto_migrate disabled.
func newMigrateCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the recommendations table and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			pool, err := database.NewPostgresPool(ctx, state.cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := database.EnsureSchema(ctx, pool, state.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

// newInvalidateCmd drops cached recommendation lists. Without flags it
// clears every cached list.
func newInvalidateCmd(state *cliState) *cobra.Command {
	var (
		userID  int
		movieID int
		popular bool
	)

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Remove cached recommendation lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			client, err := database.NewRedisClient(ctx, state.cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close()

			deleted, err := invalidate(ctx, cache.NewRedisStore(client), invalidationPrefixes(userID, movieID, popular))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached lists\n", deleted)
			return nil
		},
	}
	cmd.Flags().IntVar(&userID, "user", 0, "only top recommendations of this user")
	cmd.Flags().IntVar(&movieID, "movie", 0, "only similar movies of this movie")
	cmd.Flags().BoolVar(&popular, "popular", false, "only popular movie lists")
	return cmd
}

func invalidationPrefixes(userID, movieID int, popular bool) []string {
	var prefixes []string
	if userID > 0 {
		prefixes = append(prefixes, cache.TopPrefix(userID))
	}
	if movieID > 0 {
		prefixes = append(prefixes, cache.SimilarPrefix(movieID))
	}
	if popular {
		prefixes = append(prefixes, cache.PopularPrefix())
	}
	if len(prefixes) == 0 {
		prefixes = append(prefixes, cache.RootPrefix)
	}
	return prefixes
}

func invalidate(ctx context.Context, store cache.Store, prefixes []string) (int, error) {
	total := 0
	for _, prefix := range prefixes {
		deleted, err := store.DeletePrefix(ctx, prefix)
		total += deleted
		if err != nil {
			return total, fmt.Errorf("failed to invalidate %s: %w", prefix, err)
		}
	}
	return total, nil
}
