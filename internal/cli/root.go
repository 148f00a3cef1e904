// Package cli implements tasksyncctl, the admin command line.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clintrovert/tasksync/internal/config"
	ghclient "github.com/clintrovert/tasksync/internal/github"
	"github.com/clintrovert/tasksync/internal/inference"
	"github.com/clintrovert/tasksync/internal/store"
)

type options struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd builds the tasksyncctl command tree
func NewRootCmd(logger *zap.Logger) *cobra.Command {
	opts := &options{cfg: config.Load(), logger: logger}

	cmd := &cobra.Command{
		Use:          "tasksyncctl",
		Short:        "Administer tasksync workspaces and features",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.cfg.DBDriver, "db-driver", opts.cfg.DBDriver, "Database driver: sqlite3 or pgx (env: DB_DRIVER)")
	cmd.PersistentFlags().StringVar(&opts.cfg.DatabaseURL, "database-url", opts.cfg.DatabaseURL, "Database DSN (env: DATABASE_URL)")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newWorkspaceCmd(opts))
	cmd.AddCommand(newFeatureCmd(opts))

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	return cmd
}

// openStore opens and migrates the configured database
func (o *options) openStore(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, o.cfg.DBDriver, o.cfg.DatabaseURL, o.logger)
}

func (o *options) githubClient() (*ghclient.Client, error) {
	return ghclient.NewClient(ghclient.Config{
		BaseURL: o.cfg.GitHubAPIURL,
		Timeout: o.cfg.GitHubTimeout,
	}, o.logger)
}

func (o *options) inferenceClient() *inference.Client {
	return inference.NewClient(inference.Config{
		APIKey:  o.cfg.OpenAIAPIKey,
		Model:   o.cfg.OpenAIModel,
		BaseURL: o.cfg.OpenAIBaseURL,
		Timeout: o.cfg.InferenceTimeout,
	}, o.logger)
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			_, _ = cmd.OutOrStdout().Write([]byte("Database is up to date\n"))
			return nil
		},
	}
}
