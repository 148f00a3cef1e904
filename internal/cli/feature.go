package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/clintrovert/tasksync/internal/issuesync"
	"github.com/clintrovert/tasksync/internal/metrics"
	"github.com/clintrovert/tasksync/internal/store"
	"github.com/clintrovert/tasksync/internal/temporal"
)

func newFeatureCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feature",
		Short: "Manage features",
	}
	cmd.AddCommand(newFeaturePublishCmd(opts))
	return cmd
}

func newFeaturePublishCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <id>",
		Short: "Publish a local feature as a GitHub issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid feature id %q", args[0])
			}

			st, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if opts.cfg.TemporalEnabled() {
				return startPublish(cmd, opts, st, id)
			}

			gh, err := opts.githubClient()
			if err != nil {
				return err
			}

			feature, err := issuesync.NewService(st, gh, metrics.New(), opts.logger).Publish(cmd.Context(), id)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Published feature %d as issue #%d: %s\n", feature.ID, feature.GitHubNumber, feature.HTMLURL)
			return nil
		},
	}
}

// startPublish hands the feature to the publish workflow on the worker
func startPublish(cmd *cobra.Command, opts *options, st *store.Store, id int64) error {
	feature, err := st.GetFeature(cmd.Context(), id)
	if err != nil {
		return err
	}
	if feature.Linked() {
		return fmt.Errorf("feature %d: %w", id, issuesync.ErrAlreadyLinked)
	}

	tc, err := temporal.NewClient(opts.cfg.TemporalAddress, opts.cfg.TemporalNamespace, opts.cfg.TaskQueue, opts.logger)
	if err != nil {
		return err
	}
	defer tc.Close()

	workflowID, err := tc.StartPublish(cmd.Context(), id)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Started publish workflow %s for feature %d\n", workflowID, id)
	return nil
}
