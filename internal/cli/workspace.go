package cli

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clintrovert/tasksync/internal/store"
	"github.com/clintrovert/tasksync/internal/workspace"
	"github.com/clintrovert/tasksync/pkg/types"
)

func newWorkspaceCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage workspaces",
	}
	cmd.AddCommand(newWorkspaceCreateCmd(opts))
	cmd.AddCommand(newWorkspaceListCmd(opts))
	cmd.AddCommand(newWorkspaceDeleteCmd(opts))
	return cmd
}

func (o *options) workspaceService(st *store.Store) (*workspace.Service, error) {
	gh, err := o.githubClient()
	if err != nil {
		return nil, err
	}
	return workspace.NewService(workspace.Config{
		PublicWebhookURL: o.cfg.PublicWebhookURL,
		WebhookSecret:    o.cfg.WebhookSecret,
	}, st, gh, o.inferenceClient(), o.logger), nil
}

func newWorkspaceCreateCmd(opts *options) *cobra.Command {
	var (
		name  string
		owner string
		repo  string
		token string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Link a GitHub repository and register its webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner == "" {
				return errors.New("--owner is required")
			}
			if repo == "" {
				return errors.New("--repo is required")
			}

			st, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			svc, err := opts.workspaceService(st)
			if err != nil {
				return err
			}

			ws, err := svc.Create(cmd.Context(), &types.Workspace{
				Name:        name,
				RepoOwner:   owner,
				RepoName:    repo,
				GitHubToken: token,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created workspace %d for %s\n", ws.ID, ws.FullName())
			if ws.WebhookID != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Registered webhook %s\n", ws.WebhookID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Workspace name (default: owner/repo)")
	cmd.Flags().StringVar(&owner, "owner", "", "Repository owner")
	cmd.Flags().StringVar(&repo, "repo", "", "Repository name")
	cmd.Flags().StringVar(&token, "token", "", "GitHub token used for this repository")
	return cmd
}

func newWorkspaceListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			workspaces, err := st.ListWorkspaces(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tNAME\tREPOSITORY\tWEBHOOK")
			for _, ws := range workspaces {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", ws.ID, ws.Name, ws.FullName(), ws.WebhookID)
			}
			return tw.Flush()
		},
	}
}

func newWorkspaceDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Unregister a workspace's webhook and delete it with everything it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid workspace id %q", args[0])
			}

			st, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			svc, err := opts.workspaceService(st)
			if err != nil {
				return err
			}
			if err := svc.Delete(cmd.Context(), id); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted workspace %d\n", id)
			return nil
		},
	}
}
