package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/graphreports/internal/config"
	"github.com/teemow/graphreports/internal/graph"
	"github.com/teemow/graphreports/internal/reports"
)

func newAuthCmd() *cobra.Command {
	var (
		scopes    string
		addScopes string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Microsoft Graph and store the token",
		Long: `Authenticate with Microsoft Graph and store the token for later runs.

With the authorization flow, a sign-in URL is printed. Open it, grant access
and paste the URL you are redirected to (or just the code) back here.
With the credentials flow, the application signs in with its client secret.

A valid stored token is reused; nothing is asked in that case.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd, parseCommaSeparatedList(scopes), parseCommaSeparatedList(addScopes))
		},
	}

	cmd.Flags().StringVar(&scopes, "scopes", "", "Comma-separated scopes replacing the defaults")
	cmd.Flags().StringVar(&addScopes, "add-scopes", "", "Comma-separated scopes added to the effective set")

	return cmd
}

func runAuth(cmd *cobra.Command, scopes, additional []string) error {
	ctx := cmd.Context()

	provider, err := newInstrumentationProvider(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	cfg, err := config.Load(globalFlags.configPath)
	if err != nil {
		return err
	}
	if scopes == nil && cfg.Flow() == config.AuthFlowCredentials {
		scopes = []string{graph.CredentialsScope}
	}

	_, err = openSessionWithConfig(ctx, *cfg,
		reports.WithScopes(scopes),
		reports.WithAdditionalScopes(additional),
		reports.WithPrompt(os.Stdin, cmd.ErrOrStderr()),
		reports.WithMetrics(provider.Metrics()),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Authenticated with Microsoft Graph (%s flow).\n", cfg.Flow())
	return nil
}
