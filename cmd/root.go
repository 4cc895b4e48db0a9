package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/graphreports/internal/config"
	"github.com/teemow/graphreports/internal/instrumentation"
	"github.com/teemow/graphreports/internal/logging"
	"github.com/teemow/graphreports/internal/reports"
)

// rootCmd represents the base command for the graphreports application
var rootCmd = &cobra.Command{
	Use:   "graphreports",
	Short: "Fetches automated workforce reports from a Microsoft 365 mailbox",
	Long: `graphreports signs in to Microsoft Graph, finds the latest automated
workforce report mail for a DRO in the program mailbox and extracts its
attachments.

It can run as:
  - A CLI tool (auth, search, fetch)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(logging.New(os.Stderr, globalFlags.debug))
	},
}

// version will be set by main
var version = "dev"

type rootFlags struct {
	configPath string
	tokenFile  string
	debug      bool
}

var globalFlags rootFlags

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "graphreports version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.configPath, "config", config.DefaultPath, "Path to the dotenv config file")
	rootCmd.PersistentFlags().StringVar(&globalFlags.tokenFile, "token-file", "", "Token file name (default: o365_token.txt)")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "graphreports version %s\n", version)
		},
	}
}

// newInstrumentationProvider builds the provider from the environment.
func newInstrumentationProvider(ctx context.Context) (*instrumentation.Provider, error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	return provider, nil
}

// openSession loads the config and returns an authenticated session.
func openSession(ctx context.Context, opts ...reports.Option) (*reports.Session, error) {
	cfg, err := config.Load(globalFlags.configPath)
	if err != nil {
		return nil, err
	}
	return openSessionWithConfig(ctx, *cfg, opts...)
}

func openSessionWithConfig(ctx context.Context, cfg config.Config, opts ...reports.Option) (*reports.Session, error) {
	opts = append([]reports.Option{reports.WithLogger(slog.Default())}, opts...)
	return reports.Init(ctx, cfg, globalFlags.tokenFile, opts...)
}

// parseCommaSeparatedList splits a comma-separated string into a slice of
// trimmed, non-empty strings. It returns nil for an empty input.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
