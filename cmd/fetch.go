package cmd

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/graphreports/internal/reports"
)

func newFetchCmd() *cobra.Command {
	var (
		droID  string
		outDir string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the latest workforce report for a DRO",
		Long: `Fetch the latest "DR <id> Automated Workforce Reports" mail from the program
mailbox and decode its attachments.

Without --out the attachments are listed by classification key. With --out
each attachment is written to <out>/<key>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, droID, outDir, limit)
		},
	}

	cmd.Flags().StringVar(&droID, "dro-id", "", "DRO identifier")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to write attachments to")
	cmd.Flags().IntVarP(&limit, "limit", "n", reports.DefaultLimit, "1 for a single report, anything else for a list")
	_ = cmd.MarkFlagRequired("dro-id")

	return cmd
}

func runFetch(cmd *cobra.Command, droID, outDir string, limit int) error {
	ctx := cmd.Context()

	provider, err := newInstrumentationProvider(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	session, err := openSession(ctx,
		reports.WithPrompt(os.Stdin, cmd.ErrOrStderr()),
		reports.WithMetrics(provider.Metrics()),
	)
	if err != nil {
		return err
	}

	set, err := session.FetchWorkforceReports(ctx, droID, limit)
	if err != nil {
		return err
	}

	for _, r := range set.Reports() {
		fmt.Fprintln(cmd.OutOrStdout(), r.Subject)
		if outDir == "" {
			for _, key := range slices.Sorted(maps.Keys(r.Attachments)) {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s (%d bytes)\n", key, len(r.Attachments[key]))
			}
			continue
		}

		written, err := writeAttachments(outDir, r)
		if err != nil {
			return err
		}
		for _, path := range written {
			fmt.Fprintf(cmd.OutOrStdout(), "  wrote %s\n", path)
		}
	}
	return nil
}

// writeAttachments writes every attachment of r into dir, named after its
// classification key, and returns the written paths in key order.
func writeAttachments(dir string, r reports.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	keys := slices.Sorted(maps.Keys(r.Attachments))
	written := make([]string, 0, len(keys))
	for _, key := range keys {
		path := filepath.Join(dir, attachmentFilename(key))
		if err := os.WriteFile(path, r.Attachments[key], 0o600); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// attachmentFilename turns a classification key into a safe file name.
func attachmentFilename(key string) string {
	name := filepath.Base(strings.ReplaceAll(key, "\\", "/"))
	switch name {
	case ".", "..", "/", "":
		return "attachment"
	}
	return name
}
