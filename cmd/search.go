package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/graphreports/internal/reports"
)

func newSearchCmd() *cobra.Command {
	var (
		mailbox string
		pattern string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search a mailbox by subject",
		Long: `Search a mailbox for the most recent messages whose subject contains a
pattern, newest first. The program mailbox is searched unless --mailbox is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, mailbox, pattern, limit)
		},
	}

	cmd.Flags().StringVar(&mailbox, "mailbox", "", "Mailbox to search (default: PROGRAM_EMAIL)")
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "Text the subject must contain")
	cmd.Flags().IntVarP(&limit, "limit", "n", reports.DefaultLimit, "Maximum number of messages")
	_ = cmd.MarkFlagRequired("pattern")

	return cmd
}

func runSearch(cmd *cobra.Command, mailbox, pattern string, limit int) error {
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

	if mailbox == "" {
		mailbox = session.Config().ProgramEmail
	}

	messages, err := session.SearchMail(ctx, mailbox, pattern, limit)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No matching messages.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SENT\tSUBJECT\tATTACHMENTS")
	for _, msg := range messages {
		names := make([]string, 0, len(msg.Attachments))
		for _, a := range msg.Attachments {
			names = append(names, a.Name)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			msg.SentDateTime.Format(time.RFC3339),
			msg.Subject,
			strings.Join(names, ", "),
		)
	}
	return w.Flush()
}
