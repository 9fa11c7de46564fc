package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"
	"text/tabwriter"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/dvloznov/lifeos/internal/gcs"
	infraBQ "github.com/dvloznov/lifeos/internal/infra/bigquery"
	"github.com/dvloznov/lifeos/internal/logger"
	"github.com/dvloznov/lifeos/internal/notionsync"
	"github.com/spf13/cobra"
)

func (c *cli) expenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expense <sms text>",
		Short: "Record one bank SMS notification",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireOwner(); err != nil {
				return err
			}
			rec, err := c.container.ExpensePipeline().Submit(c.context(cmd), c.owner, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func (c *cli) planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <description of your plans>",
		Short: "Turn a free-form plan into a schedule",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireOwner(); err != nil {
				return err
			}
			ctx := c.context(cmd)
			p, err := c.container.PlanPipeline(ctx)
			if err != nil {
				return err
			}
			rec, err := p.Submit(ctx, c.owner, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:       "list expenses|plans",
		Short:     "List the owner's records, newest first",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"expenses", "plans"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireOwner(); err != nil {
				return err
			}
			ctx := c.context(cmd)
			out := cmd.OutOrStdout()

			switch args[0] {
			case "expenses":
				recs, err := c.container.Ledger().ListTransactions(ctx, c.owner)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(out, recs)
				}
				return printTransactions(out, recs)
			case "plans":
				recs, err := c.container.Ledger().ListPlans(ctx, c.owner)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(out, recs)
				}
				return printPlans(out, recs)
			default:
				return fmt.Errorf("unknown record kind %q (want expenses or plans)", args[0])
			}
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|gs://bucket/object>",
		Short: "Record every non-empty line of a file as an SMS notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireOwner(); err != nil {
				return err
			}
			ctx := c.context(cmd)
			log := logger.FromContext(ctx)
			source := args[0]

			var data []byte
			if gcs.IsURI(source) {
				storage, err := c.container.Storage(ctx)
				if err != nil {
					return err
				}
				if data, err = storage.Fetch(ctx, source); err != nil {
					return err
				}
			} else {
				var err error
				if data, err = os.ReadFile(source); err != nil {
					return fmt.Errorf("reading %s: %w", source, err)
				}
			}

			var stored, failed int
			scanner := bufio.NewScanner(bytes.NewReader(data))
			for line := 1; scanner.Scan(); line++ {
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				if _, err := c.container.ExpensePipeline().Submit(ctx, c.owner, text); err != nil {
					log.Warn().Err(err).Int("line", line).Msg("Failed to record line")
					failed++
					continue
				}
				stored++
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading %s: %w", source, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d notifications from %s (%d failed)\n", stored, source, failed)
			return nil
		},
	}
}

func (c *cli) chatCmd() *cobra.Command {
	var system string

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a single message to the assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireOwner(); err != nil {
				return err
			}
			ctx := c.context(cmd)
			chat, err := c.container.ChatService(ctx)
			if err != nil {
				return err
			}

			var messages []domain.ChatMessage
			if system != "" {
				messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: system})
			}
			messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: strings.Join(args, " ")})

			reply, err := chat.Reply(ctx, c.owner, messages)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
	cmd.Flags().StringVar(&system, "system", "", "Optional system instruction")
	return cmd
}

func (c *cli) syncNotionCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync-notion",
		Short: "Export the owner's plan entries to a Notion database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireOwner(); err != nil {
				return err
			}
			notion, err := c.container.Notion()
			if err != nil {
				return err
			}
			res, err := notionsync.SyncPlans(c.context(cmd), c.container.Ledger(), notion, c.cfg.Notion.DatabaseID, c.owner, dryRun)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d, skipped %d, failed %d\n", res.Created, res.Skipped, res.Failed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be created without writing to Notion")
	return cmd
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending BigQuery schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := c.cfg.Ledger.ProjectID
			if projectID == "" {
				return fmt.Errorf("GOOGLE_CLOUD_PROJECT or ledger.project_id is required")
			}
			ctx := c.context(cmd)

			client, err := bigquery.NewClient(ctx, projectID)
			if err != nil {
				return fmt.Errorf("creating BigQuery client: %w", err)
			}
			defer client.Close()

			migrator, err := infraBQ.NewMigrator(client, projectID, c.cfg.Ledger.DatasetID, appliedBy())
			if err != nil {
				return err
			}
			applied, err := migrator.Migrate(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migrations\n", applied)
			return nil
		},
	}
}

func appliedBy() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return ""
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTransactions(w io.Writer, recs []*domain.TransactionRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDED\tAMOUNT\tDIRECTION\tCOUNTERPART\tCATEGORY")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.RecordedAt.Format("2006-01-02 15:04"), r.Amount.StringFixed(2), r.Direction, r.Counterpart, r.Category)
	}
	return tw.Flush()
}

func printPlans(w io.Writer, recs []*domain.PlanRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDED\tTIME\tDESCRIPTION\tCATEGORY\tPRIORITY")
	for _, r := range recs {
		at := r.RecordedAt.Format("2006-01-02 15:04")
		if r.Schedule.Failed() {
			fmt.Fprintf(tw, "%s\t-\t(unparsed: %s)\t-\t-\n", at, r.Schedule.Error.Reason)
			continue
		}
		for _, e := range r.Schedule.Entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", at, e.Time, e.Description, e.Category, e.Priority)
		}
	}
	return tw.Flush()
}
