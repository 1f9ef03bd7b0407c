package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/internal/report"
	"github.com/sells-group/thesis-scout/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect past run reports",
	Long:  "Commands for listing indexed reports and printing a single report.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed reports, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.ReportFilter{Limit: limit}
		if since > 0 {
			filter.Since = time.Now().Add(-since)
		}

		entries, err := st.ListReports(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No reports found.")
			return nil
		}

		formatReportsList(os.Stdout, entries)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the report of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rep, err := loadIndexedReport(ctx, st, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		if summary, _ := cmd.Flags().GetBool("summary"); summary {
			fmt.Fprint(os.Stdout, report.Summary(rep))
			return nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	},
}

// -- runs export --

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id> <file.xlsx>",
	Short: "Export a run's companies and decisions to a spreadsheet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rep, err := loadIndexedReport(ctx, st, args[0])
		if err != nil {
			return eris.Wrap(err, "runs export")
		}
		if err := report.ExportXLSX(rep, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported run %s to %s\n", truncateID(rep.RunID), args[1])
		return nil
	},
}

// -- runs publish --

var runsPublishCmd = &cobra.Command{
	Use:   "publish <run-id>",
	Short: "Upsert a run's accepted companies into Notion or Salesforce",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if to, _ := cmd.Flags().GetString("to"); to != "" {
			cfg.Publish.Target = to
		}
		if err := cfg.Validate("publish"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rep, err := loadIndexedReport(ctx, st, args[0])
		if err != nil {
			return eris.Wrap(err, "runs publish")
		}

		sink, err := initSink()
		if err != nil {
			return err
		}
		res, err := sink.Publish(ctx, rep)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Published run %s to %s: %d created, %d updated\n",
			truncateID(rep.RunID), cfg.Publish.Target, res.Created, res.Updated)
		return nil
	},
}

// loadIndexedReport resolves runID through the index and loads the report
// after checking it against the recorded checksum.
func loadIndexedReport(ctx context.Context, st store.Store, runID string) (*model.Report, error) {
	entry, err := st.GetReport(ctx, runID)
	if err != nil {
		return nil, err
	}

	ok, err := report.Verify(entry.Path, entry.Checksum)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, eris.Errorf("%s does not match its recorded checksum", entry.Path)
	}
	return report.Load(entry.Path)
}

func init() {
	runsListCmd.Flags().Duration("since", 0, "only list reports newer than this (e.g. 24h, 168h)")
	runsListCmd.Flags().Int("limit", 50, "max number of reports to display")

	runsPublishCmd.Flags().String("to", "", "publish target: notion or salesforce (default from config)")

	runsShowCmd.Flags().Bool("summary", false, "print a human-readable summary instead of JSON")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsPublishCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatReportsList writes a tabular list of report entries to w.
func formatReportsList(out io.Writer, entries []store.ReportEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tCREATED\tACCEPTED\tREJECTED\tMODE\tPATH")
	_, _ = fmt.Fprintln(w, "---\t-------\t--------\t--------\t----\t----")

	for _, e := range entries {
		mode := "full"
		if e.DryRun {
			mode = "dry"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			truncateID(e.RunID),
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.Accepted,
			e.Rejected,
			mode,
			e.Path,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
