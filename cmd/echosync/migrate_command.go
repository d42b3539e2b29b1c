package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/spf13/cobra"

	"echosync/internal/config"
	"echosync/internal/migrate"
	"echosync/internal/store"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var removeAfterUpload bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Upload locally stored cases to the remote backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				out := cmd.OutOrStdout()

				if dryRun {
					list, err := st.List(cmd.Context())
					if err != nil {
						return err
					}
					if len(list) == 0 {
						fmt.Fprintln(out, "Nothing to migrate.")
						return nil
					}
					fmt.Fprintf(out, "Would migrate %d cases:\n", len(list))
					for _, record := range list {
						fmt.Fprintf(out, "  %s (%s)\n", record.CaseID, record.MedicalID)
					}
					return nil
				}

				if !cfg.Remote.Enabled {
					return fmt.Errorf("remote backend not configured; set remote.enabled and remote.base_url")
				}
				client, err := ctx.remoteClient()
				if err != nil {
					return err
				}

				var tracker *progress.Tracker
				var pw progress.Writer
				if isTerminal(out) {
					pw = progress.NewWriter()
					pw.SetOutputWriter(out)
					pw.SetUpdateFrequency(100 * time.Millisecond)
					tracker = &progress.Tracker{Message: "Migrating cases"}
					pw.AppendTracker(tracker)
					go pw.Render()
				}

				onProgress := func(p migrate.Progress) {
					if tracker != nil {
						tracker.UpdateTotal(int64(p.Total))
						tracker.SetValue(int64(p.Index))
						return
					}
					if p.Err != "" {
						fmt.Fprintf(out, "[%d/%d] %s failed: %s\n", p.Index, p.Total, p.LocalCaseID, p.Err)
						return
					}
					fmt.Fprintf(out, "[%d/%d] %s uploaded as %s\n", p.Index, p.Total, p.LocalCaseID, p.Remote.CaseID)
				}

				engine := migrate.New(st, nil)
				report, err := engine.Run(cmd.Context(), client, migrate.Options{RemoveAfterUpload: removeAfterUpload}, onProgress)
				if pw != nil {
					tracker.MarkAsDone()
					pw.Stop()
				}
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(report.Uploaded)+len(report.Failed))
				for _, uploaded := range report.Uploaded {
					rows = append(rows, []string{uploaded.LocalCaseID, "uploaded", uploaded.Remote.CaseID})
				}
				for _, failed := range report.Failed {
					rows = append(rows, []string{failed.LocalCaseID, "failed", failed.Err})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "Nothing to migrate.")
					return nil
				}
				fmt.Fprintln(out, renderTable([]string{"Local Case", "Status", "Detail"}, rows, nil))
				fmt.Fprintf(out, "Uploaded %s, failed %s\n",
					strconv.Itoa(len(report.Uploaded)), strconv.Itoa(len(report.Failed)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&removeAfterUpload, "remove-after-upload", false, "Delete local cases after a successful upload")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be migrated without uploading")
	return cmd
}
