package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/feral-file/ff-alert-indexer/internal/api/shared/dto"
	"github.com/feral-file/ff-alert-indexer/internal/processing"
)

func newProcessorsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "processors",
		Short: "List the registered processors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			resp := dto.NewProcessorResponses(reg.Info())
			return a.render(cmd.OutOrStdout(), resp, func() *Table {
				t := NewTable("NAME", "VERSION", "WINDOW", "MIN ALERTS", "DESCRIPTION")
				for _, p := range resp {
					t.AddRow(p.Name, p.Version, fmt.Sprintf("%dd", p.WindowDays), strconv.Itoa(p.MinAlerts), p.Description)
				}
				return t
			})
		},
	}
}

func newProcessCmd(a *app) *cobra.Command {
	var opts processing.RunOptions
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run a processing pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.WindowDays < 0 {
				return fmt.Errorf("--window-days must not be negative")
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			report, err := svc.Runner().Run(cmd.Context(), opts)
			if report != nil {
				resp := dto.NewPassResponse(report)
				if renderErr := a.render(cmd.OutOrStdout(), resp, func() *Table {
					t := NewTable("PROCESSOR", "STATUS", "RECORDS", "ELAPSED", "SUMMARY")
					for _, o := range resp.Outcomes {
						status, records, summary := "failed", "-", o.Error
						if o.Result != nil {
							status = o.Result.Status
							records = strconv.Itoa(o.Result.RecordCount)
							if o.Error == "" {
								summary = o.Result.Summary
							}
						}
						t.AddRow(o.Processor, status, records, (time.Duration(o.ElapsedMS) * time.Millisecond).String(), summary)
					}
					return t
				}); renderErr != nil {
					return renderErr
				}
			}
			if err != nil {
				return err
			}
			if report.FailureCount() > 0 {
				return fmt.Errorf("%d of %d processors failed", report.FailureCount(), len(report.Outcomes))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.WindowDays, "window-days", 0, "Window for every processor, each processor's own window when 0")
	cmd.Flags().StringSliceVar(&opts.Only, "only", nil, "Processors to run, all when empty")
	return cmd
}

func newResultsCmd(a *app) *cobra.Command {
	var (
		processor   string
		limit       int
		withRecords bool
	)
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List processing results, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			results, err := svc.Runner().History(cmd.Context(), processor, limit)
			if err != nil {
				return err
			}

			resp := dto.NewResultResponses(results, withRecords)
			return a.render(cmd.OutOrStdout(), resp, func() *Table {
				t := NewTable("PASS", "PROCESSOR", "STATUS", "RECORDS", "PROCESSED", "SUMMARY")
				for _, r := range resp {
					t.AddRow(r.PassID, r.ProcessorName, r.Status, strconv.Itoa(r.RecordCount),
						r.ProcessedAt.Format("2006-01-02 15:04"), r.Summary)
				}
				return t
			})
		},
	}
	cmd.Flags().StringVar(&processor, "processor", "", "Only results of this processor")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")
	cmd.Flags().BoolVar(&withRecords, "records", false, "Include result records (json and yaml output)")
	return cmd
}
