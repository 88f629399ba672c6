package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/api/shared/dto"
	"github.com/feral-file/ff-alert-indexer/internal/ingest"
	"github.com/feral-file/ff-alert-indexer/internal/source"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the stored alerts, runs and results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := svc.GetStats(cmd.Context())
			if err != nil {
				return err
			}

			resp := dto.NewStatsResponse(stats)
			return a.render(cmd.OutOrStdout(), resp, func() *Table {
				t := kv(
					"total_alerts", strconv.FormatInt(resp.TotalAlerts, 10),
					"unique_detections", strconv.FormatInt(resp.UniqueDetections, 10),
					"unique_objects", strconv.FormatInt(resp.UniqueObjects, 10),
					"associated_alerts", strconv.FormatInt(resp.AssociatedAlerts, 10),
					"reassociation_alerts", strconv.FormatInt(resp.ReassociationAlerts, 10),
					"tracked_states", strconv.FormatInt(resp.TrackedStates, 10),
					"min_mjd", formatFloat(resp.MinMJD),
					"max_mjd", formatFloat(resp.MaxMJD),
					"processing_results", strconv.FormatInt(resp.ProcessingResultsCount, 10),
					"saved_filters", strconv.FormatInt(resp.SavedFilters, 10),
				)
				for _, status := range slices.Sorted(maps.Keys(resp.RunsByStatus)) {
					t.AddRow("runs_"+status, strconv.FormatInt(resp.RunsByStatus[status], 10))
				}
				return t
			})
		},
	}
}

func newRunsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs [run_id]",
		Short: "List ingestion runs, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			if len(args) == 1 {
				run, err := svc.Store().GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				resp := dto.NewRunResponse(run)
				return a.render(cmd.OutOrStdout(), resp, func() *Table {
					return kv(
						"run_id", resp.RunID,
						"source", resp.SourceName,
						"status", resp.Status,
						"started_at", resp.StartedAt.Format(time.RFC3339),
						"fetched", strconv.FormatInt(resp.AlertsFetched, 10),
						"ingested", strconv.FormatInt(resp.AlertsIngested, 10),
						"rejected", strconv.FormatInt(resp.AlertsRejected, 10),
						"duplicates", strconv.FormatInt(resp.Duplicates, 10),
						"new_sources", strconv.FormatInt(resp.NewSources, 10),
						"reassociations", strconv.FormatInt(resp.ReassociationsDetected, 10),
						"batches", strconv.FormatInt(resp.BatchesWritten, 10),
						"error", formatString(resp.ErrorMessage),
					)
				})
			}

			runs, err := svc.Store().ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			resp := dto.NewRunResponses(runs)
			return a.render(cmd.OutOrStdout(), resp, func() *Table {
				t := NewTable("RUN ID", "SOURCE", "STATUS", "STARTED", "INGESTED", "REJECTED", "REASSOC")
				for _, r := range resp {
					t.AddRow(r.RunID, r.SourceName, r.Status, r.StartedAt.Format("2006-01-02 15:04"),
						strconv.FormatInt(r.AlertsIngested, 10),
						strconv.FormatInt(r.AlertsRejected, 10),
						strconv.FormatInt(r.ReassociationsDetected, 10))
				}
				return t
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}

func newAlertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "alert <dia_source_id>",
		Short: "Show the stored alert of a detection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detectionID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid dia_source_id %q: %w", args[0], err)
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			alert, err := svc.Store().GetAlert(cmd.Context(), detectionID)
			if err != nil {
				return err
			}

			resp := dto.NewAlertResponse(*alert)
			return a.render(cmd.OutOrStdout(), resp, func() *Table {
				return kv(
					"dia_source_id", strconv.FormatInt(resp.DetectionID, 10),
					"ra", strconv.FormatFloat(resp.RA, 'f', 6, 64),
					"dec", strconv.FormatFloat(resp.Dec, 'f', 6, 64),
					"mjd", strconv.FormatFloat(resp.MJD, 'f', 5, 64),
					"band", resp.FilterBand,
					"snr", formatFloat(resp.SNR),
					"extendedness_median", formatFloat(resp.ExtendednessMedian),
					"has_ss_source", strconv.FormatBool(resp.HasAssociatedObject),
					"ss_object_id", formatString(resp.AssociatedObjectID),
					"is_reassociation", strconv.FormatBool(resp.IsReassociation),
					"reassociation_reason", resp.ReassociationReason,
				)
			})
		},
	}
}

func newQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a read-only SQL query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := svc.Store().Query(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return a.render(cmd.OutOrStdout(), rows, func() *Table {
				if len(rows) == 0 {
					return NewTable("(no rows)")
				}
				columns := slices.Sorted(maps.Keys(rows[0]))
				t := NewTable(columns...)
				for _, row := range rows {
					cells := make([]string, len(columns))
					for i, c := range columns {
						cells[i] = fmt.Sprint(row[c])
					}
					t.AddRow(cells...)
				}
				return t
			})
		},
	}
}

func newIngestCmd(a *app) *cobra.Command {
	var (
		sourceType string
		mock       source.MockConfig
		file       source.FileConfig
		opts       ingest.Options
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest alerts from a mock or file source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sourceType == source.TypeFile && file.Path == "" {
				return errors.New("--path is required for the file source")
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			src, err := source.NewDefaultFactory().Create(source.Config{
				Type: sourceType,
				Mock: mock,
				File: file,
			}, source.Deps{
				FileSystem: adapter.NewFileSystem(),
				Cursors:    svc.Store(),
				Clock:      a.clock,
			})
			if err != nil {
				return err
			}
			defer func() { _ = src.Close() }()

			run, runErr := svc.Ingest(cmd.Context(), src, opts)
			if run != nil {
				resp := dto.NewRunResponse(run)
				if err := a.render(cmd.OutOrStdout(), resp, func() *Table {
					return kv(
						"run_id", resp.RunID,
						"status", resp.Status,
						"fetched", strconv.FormatInt(resp.AlertsFetched, 10),
						"ingested", strconv.FormatInt(resp.AlertsIngested, 10),
						"rejected", strconv.FormatInt(resp.AlertsRejected, 10),
						"new_sources", strconv.FormatInt(resp.NewSources, 10),
						"reassociations", strconv.FormatInt(resp.ReassociationsDetected, 10),
					)
				}); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&sourceType, "source", source.TypeMock, "Source type: mock or file")
	cmd.Flags().IntVar(&mock.Count, "count", 100, "Number of mock alerts")
	cmd.Flags().Int64Var(&mock.Seed, "seed", 0, "Mock seed, random when 0")
	cmd.Flags().Float64Var(&mock.SSOProbability, "sso-probability", 0.3, "Chance that a mock detection is associated")
	cmd.Flags().Float64Var(&mock.ReassociationProbability, "reassociation-probability", 0.05, "Chance that a mock revisit changes its association")
	cmd.Flags().IntVar(&mock.Revisits, "revisits", 1, "Sightings per mock detection")
	cmd.Flags().Float64Var(&mock.SpanDays, "span-days", 30, "Observation span of mock alerts")
	cmd.Flags().StringVar(&file.Path, "path", "", "File, directory or glob for the file source")
	cmd.Flags().StringVar(&file.Format, "format", "", "File format, detected from the extension when empty")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", ingest.DefaultBatchSize, "Alerts per store write")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of alerts, 0 for all")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Validate and classify without writing")
	return cmd
}
