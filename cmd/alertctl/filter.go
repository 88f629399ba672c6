package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/feral-file/ff-alert-indexer/internal/api/shared/dto"
	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/filter"
)

func newFilterCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Apply, save and manage alert filters",
	}
	cmd.AddCommand(
		newFilterApplyCmd(a),
		newFilterSaveCmd(a),
		newFilterListCmd(a),
		newFilterShowCmd(a),
		newFilterDeleteCmd(a),
		newFilterPresetsCmd(a),
		newFilterImportCmd(a),
		newFilterExportCmd(a),
	)
	return cmd
}

// presetFlags binds the preset parameters to flags
type presetFlags struct {
	limit  int
	minSNR float64
	days   float64
	band   string
}

func (f *presetFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Maximum number of alerts, 0 for all")
	cmd.Flags().Float64Var(&f.minSNR, "min-snr", 0, "Minimum SNR for the high_snr preset")
	cmd.Flags().Float64Var(&f.days, "days", 0, "Look-back days for the recent preset")
	cmd.Flags().StringVar(&f.band, "band", "", "Band for the by_band preset")
}

func (f *presetFlags) options(a *app) filter.PresetOptions {
	return filter.PresetOptions{
		Limit:  f.limit,
		Now:    a.clock.Now(),
		MinSNR: f.minSNR,
		Days:   f.days,
		Band:   domain.FilterBand(strings.ToLower(f.band)),
	}
}

// readConfigFile decodes a filter config from a YAML or JSON file
func readConfigFile(path string) (filter.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return filter.Config{}, fmt.Errorf("failed to read filter file: %w", err)
	}
	var cfg filter.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return filter.Config{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

func newFilterApplyCmd(a *app) *cobra.Command {
	var (
		preset      string
		saved       string
		file        string
		materialize bool
		pf          presetFlags
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a preset, saved or file filter",
		Long: `Apply selects stored alerts with one of --preset, --name or --file.
Without any of them every alert is selected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sources := 0
			for _, s := range []string{preset, saved, file} {
				if s != "" {
					sources++
				}
			}
			if sources > 1 {
				return errors.New("--preset, --name and --file are mutually exclusive")
			}

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			var cfg filter.Config
			switch {
			case preset != "":
				cfg, err = filter.PresetConfig(preset, pf.options(a))
			case saved != "":
				cfg, err = svc.Filters().Load(ctx, saved)
			case file != "":
				cfg, err = readConfigFile(file)
			}
			if err != nil {
				return err
			}
			if pf.limit > 0 {
				cfg.Limit = pf.limit
			}

			if materialize {
				copied, err := svc.Filters().Materialize(ctx, cfg)
				if err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "Copied %d alerts to alerts_filtered (hash %s)", copied, cfg.Hash())
				return nil
			}

			alerts, err := svc.ApplyFilter(ctx, cfg)
			if err != nil {
				return err
			}
			resp := dto.NewAlertListResponse(cfg, alerts)
			return a.render(cmd.OutOrStdout(), resp, func() *Table {
				t := NewTable("DIA SOURCE", "MJD", "RA", "DEC", "BAND", "SNR", "EXT", "SSO", "REASSOC")
				for _, al := range resp.Alerts {
					t.AddRow(
						strconv.FormatInt(al.DetectionID, 10),
						strconv.FormatFloat(al.MJD, 'f', 5, 64),
						strconv.FormatFloat(al.RA, 'f', 4, 64),
						strconv.FormatFloat(al.Dec, 'f', 4, 64),
						al.FilterBand,
						formatFloat(al.SNR),
						formatFloat(al.ExtendednessMedian),
						formatString(al.AssociatedObjectID),
						strconv.FormatBool(al.IsReassociation),
					)
				}
				return t
			})
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "", "Preset name")
	cmd.Flags().StringVar(&saved, "name", "", "Saved filter name")
	cmd.Flags().StringVar(&file, "file", "", "YAML or JSON filter file")
	cmd.Flags().BoolVar(&materialize, "materialize", false, "Copy the matches into alerts_filtered instead of printing them")
	pf.bind(cmd)
	return cmd
}

func newFilterSaveCmd(a *app) *cobra.Command {
	var (
		preset      string
		file        string
		description string
		pf          presetFlags
	)
	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a preset or file filter under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (preset == "") == (file == "") {
				return errors.New("exactly one of --preset and --file is required")
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			var cfg filter.Config
			if preset != "" {
				cfg, err = filter.PresetConfig(preset, pf.options(a))
			} else {
				cfg, err = readConfigFile(file)
			}
			if err != nil {
				return err
			}
			cfg.Name = args[0]
			if description != "" {
				cfg.Description = description
			}

			if err := svc.Filters().Save(cmd.Context(), cfg); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Saved filter %s", cfg.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "", "Preset to save")
	cmd.Flags().StringVar(&file, "file", "", "YAML or JSON filter file to save")
	cmd.Flags().StringVar(&description, "description", "", "Description of the saved filter")
	pf.bind(cmd)
	return cmd
}

func newFilterListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved filters",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			configs, err := svc.Filters().List(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), configs, func() *Table {
				t := NewTable("NAME", "HASH", "DESCRIPTION")
				for _, c := range configs {
					t.AddRow(c.Name, c.Hash(), c.Description)
				}
				return t
			})
		},
	}
}

func newFilterShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a saved filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			cfg, err := svc.Filters().Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), cfg, func() *Table {
				t := kv("name", cfg.Name, "description", cfg.Description, "hash", cfg.Hash())
				for key, value := range cfg.ToMap() {
					if key != filter.KeyName && key != filter.KeyDescription {
						t.AddRow(key, value)
					}
				}
				return t
			})
		},
	}
}

func newFilterDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved filter",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			deleted, err := svc.Filters().Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("%w: filter %s", domain.ErrNotFound, args[0])
			}
			success(cmd.OutOrStdout(), "Deleted filter %s", args[0])
			return nil
		},
	}
}

func newFilterPresetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the filter presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp := dto.NewPresetResponses(filter.Presets())
			return a.render(cmd.OutOrStdout(), resp, func() *Table {
				t := NewTable("NAME", "DESCRIPTION")
				for _, p := range resp {
					t.AddRow(p.Name, p.Description)
				}
				return t
			})
		},
	}
}

func newFilterImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Save every filter of a YAML file",
		Long: `Import reads a YAML list of filter configs, or a single config, and
saves each one under its name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read filter file: %w", err)
			}
			var configs []filter.Config
			if err := yaml.Unmarshal(data, &configs); err != nil {
				var single filter.Config
				if err := yaml.Unmarshal(data, &single); err != nil {
					return fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, args[0], err)
				}
				configs = []filter.Config{single}
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			for _, cfg := range configs {
				if err := svc.Filters().Save(cmd.Context(), cfg); err != nil {
					return fmt.Errorf("filter %q: %w", cfg.Name, err)
				}
			}
			success(cmd.OutOrStdout(), "Imported %d filters", len(configs))
			return nil
		},
	}
}

func newFilterExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export [name...]",
		Short: "Write saved filters as YAML",
		Long:  "Export writes the named saved filters, or all of them, as a YAML list.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			var configs []filter.Config
			if len(args) == 0 {
				configs, err = svc.Filters().List(cmd.Context())
				if err != nil {
					return err
				}
			}
			for _, name := range args {
				cfg, err := svc.Filters().Load(cmd.Context(), name)
				if err != nil {
					return err
				}
				configs = append(configs, cfg)
			}

			data, err := yaml.Marshal(configs)
			if err != nil {
				return fmt.Errorf("failed to encode filters: %w", err)
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			info(cmd.OutOrStdout(), "Exported %d filters to %s", len(configs), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output file, stdout when empty")
	return cmd
}
