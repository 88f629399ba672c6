package filter

import (
	"fmt"
	"slices"
	"time"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/types"
)

const defaultHighSNR = 50.0

// PresetOptions parameterize presets. Each preset reads only the fields it needs.
type PresetOptions struct {
	Limit int
	// Now anchors relative time windows; the current time when zero
	Now time.Time

	MinSNR float64
	Days   float64
	Band   domain.FilterBand

	RAMin, RAMax, DecMin, DecMax *float64
	MJDStart, MJDEnd             *float64
	ExtMin, ExtMax               *float64
}

// Preset is a named, parameterized filter for a common science case
type Preset struct {
	Name        string
	Description string
	build       func(PresetOptions) (Config, error)
}

// Build returns the config of the preset for the given options
func (p Preset) Build(opts PresetOptions) (Config, error) {
	cfg, err := p.build(opts)
	if err != nil {
		return Config{}, fmt.Errorf("preset %s: %w", p.Name, err)
	}
	if cfg.Name == "" {
		cfg.Name = p.Name
	}
	if cfg.Description == "" {
		cfg.Description = p.Description
	}
	cfg.Limit = opts.Limit
	return cfg, nil
}

var presets = []Preset{
	{
		Name:        "point_sources",
		Description: "Point-like sources with low extendedness (stars)",
		build: func(PresetOptions) (Config, error) {
			return Config{
				Conditions: []Condition{
					{Column: "extendedness_median", Operator: OpIsNotNull},
					{Column: "extendedness_median", Operator: OpLt, Value: domain.POINT_SOURCE_MAX_EXTENDEDNESS},
				},
				OrderBy:   "snr",
				OrderDesc: true,
			}, nil
		},
	},
	{
		Name:        "extended_sources",
		Description: "Extended sources with high extendedness (galaxies)",
		build: func(PresetOptions) (Config, error) {
			return Config{
				Conditions: []Condition{
					{Column: "extendedness_median", Operator: OpGt, Value: domain.EXTENDED_SOURCE_MIN_EXTENDEDNESS},
				},
				OrderBy:   "extendedness_median",
				OrderDesc: true,
			}, nil
		},
	},
	{
		Name:        "minimoon_candidates",
		Description: "Associated sources with intermediate extendedness",
		build: func(PresetOptions) (Config, error) {
			return Config{
				ExtendednessMin:    types.Float64Ptr(domain.POINT_SOURCE_MAX_EXTENDEDNESS),
				ExtendednessMax:    types.Float64Ptr(domain.EXTENDED_SOURCE_MIN_EXTENDEDNESS),
				RequireAssociation: true,
				OrderBy:            "mjd",
				OrderDesc:          true,
			}, nil
		},
	},
	{
		Name:        "sso_alerts",
		Description: "All alerts with solar system object associations",
		build: func(PresetOptions) (Config, error) {
			return Config{RequireAssociation: true, OrderBy: "mjd", OrderDesc: true}, nil
		},
	},
	{
		Name:        "non_sso",
		Description: "Alerts without solar system object associations",
		build: func(PresetOptions) (Config, error) {
			return Config{ExcludeAssociation: true, OrderBy: "mjd", OrderDesc: true}, nil
		},
	},
	{
		Name:        "reassociations",
		Description: "Alerts flagged as reassociations",
		build: func(PresetOptions) (Config, error) {
			return Config{ReassociationsOnly: true, OrderBy: "mjd", OrderDesc: true}, nil
		},
	},
	{
		Name:        "high_snr",
		Description: "High signal-to-noise detections",
		build: func(opts PresetOptions) (Config, error) {
			minSNR := opts.MinSNR
			if minSNR <= 0 {
				minSNR = defaultHighSNR
			}
			return Config{
				Description: fmt.Sprintf("High SNR detections (>= %g)", minSNR),
				SNRMin:      types.Float64Ptr(minSNR),
				OrderBy:     "snr",
				OrderDesc:   true,
			}, nil
		},
	},
	{
		Name:        "recent",
		Description: "Alerts observed in the last days",
		build: func(opts PresetOptions) (Config, error) {
			days := opts.Days
			if days <= 0 {
				days = domain.DEFAULT_RECENT_DAYS
			}
			now := opts.Now
			if now.IsZero() {
				now = time.Now().UTC()
			}
			return Config{
				Description: fmt.Sprintf("Alerts from the last %g days", days),
				MJDMin:      types.Float64Ptr(domain.DaysAgoMJD(now, days)),
				OrderBy:     "mjd",
				OrderDesc:   true,
			}, nil
		},
	},
	{
		Name:        "by_band",
		Description: "Alerts observed in one photometric band",
		build: func(opts PresetOptions) (Config, error) {
			band := domain.NormalizeFilterBand(string(opts.Band))
			if band == "" {
				return Config{}, invalid("a band is required")
			}
			return Config{
				Description: fmt.Sprintf("Alerts observed in %s band", band),
				Bands:       []domain.FilterBand{band},
				OrderBy:     "mjd",
				OrderDesc:   true,
			}, nil
		},
	},
	{
		Name:        "sky_region",
		Description: "Alerts inside an ra/dec box",
		build: func(opts PresetOptions) (Config, error) {
			if opts.RAMin == nil || opts.RAMax == nil || opts.DecMin == nil || opts.DecMax == nil {
				return Config{}, invalid("ra and dec bounds are required")
			}
			return Config{
				Description: fmt.Sprintf("RA [%.2f, %.2f], Dec [%.2f, %.2f]", *opts.RAMin, *opts.RAMax, *opts.DecMin, *opts.DecMax),
				RAMin:       opts.RAMin,
				RAMax:       opts.RAMax,
				DecMin:      opts.DecMin,
				DecMax:      opts.DecMax,
				OrderBy:     "mjd",
				OrderDesc:   true,
			}, nil
		},
	},
	{
		Name:        "time_window",
		Description: "Alerts inside an MJD window",
		build: func(opts PresetOptions) (Config, error) {
			if opts.MJDStart == nil || opts.MJDEnd == nil {
				return Config{}, invalid("start and end MJD are required")
			}
			return Config{
				Description: fmt.Sprintf("MJD [%.2f, %.2f]", *opts.MJDStart, *opts.MJDEnd),
				MJDMin:      opts.MJDStart,
				MJDMax:      opts.MJDEnd,
				OrderBy:     "mjd",
			}, nil
		},
	},
	{
		Name:        "extendedness_range",
		Description: "Alerts inside an extendedness range",
		build: func(opts PresetOptions) (Config, error) {
			if opts.ExtMin == nil || opts.ExtMax == nil {
				return Config{}, invalid("extendedness bounds are required")
			}
			return Config{
				Description:     fmt.Sprintf("Extendedness [%.2f, %.2f]", *opts.ExtMin, *opts.ExtMax),
				ExtendednessMin: opts.ExtMin,
				ExtendednessMax: opts.ExtMax,
				OrderBy:         "extendedness_median",
			}, nil
		},
	},
}

// Presets lists the available presets ordered by name
func Presets() []Preset {
	out := slices.Clone(presets)
	slices.SortFunc(out, func(a, b Preset) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// PresetConfig builds the named preset; an unknown name fails with domain.ErrNotFound
func PresetConfig(name string, opts PresetOptions) (Config, error) {
	for _, p := range presets {
		if p.Name == name {
			return p.Build(opts)
		}
	}
	return Config{}, fmt.Errorf("%w: preset %s", domain.ErrNotFound, name)
}
