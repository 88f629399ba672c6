// Package builtin provides the processors shipped with the alert indexer
package builtin

import (
	"fmt"
	"math"

	"github.com/feral-file/ff-alert-indexer/internal/processing"
)

const version = "1.0.0"

// Defaults returns the runner configuration of every builtin processor by name
func Defaults() map[string]processing.ProcessorConfig {
	return map[string]processing.ProcessorConfig{
		ExampleName:              {WindowDays: 7, MinAlerts: 1},
		MinimoonCandidatesName:   {WindowDays: 15, MinAlerts: 1},
		SourceSummaryName:        {WindowDays: 30, MinAlerts: 1},
		ReassociationTrackerName: {WindowDays: 30},
	}
}

// Register adds every builtin processor to reg. Non-zero fields of overrides
// replace the defaults of the processor with the same name.
func Register(reg *processing.Registry, overrides map[string]processing.ProcessorConfig) error {
	configs := Defaults()
	for name, o := range overrides {
		cfg, ok := configs[name]
		if !ok {
			continue
		}
		if o.WindowDays > 0 {
			cfg.WindowDays = o.WindowDays
		}
		if o.MinAlerts > 0 {
			cfg.MinAlerts = o.MinAlerts
		}
		if o.Params != nil {
			cfg.Params = o.Params
		}
		configs[name] = cfg
	}

	minimoon, err := NewMinimoonCandidates(configs[MinimoonCandidatesName].Params)
	if err != nil {
		return err
	}
	summary, err := NewSourceSummary(configs[SourceSummaryName].Params)
	if err != nil {
		return err
	}

	processors := []processing.Processor{
		NewExample(),
		minimoon,
		summary,
		NewReassociationTracker(),
	}
	for _, p := range processors {
		if err := reg.Register(p, configs[p.Name()]); err != nil {
			return fmt.Errorf("failed to register builtin processor: %w", err)
		}
	}
	return nil
}

// floatParam reads a numeric parameter, falling back to def when absent
func floatParam(params map[string]any, key string, def float64) (float64, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("parameter %s: expected a number, got %T", key, v)
	}
}

// stats holds the running mean and sample standard deviation of a series
type stats struct {
	n          int
	mean, m2   float64
	minV, maxV float64
}

func (s *stats) add(v float64) {
	if s.n == 0 {
		s.minV, s.maxV = v, v
	}
	s.n++
	delta := v - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (v - s.mean)
	s.minV = min(s.minV, v)
	s.maxV = max(s.maxV, v)
}

func (s *stats) std() float64 {
	if s.n < 2 {
		return 0
	}
	return math.Sqrt(s.m2 / float64(s.n-1))
}
