package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/store"
	"github.com/feral-file/ff-alert-indexer/internal/store/schema"
)

// Engine applies filter configs to the store and manages saved filters
type Engine struct {
	store store.Store
}

// NewEngine creates a filter engine over st
func NewEngine(st store.Store) *Engine {
	return &Engine{store: st}
}

// Apply compiles cfg and returns the matching alerts. An invalid config is
// rejected before any query runs.
func (e *Engine) Apply(ctx context.Context, cfg Config) ([]domain.Alert, error) {
	q, err := Compile(cfg)
	if err != nil {
		return nil, err
	}

	alerts, err := e.store.QueryAlerts(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to apply filter: %w", err)
	}

	logger.DebugCtx(ctx, "Filter applied",
		zap.String("filter", cfg.Name),
		zap.Int("results", len(alerts)))

	return alerts, nil
}

// Count returns the number of alerts cfg matches, ignoring its limit
func (e *Engine) Count(ctx context.Context, cfg Config) (int64, error) {
	q, err := Compile(cfg)
	if err != nil {
		return 0, err
	}

	rows, err := e.store.Query(ctx, q.CountSQL(), q.WhereArgs...)
	if err != nil {
		return 0, fmt.Errorf("failed to count filter matches: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	return toInt64(rows[0]["count"])
}

// Save stores cfg under its name, overwriting a filter with the same name
func (e *Engine) Save(ctx context.Context, cfg Config) error {
	if cfg.Name == "" {
		return invalid("a saved filter needs a name")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(cfg.ToMap())
	if err != nil {
		return fmt.Errorf("failed to encode filter: %w", err)
	}

	err = e.store.SaveFilter(ctx, &schema.SavedFilter{
		Name:        cfg.Name,
		Description: cfg.Description,
		Config:      data,
		ConfigHash:  cfg.Hash(),
	})
	if err != nil {
		return err
	}

	logger.InfoCtx(ctx, "Filter saved", zap.String("filter", cfg.Name))
	return nil
}

// Load retrieves a saved filter; an unknown name fails with domain.ErrNotFound
func (e *Engine) Load(ctx context.Context, name string) (Config, error) {
	saved, err := e.store.GetFilter(ctx, name)
	if err != nil {
		return Config{}, err
	}
	return fromSaved(saved)
}

// List returns every saved filter ordered by name
func (e *Engine) List(ctx context.Context) ([]Config, error) {
	saved, err := e.store.ListFilters(ctx)
	if err != nil {
		return nil, err
	}

	configs := make([]Config, 0, len(saved))
	for _, s := range saved {
		cfg, err := fromSaved(s)
		if err != nil {
			logger.WarnCtx(ctx, "Skipping unreadable saved filter", zap.String("filter", s.Name), zap.Error(err))
			continue
		}
		configs = append(configs, cfg)
	}

	return configs, nil
}

// Delete removes a saved filter, reporting whether it existed
func (e *Engine) Delete(ctx context.Context, name string) (bool, error) {
	return e.store.DeleteFilter(ctx, name)
}

// ApplySaved loads a saved filter and applies it
func (e *Engine) ApplySaved(ctx context.Context, name string) ([]domain.Alert, error) {
	cfg, err := e.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.Apply(ctx, cfg)
}

// Materialize copies every alert cfg matches into alerts_filtered, tagged with
// the config hash. Ordering and limit do not apply; rows already copied for the
// same hash are skipped.
func (e *Engine) Materialize(ctx context.Context, cfg Config) (int64, error) {
	q, err := Compile(cfg)
	if err != nil {
		return 0, err
	}

	hash := cfg.Hash()
	copied, err := e.store.CopyToFiltered(ctx, hash, cfg.Name, q.Where, q.WhereArgs...)
	if err != nil {
		return 0, fmt.Errorf("failed to materialize filter: %w", err)
	}

	logger.InfoCtx(ctx, "Filter materialized",
		zap.String("filter", cfg.Name),
		zap.String("config_hash", hash),
		zap.Int64("copied", copied))

	return copied, nil
}

func fromSaved(saved *schema.SavedFilter) (Config, error) {
	var flat map[string]string
	if err := json.Unmarshal(saved.Config, &flat); err != nil {
		return Config{}, fmt.Errorf("failed to decode saved filter %s: %w", saved.Name, err)
	}
	flat[KeyName] = saved.Name
	if saved.Description != "" {
		flat[KeyDescription] = saved.Description
	}

	cfg, err := ConfigFromMap(flat)
	if err != nil {
		return Config{}, fmt.Errorf("saved filter %s: %w", saved.Name, err)
	}
	return cfg, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
