package domain

const (
	// Extendedness thresholds used by the derived views, presets and builtin processors
	POINT_SOURCE_MAX_EXTENDEDNESS    = 0.3
	EXTENDED_SOURCE_MIN_EXTENDEDNESS = 0.7

	// DEFAULT_RECENT_DAYS is the trailing window of the recent-alerts view
	DEFAULT_RECENT_DAYS = 7

	// DEFAULT_WINDOW_DAYS is the processing window used when a processor does not declare one
	DEFAULT_WINDOW_DAYS = 15
)
