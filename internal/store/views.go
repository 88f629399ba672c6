package store

import (
	"fmt"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
)

// view is one derived read-only relation created by Initialize
type view struct {
	name  string
	query string
}

// currentMJDExpr returns the dialect expression for the current time as an MJD
func currentMJDExpr(dialect string) string {
	if dialect == dialectPostgres {
		return "(EXTRACT(EPOCH FROM NOW()) / 86400.0 + 40587.0)"
	}
	return "(julianday('now') - 2400000.5)"
}

func dayExpr(dialect string, column string) string {
	if dialect == dialectPostgres {
		return fmt.Sprintf("CAST(%s AS DATE)", column)
	}
	return fmt.Sprintf("substr(%s, 1, 10)", column)
}

// views returns the view definitions for a dialect
func views(dialect string) []view {
	nowMJD := currentMJDExpr(dialect)

	return []view{
		{
			name: "v_point_sources",
			query: fmt.Sprintf(`SELECT * FROM alerts_raw
WHERE extendedness_median IS NOT NULL AND extendedness_median < %g`, domain.POINT_SOURCE_MAX_EXTENDEDNESS),
		},
		{
			name: "v_extended_sources",
			query: fmt.Sprintf(`SELECT * FROM alerts_raw
WHERE extendedness_median IS NOT NULL AND extendedness_median > %g`, domain.EXTENDED_SOURCE_MIN_EXTENDEDNESS),
		},
		{
			name: "v_minimoon_candidates",
			query: fmt.Sprintf(`SELECT * FROM alerts_raw
WHERE has_ss_source = TRUE
  AND extendedness_median BETWEEN %g AND %g`, domain.POINT_SOURCE_MAX_EXTENDEDNESS, domain.EXTENDED_SOURCE_MIN_EXTENDEDNESS),
		},
		{
			name:  "v_sso_alerts",
			query: `SELECT * FROM alerts_raw WHERE has_ss_source = TRUE`,
		},
		{
			name:  "v_reassociations",
			query: `SELECT * FROM alerts_raw WHERE is_reassociation = TRUE`,
		},
		{
			name:  "v_recent_alerts",
			query: fmt.Sprintf(`SELECT * FROM alerts_raw WHERE mjd >= %s - %d`, nowMJD, domain.DEFAULT_RECENT_DAYS),
		},
		{
			name:  "v_today_alerts",
			query: fmt.Sprintf(`SELECT * FROM alerts_raw WHERE mjd >= %s - 1`, nowMJD),
		},
		{
			name: "v_processing_summary",
			query: `SELECT processor_name,
  COUNT(*) AS result_count,
  SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END) AS success_count,
  SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) AS failed_count,
  SUM(CASE WHEN status = 'skipped' THEN 1 ELSE 0 END) AS skipped_count,
  MAX(processed_at) AS last_processed_at
FROM processing_results
GROUP BY processor_name`,
		},
		{
			name: "v_ingestion_daily",
			query: fmt.Sprintf(`SELECT %s AS day,
  COUNT(*) AS run_count,
  SUM(alerts_fetched) AS alerts_fetched,
  SUM(alerts_ingested) AS alerts_ingested,
  SUM(alerts_rejected) AS alerts_rejected,
  SUM(reassociations_detected) AS reassociations_detected
FROM ingestion_runs
GROUP BY %s`, dayExpr(dialect, "started_at"), dayExpr(dialect, "started_at")),
		},
		{
			name: "v_source_stats",
			query: `SELECT s.dia_source_id,
  s.observation_count AS detection_count,
  s.first_seen_mjd AS first_mjd,
  s.last_seen_mjd AS last_mjd,
  s.last_seen_mjd - s.first_seen_mjd AS arc_days,
  s.ss_object_id,
  a.has_ss_source,
  a.is_reassociation,
  a.extendedness_median
FROM association_states s
LEFT JOIN alerts_raw a ON a.dia_source_id = s.dia_source_id`,
		},
	}
}

// ViewNames lists the views created by Initialize
func ViewNames() []string {
	vs := views(dialectSQLite)
	names := make([]string, 0, len(vs))
	for _, v := range vs {
		names = append(names, v.name)
	}
	return names
}
