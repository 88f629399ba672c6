package store

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/store/schema"
	"github.com/feral-file/ff-alert-indexer/internal/types"
)

// writeKeywords may not appear anywhere in a read-only statement outside string literals.
// A leading SELECT or WITH is not enough on its own: PostgreSQL accepts data-modifying CTEs.
var writeKeywords = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "UPSERT": {}, "MERGE": {},
	"DROP": {}, "ALTER": {}, "CREATE": {}, "TRUNCATE": {},
	"ATTACH": {}, "DETACH": {}, "PRAGMA": {}, "VACUUM": {}, "REINDEX": {},
	"GRANT": {}, "REVOKE": {}, "COPY": {}, "CALL": {}, "EXECUTE": {},
}

// ValidateReadOnlyQuery checks that sql is a single SELECT or WITH statement without
// write keywords, and returns it with any trailing semicolon removed
func ValidateReadOnlyQuery(sql string) (string, error) {
	normalized := stripTrailingSemicolon(strings.TrimSpace(sql))
	if normalized == "" {
		return "", fmt.Errorf("%w: empty statement", domain.ErrReadOnlyQuery)
	}

	words, multiple := scanStatement(normalized)
	if multiple {
		return "", fmt.Errorf("%w: multiple statements", domain.ErrReadOnlyQuery)
	}
	if len(words) == 0 {
		return "", fmt.Errorf("%w: empty statement", domain.ErrReadOnlyQuery)
	}

	first := words[0]
	if first != "SELECT" && first != "WITH" {
		return "", fmt.Errorf("%w: statement starts with %s", domain.ErrReadOnlyQuery, first)
	}
	for _, word := range words {
		if _, ok := writeKeywords[word]; ok {
			return "", fmt.Errorf("%w: statement contains %s", domain.ErrReadOnlyQuery, word)
		}
	}

	return normalized, nil
}

// checkQueryArgs rejects string arguments that libinjection flags as SQL injection
func checkQueryArgs(args []any) error {
	for i, arg := range args {
		s, ok := arg.(string)
		if !ok {
			continue
		}
		if isSQLi, fingerprint := libinjection.IsSQLi(s); isSQLi {
			return fmt.Errorf("%w: argument %d matches injection pattern %s", domain.ErrReadOnlyQuery, i+1, fingerprint)
		}
	}
	return nil
}

// scanStatement returns the upper-cased words outside string literals and comments,
// and whether a semicolon separates more than one statement
func scanStatement(sql string) ([]string, bool) {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
	)

	var words []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			words = append(words, strings.ToUpper(word.String()))
			word.Reset()
		}
	}

	runes := []rune(sql)
	state := stateNormal
	for i := 0; i < len(runes); i++ {
		char := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case char == ';':
				return words, true
			case char == '\'':
				flush()
				state = stateSingleQuote
			case char == '"':
				flush()
				state = stateDoubleQuote
			case char == '-' && next == '-':
				flush()
				state = stateLineComment
				i++
			case char == '/' && next == '*':
				flush()
				state = stateBlockComment
				i++
			case unicode.IsLetter(char) || unicode.IsDigit(char) || char == '_':
				word.WriteRune(char)
			default:
				flush()
			}
		case stateSingleQuote:
			// a doubled quote exits and immediately re-enters the literal
			if char == '\'' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if char == '\n' {
				state = stateNormal
			}
		case stateBlockComment:
			if char == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}
	flush()

	return words, false
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace around it
func stripTrailingSemicolon(sql string) string {
	sql = strings.TrimRight(sql, " \t\n\r")
	if strings.HasSuffix(sql, ";") {
		sql = strings.TrimRight(strings.TrimSuffix(sql, ";"), " \t\n\r")
	}
	return sql
}

// Query runs a single read-only statement on the read connection
func (s *sqlStore) Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	started := time.Now()
	rows, err := s.query(ctx, sql, args...)
	s.observe("query", started, err)
	return rows, err
}

func (s *sqlStore) query(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	normalized, err := ValidateReadOnlyQuery(sql)
	if err != nil {
		return nil, err
	}
	if err := checkQueryArgs(args); err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := s.reader().WithContext(ctx).Raw(normalized, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to run query: %w", classifyError(err))
	}

	for _, row := range rows {
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
	}
	if rows == nil {
		rows = []map[string]any{}
	}

	return rows, nil
}

// QueryAlerts runs a single read-only statement over alerts_raw and decodes the rows into alerts
func (s *sqlStore) QueryAlerts(ctx context.Context, sql string, args ...any) ([]domain.Alert, error) {
	started := time.Now()
	alerts, err := s.queryAlerts(ctx, sql, args...)
	s.observe("query_alerts", started, err)
	return alerts, err
}

func (s *sqlStore) queryAlerts(ctx context.Context, sql string, args ...any) ([]domain.Alert, error) {
	normalized, err := ValidateReadOnlyQuery(sql)
	if err != nil {
		return nil, err
	}
	if err := checkQueryArgs(args); err != nil {
		return nil, err
	}

	var rows []schema.Alert
	if err := s.reader().WithContext(ctx).Raw(normalized, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", classifyError(err))
	}

	alerts := make([]domain.Alert, 0, len(rows))
	for i := range rows {
		a, err := types.AlertFromSchema(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("failed to decode alert %d: %w", rows[i].AlertID, err)
		}
		alerts = append(alerts, *a)
	}

	return alerts, nil
}
