package filter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// alertsTable is the table compiled filters select from
const alertsTable = "alerts_raw"

// Query is a compiled filter. SQL selects whole alert rows with ordering and
// limit applied; Where and WhereArgs are the bare predicate for reuse in other
// statements. Every value is a bound parameter.
type Query struct {
	SQL       string
	Args      []any
	Where     string
	WhereArgs []any
}

// Compile validates cfg and builds its parameterized query. Only present
// predicates are emitted, conjoined with AND.
func Compile(cfg Config) (Query, error) {
	if err := cfg.Validate(); err != nil {
		return Query{}, err
	}

	var clauses []string
	var args []any
	add := func(clause string, values ...any) {
		clauses = append(clauses, clause)
		args = append(args, values...)
	}

	if cfg.ExtendednessMin != nil {
		add("extendedness_median >= ?", *cfg.ExtendednessMin)
	}
	if cfg.ExtendednessMax != nil {
		add("extendedness_median <= ?", *cfg.ExtendednessMax)
	}
	if cfg.SNRMin != nil {
		add("snr >= ?", *cfg.SNRMin)
	}
	if cfg.SNRMax != nil {
		add("snr <= ?", *cfg.SNRMax)
	}
	if cfg.RequireAssociation {
		add("has_ss_source = ?", true)
	}
	if cfg.ExcludeAssociation {
		add("has_ss_source = ?", false)
	}
	if cfg.ReassociationsOnly {
		add("is_reassociation = ?", true)
	}
	if len(cfg.Bands) > 0 {
		values := make([]any, len(cfg.Bands))
		for i, b := range cfg.Bands {
			values[i] = string(b)
		}
		add(fmt.Sprintf("filter_name IN (%s)", placeholders(len(values))), values...)
	}
	if cfg.MJDMin != nil {
		add("mjd >= ?", *cfg.MJDMin)
	}
	if cfg.MJDMax != nil {
		add("mjd <= ?", *cfg.MJDMax)
	}

	switch {
	case cfg.RAMin != nil && cfg.RAMax != nil && *cfg.RAMin > *cfg.RAMax:
		add("(ra >= ? OR ra <= ?)", *cfg.RAMin, *cfg.RAMax)
	default:
		if cfg.RAMin != nil {
			add("ra >= ?", *cfg.RAMin)
		}
		if cfg.RAMax != nil {
			add("ra <= ?", *cfg.RAMax)
		}
	}
	if cfg.DecMin != nil {
		add("dec >= ?", *cfg.DecMin)
	}
	if cfg.DecMax != nil {
		add("dec <= ?", *cfg.DecMax)
	}

	for _, cond := range cfg.Conditions {
		clause, values := cond.compile()
		add(clause, values...)
	}

	q := Query{
		Where:     strings.Join(clauses, " AND "),
		WhereArgs: args,
	}

	var sql strings.Builder
	sql.WriteString("SELECT * FROM " + alertsTable)
	if q.Where != "" {
		sql.WriteString(" WHERE " + q.Where)
	}
	if cfg.OrderBy != "" {
		direction := "ASC"
		if cfg.OrderDesc {
			direction = "DESC"
		}
		sql.WriteString(fmt.Sprintf(" ORDER BY %s %s, id ASC", cfg.OrderBy, direction))
	} else {
		sql.WriteString(" ORDER BY id ASC")
	}

	q.Args = append([]any{}, args...)
	if cfg.Limit > 0 {
		sql.WriteString(" LIMIT ?")
		q.Args = append(q.Args, cfg.Limit)
	}
	q.SQL = sql.String()

	return q, nil
}

// CountSQL returns a statement counting the rows the query matches
func (q Query) CountSQL() string {
	if q.Where == "" {
		return "SELECT COUNT(*) AS count FROM " + alertsTable
	}
	return "SELECT COUNT(*) AS count FROM " + alertsTable + " WHERE " + q.Where
}

func (c Condition) compile() (string, []any) {
	switch c.Operator {
	case OpIsNull, OpIsNotNull:
		return fmt.Sprintf("%s %s", c.Column, c.Operator), nil
	case OpBetween:
		return fmt.Sprintf("%s BETWEEN ? AND ?", c.Column), []any{bindValue(c.Value), bindValue(c.Value2)}
	case OpIn, OpNotIn:
		list, _ := c.Value.([]any)
		values := make([]any, len(list))
		for i, v := range list {
			values[i] = bindValue(v)
		}
		return fmt.Sprintf("%s %s (%s)", c.Column, c.Operator, placeholders(len(values))), values
	default:
		return fmt.Sprintf("%s %s ?", c.Column, c.Operator), []any{bindValue(c.Value)}
	}
}

// bindValue turns decoded JSON numbers into native numbers so drivers bind them as such
func bindValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
