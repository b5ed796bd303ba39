package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/semblance/core"
)

// CanPushToStore reports whether the entire filter tree can be rendered
// as a store-side WHERE fragment. Contains and NotContains cannot be
// expressed against JSONB metadata without semantic drift, and derived
// fields do not exist in the store at all, so any such filter makes the
// whole tree application-only.
func (e *Engine) CanPushToStore(group *core.FilterGroup) bool {
	if group.Empty() {
		return true
	}
	for _, f := range group.Filters {
		if !e.canPushFilter(f) {
			return false
		}
	}
	for i := range group.Groups {
		if !e.CanPushToStore(&group.Groups[i]) {
			return false
		}
	}
	return true
}

func (e *Engine) canPushFilter(f core.AttributeFilter) bool {
	if e.derivedFields[canonicalField(f.Field)] {
		return false
	}
	switch f.Operator {
	case core.OpEquals, core.OpNotEquals:
		return f.Value.Kind == core.ValueString ||
			f.Value.Kind == core.ValueNumber ||
			f.Value.Kind == core.ValueBool
	case core.OpGreaterThan, core.OpLessThan, core.OpGreaterOrEqual, core.OpLessOrEqual:
		return f.Value.Kind == core.ValueNumber
	case core.OpInRange:
		return f.Min.Kind == core.ValueNumber && f.Max.Kind == core.ValueNumber
	case core.OpIsTrue, core.OpIsFalse, core.OpExists, core.OpNotExists:
		return true
	default:
		return false
	}
}

// BuildStoreQuery renders the filter tree as a Postgres WHERE fragment
// over the entities table's JSONB metadata column. Filters that cannot
// push down are omitted from the fragment.
//
// The fragment is a coarse pre-filter only. It never consults privacy,
// so callers must re-run EvaluateFilters over every loaded row before
// returning results to a requester.
func (e *Engine) BuildStoreQuery(group *core.FilterGroup) string {
	clause := e.buildGroupClause(group)
	if clause == "" {
		return "TRUE"
	}
	return clause
}

func (e *Engine) buildGroupClause(group *core.FilterGroup) string {
	if group.Empty() {
		return ""
	}

	var parts []string
	for _, f := range group.Filters {
		if !e.canPushFilter(f) {
			continue
		}
		if clause := buildFilterClause(f); clause != "" {
			parts = append(parts, clause)
		}
	}
	for i := range group.Groups {
		if clause := e.buildGroupClause(&group.Groups[i]); clause != "" {
			parts = append(parts, "("+clause+")")
		}
	}

	if len(parts) == 0 {
		return ""
	}

	joiner := " AND "
	if group.Operator == core.LogicOr {
		joiner = " OR "
	}
	return strings.Join(parts, joiner)
}

func buildFilterClause(f core.AttributeFilter) string {
	column := fieldExpr(f.Field)

	switch f.Operator {
	case core.OpEquals:
		return scalarClause(column, "=", f.Value)
	case core.OpNotEquals:
		return scalarClause(column, "<>", f.Value)
	case core.OpGreaterThan:
		return numericClause(column, ">", f.Value.Num)
	case core.OpLessThan:
		return numericClause(column, "<", f.Value.Num)
	case core.OpGreaterOrEqual:
		return numericClause(column, ">=", f.Value.Num)
	case core.OpLessOrEqual:
		return numericClause(column, "<=", f.Value.Num)
	case core.OpInRange:
		return fmt.Sprintf("(%s)::numeric BETWEEN %s AND %s",
			column, formatNumber(f.Min.Num), formatNumber(f.Max.Num))
	case core.OpIsTrue:
		return fmt.Sprintf("(%s)::boolean = TRUE", column)
	case core.OpIsFalse:
		return fmt.Sprintf("(%s)::boolean = FALSE", column)
	case core.OpExists:
		return fmt.Sprintf("(%s IS NOT NULL AND %s <> '')", column, column)
	case core.OpNotExists:
		return fmt.Sprintf("(%s IS NULL OR %s = '')", column, column)
	default:
		return ""
	}
}

func scalarClause(column, op string, v core.FilterValue) string {
	switch v.Kind {
	case core.ValueString:
		return fmt.Sprintf("LOWER(%s) %s LOWER(%s)", column, op, quoteLiteral(v.Str))
	case core.ValueNumber:
		return numericClause(column, op, v.Num)
	case core.ValueBool:
		return fmt.Sprintf("(%s)::boolean %s %s", column, op, strconv.FormatBool(v.Bool))
	default:
		return ""
	}
}

func numericClause(column, op string, n float64) string {
	return fmt.Sprintf("(%s)::numeric %s %s", column, op, formatNumber(n))
}

// fieldExpr maps a dotted field path onto a SQL expression. Built-in
// entity fields map to real columns; everything else is a JSONB path
// extraction returning text.
func fieldExpr(path string) string {
	switch canonicalField(path) {
	case "kind":
		return "kind"
	case "displayname":
		return "display_name"
	case "searchable":
		return "searchable::text"
	}
	segments := strings.Split(path, ".")
	for i, s := range segments {
		segments[i] = strings.ReplaceAll(s, "'", "''")
	}
	return fmt.Sprintf("metadata #>> '{%s}'", strings.Join(segments, ","))
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// quoteLiteral escapes a string for direct embedding in a SQL fragment.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func canonicalField(path string) string {
	return strings.ToLower(strings.TrimSpace(path))
}
