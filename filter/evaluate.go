package filter

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/poiesic/semblance/core"
	"github.com/spf13/cast"
)

// evaluateFilter applies one filter's comparison to a resolved field
// value. present reports whether the field path resolved at all.
//
// Ordering operators on non-numeric operands return
// core.ErrInvalidComparison: that is a filter-definition bug, not a
// normal miss, and callers must be able to tell the two apart.
func evaluateFilter(f core.AttributeFilter, value any, present bool) (bool, error) {
	switch f.Operator {
	case core.OpExists:
		return present && !isEmptyValue(value), nil
	case core.OpNotExists:
		return !present || isEmptyValue(value), nil
	}

	// Absent fields miss every remaining operator.
	if !present {
		return false, nil
	}

	switch f.Operator {
	case core.OpEquals:
		return equalsValue(value, f.Value), nil

	case core.OpNotEquals:
		return !equalsValue(value, f.Value), nil

	case core.OpContains:
		return containsValue(value, f.Value), nil

	case core.OpNotContains:
		return !containsValue(value, f.Value), nil

	case core.OpGreaterThan, core.OpLessThan, core.OpGreaterOrEqual, core.OpLessOrEqual:
		fv, ok := numericValue(value)
		if !ok {
			return false, fmt.Errorf("%w: field %q holds non-numeric value %T",
				core.ErrInvalidComparison, f.Field, value)
		}
		if f.Value.Kind != core.ValueNumber {
			return false, fmt.Errorf("%w: field %q compared against non-numeric operand",
				core.ErrInvalidComparison, f.Field)
		}
		switch f.Operator {
		case core.OpGreaterThan:
			return fv > f.Value.Num, nil
		case core.OpLessThan:
			return fv < f.Value.Num, nil
		case core.OpGreaterOrEqual:
			return fv >= f.Value.Num, nil
		default:
			return fv <= f.Value.Num, nil
		}

	case core.OpInRange:
		fv, ok := numericValue(value)
		if !ok {
			return false, fmt.Errorf("%w: field %q holds non-numeric value %T",
				core.ErrInvalidComparison, f.Field, value)
		}
		if f.Min.Kind != core.ValueNumber || f.Max.Kind != core.ValueNumber {
			return false, fmt.Errorf("%w: field %q range bounds must be numeric",
				core.ErrInvalidComparison, f.Field)
		}
		return fv >= f.Min.Num && fv <= f.Max.Num, nil

	case core.OpIsTrue:
		b, ok := value.(bool)
		return ok && b, nil

	case core.OpIsFalse:
		b, ok := value.(bool)
		return ok && !b, nil

	default:
		return false, core.ValidateFilterOperator(f.Operator)
	}
}

// equalsValue compares a resolved field value against an operand.
// Strings compare case-insensitively; numerics of any width compare as
// float64; everything else falls back to structural equality.
func equalsValue(value any, operand core.FilterValue) bool {
	switch operand.Kind {
	case core.ValueString:
		s, ok := value.(string)
		return ok && strings.EqualFold(s, operand.Str)
	case core.ValueNumber:
		fv, ok := numericValue(value)
		return ok && fv == operand.Num
	case core.ValueBool:
		b, ok := value.(bool)
		return ok && b == operand.Bool
	case core.ValueList:
		items, ok := asList(value)
		if !ok || len(items) != len(operand.List) {
			return false
		}
		for i, item := range items {
			if !equalsValue(item, operand.List[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// containsValue implements the Contains operator: case-insensitive
// substring for string fields, element membership for list fields,
// false for anything else.
func containsValue(value any, operand core.FilterValue) bool {
	if s, ok := value.(string); ok {
		if operand.Kind != core.ValueString {
			return false
		}
		return strings.Contains(strings.ToLower(s), strings.ToLower(operand.Str))
	}

	items, ok := asList(value)
	if !ok {
		return false
	}
	for _, item := range items {
		if equalsValue(item, operand) {
			return true
		}
	}
	return false
}

// numericValue widens any numeric field value to float64. Booleans and
// numeric-looking strings are deliberately excluded.
func numericValue(value any) (float64, bool) {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// asList normalizes slice-shaped field values to []any.
func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// isEmptyValue reports whether a value counts as absent for the
// Exists/NotExists operators: nil, empty string, or empty collection.
func isEmptyValue(value any) bool {
	if value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return v == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// ValuesEqual reports deep equality between two resolved values under
// filter comparison semantics: strings compare case-insensitively,
// numerics of any width compare as float64, and maps and lists compare
// element-wise with the same rules.
func ValuesEqual(a, b any) bool {
	if af, ok := numericValue(a); ok {
		bf, ok := numericValue(b)
		return ok && af == bf
	}

	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bs, ok := b.(string)
		return ok && strings.EqualFold(av, bs)
	case bool:
		bb, ok := b.(bool)
		return ok && av == bb
	}

	if am, ok := asMap(a); ok {
		bm, ok := asMap(b)
		if !ok || len(am) != len(bm) {
			return false
		}
		for k, avv := range am {
			bvv, ok := lookupKey(bm, k)
			if !ok || !ValuesEqual(avv, bvv) {
				return false
			}
		}
		return true
	}

	if al, ok := asList(a); ok {
		bl, ok := asList(b)
		if !ok || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !ValuesEqual(al[i], bl[i]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a, b)
}

// ValueOf converts a resolved field value into the tagged FilterValue
// variant, for matched-attribute transparency data.
func ValueOf(value any) core.FilterValue {
	if value == nil {
		return core.FilterValue{}
	}
	if f, ok := numericValue(value); ok {
		return core.NumberValue(f)
	}
	switch v := value.(type) {
	case string:
		return core.StringValue(v)
	case bool:
		return core.BoolValue(v)
	}
	if items, ok := asList(value); ok {
		out := make([]core.FilterValue, len(items))
		for i, item := range items {
			out[i] = ValueOf(item)
		}
		return core.ListValue(out...)
	}
	return core.StringValue(fmt.Sprintf("%v", value))
}
