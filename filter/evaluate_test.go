package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/semblance/core"
)

func TestEvaluateFilterEquals(t *testing.T) {
	t.Run("string equality is case-insensitive", func(t *testing.T) {
		f := core.AttributeFilter{Field: "city", Operator: core.OpEquals, Value: core.StringValue("Lisbon")}
		ok, err := evaluateFilter(f, "lisbon", true)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("numerics widen across types", func(t *testing.T) {
		f := core.AttributeFilter{Field: "age", Operator: core.OpEquals, Value: core.NumberValue(29)}
		for _, value := range []any{29, int64(29), float64(29), float32(29), uint8(29)} {
			ok, err := evaluateFilter(f, value, true)
			require.NoError(t, err)
			assert.True(t, ok, "value %T", value)
		}
	})

	t.Run("string never equals number", func(t *testing.T) {
		f := core.AttributeFilter{Field: "age", Operator: core.OpEquals, Value: core.NumberValue(29)}
		ok, err := evaluateFilter(f, "29", true)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("not equals", func(t *testing.T) {
		f := core.AttributeFilter{Field: "city", Operator: core.OpNotEquals, Value: core.StringValue("Lisbon")}
		ok, err := evaluateFilter(f, "Porto", true)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestEvaluateFilterContains(t *testing.T) {
	t.Run("substring is case-insensitive", func(t *testing.T) {
		f := core.AttributeFilter{Field: "bio", Operator: core.OpContains, Value: core.StringValue("HIKING")}
		ok, err := evaluateFilter(f, "Enjoys hiking and photography", true)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("list membership", func(t *testing.T) {
		f := core.AttributeFilter{Field: "hobbies", Operator: core.OpContains, Value: core.StringValue("hiking")}
		ok, err := evaluateFilter(f, []any{"Hiking", "chess"}, true)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("numeric list membership", func(t *testing.T) {
		f := core.AttributeFilter{Field: "scores", Operator: core.OpContains, Value: core.NumberValue(7)}
		ok, err := evaluateFilter(f, []any{float64(3), float64(7)}, true)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("not contains", func(t *testing.T) {
		f := core.AttributeFilter{Field: "hobbies", Operator: core.OpNotContains, Value: core.StringValue("golf")}
		ok, err := evaluateFilter(f, []string{"hiking"}, true)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("contains on a number is a plain miss", func(t *testing.T) {
		f := core.AttributeFilter{Field: "age", Operator: core.OpContains, Value: core.StringValue("2")}
		ok, err := evaluateFilter(f, float64(29), true)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestEvaluateFilterOrdering(t *testing.T) {
	t.Run("greater than", func(t *testing.T) {
		f := core.AttributeFilter{Field: "age", Operator: core.OpGreaterThan, Value: core.NumberValue(18)}
		ok, err := evaluateFilter(f, float64(29), true)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = evaluateFilter(f, 18, true)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("non-numeric field value is an error not a miss", func(t *testing.T) {
		f := core.AttributeFilter{Field: "age", Operator: core.OpLessThan, Value: core.NumberValue(30)}
		_, err := evaluateFilter(f, "twenty-nine", true)
		assert.ErrorIs(t, err, core.ErrInvalidComparison)
	})

	t.Run("non-numeric operand is an error", func(t *testing.T) {
		f := core.AttributeFilter{Field: "age", Operator: core.OpGreaterOrEqual, Value: core.StringValue("18")}
		_, err := evaluateFilter(f, float64(29), true)
		assert.ErrorIs(t, err, core.ErrInvalidComparison)
	})

	t.Run("in range is inclusive", func(t *testing.T) {
		f := core.AttributeFilter{
			Field:    "age",
			Operator: core.OpInRange,
			Min:      core.NumberValue(18),
			Max:      core.NumberValue(29),
		}
		for value, want := range map[float64]bool{17: false, 18: true, 25: true, 29: true, 30: false} {
			ok, err := evaluateFilter(f, value, true)
			require.NoError(t, err)
			assert.Equal(t, want, ok, "value %v", value)
		}
	})
}

func TestEvaluateFilterBooleans(t *testing.T) {
	t.Run("strict true", func(t *testing.T) {
		f := core.AttributeFilter{Field: "verified", Operator: core.OpIsTrue}
		ok, err := evaluateFilter(f, true, true)
		require.NoError(t, err)
		assert.True(t, ok)

		// No truthy coercion
		ok, err = evaluateFilter(f, 1, true)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = evaluateFilter(f, "true", true)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("strict false", func(t *testing.T) {
		f := core.AttributeFilter{Field: "verified", Operator: core.OpIsFalse}
		ok, err := evaluateFilter(f, false, true)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = evaluateFilter(f, 0, true)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestEvaluateFilterExistence(t *testing.T) {
	exists := core.AttributeFilter{Field: "x", Operator: core.OpExists}
	notExists := core.AttributeFilter{Field: "x", Operator: core.OpNotExists}

	cases := []struct {
		name    string
		value   any
		present bool
		want    bool
	}{
		{"absent field", nil, false, false},
		{"nil value", nil, true, false},
		{"empty string", "", true, false},
		{"empty list", []any{}, true, false},
		{"empty map", map[string]any{}, true, false},
		{"zero number exists", float64(0), true, true},
		{"false bool exists", false, true, true},
		{"non-empty string", "x", true, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := evaluateFilter(exists, tc.value, tc.present)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)

			ok, err = evaluateFilter(notExists, tc.value, tc.present)
			require.NoError(t, err)
			assert.Equal(t, !tc.want, ok)
		})
	}
}

func TestEvaluateFilterAbsentField(t *testing.T) {
	// Absent fields miss every operator except NotExists.
	for _, op := range []core.FilterOperator{
		core.OpEquals, core.OpNotEquals, core.OpContains, core.OpNotContains,
		core.OpGreaterThan, core.OpIsTrue,
	} {
		f := core.AttributeFilter{Field: "x", Operator: op, Value: core.NumberValue(1)}
		ok, err := evaluateFilter(f, nil, false)
		require.NoError(t, err, "op %d", op)
		assert.False(t, ok, "op %d", op)
	}
}

func TestValuesEqual(t *testing.T) {
	t.Run("nested maps compare element-wise", func(t *testing.T) {
		a := map[string]any{"city": "Lisbon", "geo": map[string]any{"lat": float64(38)}}
		b := map[string]any{"city": "lisbon", "geo": map[string]any{"lat": 38}}
		assert.True(t, ValuesEqual(a, b))
	})

	t.Run("lists compare in order", func(t *testing.T) {
		assert.True(t, ValuesEqual([]any{"A", float64(1)}, []any{"a", 1}))
		assert.False(t, ValuesEqual([]any{"a", "b"}, []any{"b", "a"}))
	})

	t.Run("mismatched shapes are unequal", func(t *testing.T) {
		assert.False(t, ValuesEqual(map[string]any{"a": 1}, []any{1}))
		assert.False(t, ValuesEqual("1", 1))
	})
}
