package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEntity(t *testing.T) {
	valid := func() *Entity {
		return &Entity{
			Kind:        "person",
			DisplayName: "Alice",
			Searchable:  true,
		}
	}

	t.Run("valid entity", func(t *testing.T) {
		assert.NoError(t, ValidateEntity(valid()))
	})

	t.Run("nil entity", func(t *testing.T) {
		assert.ErrorIs(t, ValidateEntity(nil), ErrInvalidEntity)
	})

	t.Run("empty kind", func(t *testing.T) {
		e := valid()
		e.Kind = ""
		err := ValidateEntity(e)
		assert.ErrorIs(t, err, ErrInvalidEntity)
		assert.ErrorIs(t, err, ErrEmptyKind)
	})

	t.Run("empty display name", func(t *testing.T) {
		e := valid()
		e.DisplayName = ""
		assert.ErrorIs(t, ValidateEntity(e), ErrEmptyDisplayName)
	})

	t.Run("invalid privacy level", func(t *testing.T) {
		e := valid()
		e.Privacy = map[string]PrivacyLevel{"age": PrivacyLevel(99)}
		assert.ErrorIs(t, ValidateEntity(e), ErrInvalidPrivacyLevel)
	})
}

func TestValidateEmbeddingRecord(t *testing.T) {
	t.Run("generated record with matching dimensions", func(t *testing.T) {
		r := &EmbeddingRecord{
			EntityId:   1,
			Vector:     []float32{0.1, 0.2},
			Dimensions: 2,
			Status:     EmbeddingGenerated,
		}
		assert.NoError(t, ValidateEmbeddingRecord(r))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		r := &EmbeddingRecord{
			EntityId:   1,
			Vector:     []float32{0.1, 0.2},
			Dimensions: 3,
			Status:     EmbeddingGenerated,
		}
		assert.ErrorIs(t, ValidateEmbeddingRecord(r), ErrDimensionMismatch)
	})

	t.Run("invalid status", func(t *testing.T) {
		r := &EmbeddingRecord{EntityId: 1, Status: EmbeddingStatus(0)}
		assert.ErrorIs(t, ValidateEmbeddingRecord(r), ErrInvalidEmbeddingStatus)
	})
}

func TestValidateFilterGroup(t *testing.T) {
	t.Run("empty group is valid", func(t *testing.T) {
		assert.NoError(t, ValidateFilterGroup(&FilterGroup{}))
	})

	t.Run("valid nested group", func(t *testing.T) {
		g := &FilterGroup{
			Operator: LogicAnd,
			Filters: []AttributeFilter{
				{Field: "kind", Operator: OpEquals, Value: StringValue("person")},
			},
			Groups: []FilterGroup{
				{
					Operator: LogicOr,
					Filters: []AttributeFilter{
						{Field: "age", Operator: OpGreaterThan, Value: NumberValue(18)},
						{Field: "verified", Operator: OpIsTrue},
					},
				},
			},
		}
		assert.NoError(t, ValidateFilterGroup(g))
	})

	t.Run("empty field", func(t *testing.T) {
		g := &FilterGroup{
			Operator: LogicAnd,
			Filters:  []AttributeFilter{{Operator: OpEquals, Value: StringValue("x")}},
		}
		assert.ErrorIs(t, ValidateFilterGroup(g), ErrEmptyFilterField)
	})

	t.Run("invalid operator in nested group", func(t *testing.T) {
		g := &FilterGroup{
			Operator: LogicAnd,
			Groups: []FilterGroup{
				{
					Operator: LogicOr,
					Filters:  []AttributeFilter{{Field: "age", Operator: FilterOperator(99)}},
				},
			},
		}
		require.Error(t, ValidateFilterGroup(g))
		assert.ErrorIs(t, ValidateFilterGroup(g), ErrInvalidFilterOperator)
	})

	t.Run("invalid logical operator", func(t *testing.T) {
		g := &FilterGroup{
			Operator: LogicalOperator(5),
			Filters:  []AttributeFilter{{Field: "kind", Operator: OpExists}},
		}
		assert.ErrorIs(t, ValidateFilterGroup(g), ErrInvalidLogicalOperator)
	})
}
