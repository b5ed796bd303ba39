package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/semblance/core"
)

func TestCanPushToStore(t *testing.T) {
	engine := NewEngine()

	t.Run("equality and ordering push down", func(t *testing.T) {
		group := &core.FilterGroup{
			Operator: core.LogicAnd,
			Filters: []core.AttributeFilter{
				{Field: "city", Operator: core.OpEquals, Value: core.StringValue("Lisbon")},
				{Field: "salary", Operator: core.OpGreaterThan, Value: core.NumberValue(50000)},
				{Field: "remote", Operator: core.OpIsTrue},
				{Field: "skills", Operator: core.OpExists},
			},
		}
		assert.True(t, engine.CanPushToStore(group))
	})

	t.Run("contains never pushes down", func(t *testing.T) {
		group := &core.FilterGroup{
			Operator: core.LogicAnd,
			Filters: []core.AttributeFilter{
				{Field: "hobbies", Operator: core.OpContains, Value: core.StringValue("hiking")},
			},
		}
		assert.False(t, engine.CanPushToStore(group))
	})

	t.Run("derived fields never push down", func(t *testing.T) {
		group := &core.FilterGroup{
			Operator: core.LogicAnd,
			Filters: []core.AttributeFilter{
				{Field: "age", Operator: core.OpGreaterThan, Value: core.NumberValue(18)},
			},
		}
		assert.False(t, engine.CanPushToStore(group))
	})

	t.Run("one bad filter in a nested group taints the tree", func(t *testing.T) {
		group := &core.FilterGroup{
			Operator: core.LogicAnd,
			Filters: []core.AttributeFilter{
				{Field: "city", Operator: core.OpEquals, Value: core.StringValue("Lisbon")},
			},
			Groups: []core.FilterGroup{
				{
					Operator: core.LogicOr,
					Filters: []core.AttributeFilter{
						{Field: "bio", Operator: core.OpNotContains, Value: core.StringValue("golf")},
					},
				},
			},
		}
		assert.False(t, engine.CanPushToStore(group))
	})

	t.Run("custom derived fields", func(t *testing.T) {
		engine := NewEngine(WithDerivedFields("tenure"))
		group := &core.FilterGroup{
			Operator: core.LogicAnd,
			Filters: []core.AttributeFilter{
				{Field: "age", Operator: core.OpGreaterThan, Value: core.NumberValue(18)},
			},
		}
		assert.True(t, engine.CanPushToStore(group))

		group.Filters[0].Field = "tenure"
		assert.False(t, engine.CanPushToStore(group))
	})

	t.Run("empty group pushes trivially", func(t *testing.T) {
		assert.True(t, engine.CanPushToStore(&core.FilterGroup{}))
	})
}

func TestBuildStoreQuery(t *testing.T) {
	engine := NewEngine()

	t.Run("metadata paths extract from jsonb", func(t *testing.T) {
		group := &core.FilterGroup{
			Operator: core.LogicAnd,
			Filters: []core.AttributeFilter{
				{Field: "address.city", Operator: core.OpEquals, Value: core.StringValue("Lisbon")},
			},
		}
		assert.Equal(t,
			`LOWER(metadata #>> '{address,city}') = LOWER('Lisbon')`,
			engine.BuildStoreQuery(group))
	})

	t.Run("builtin fields map to columns", func(t *testing.T) {
		group := &core.FilterGroup{
			Operator: core.LogicAnd,
			Filters: []core.AttributeFilter{
				{Field: "kind", Operator: core.OpEquals, Value: core.StringValue("person")},
			},
		}
		assert.Equal(t, `LOWER(kind) = LOWER('person')`, engine.BuildStoreQuery(group))
	})

	t.Run("numeric range uses between", func(t *testing.T) {
		group := &core.FilterGroup{
			Operator: core.LogicAnd,
			Filters: []core.AttributeFilter{
				{Field: "salary", Operator: core.OpInRange, Min: core.NumberValue(50000), Max: core.NumberValue(90000)},
			},
		}
		assert.Equal(t,
			`(metadata #>> '{salary}')::numeric BETWEEN 50000 AND 90000`,
			engine.BuildStoreQuery(group))
	})

	t.Run("groups parenthesize and join by operator", func(t *testing.T) {
		group := &core.FilterGroup{
			Operator: core.LogicAnd,
			Filters: []core.AttributeFilter{
				{Field: "remote", Operator: core.OpIsTrue},
			},
			Groups: []core.FilterGroup{
				{
					Operator: core.LogicOr,
					Filters: []core.AttributeFilter{
						{Field: "city", Operator: core.OpEquals, Value: core.StringValue("Lisbon")},
						{Field: "city", Operator: core.OpEquals, Value: core.StringValue("Porto")},
					},
				},
			},
		}
		assert.Equal(t,
			`(metadata #>> '{remote}')::boolean = TRUE AND (LOWER(metadata #>> '{city}') = LOWER('Lisbon') OR LOWER(metadata #>> '{city}') = LOWER('Porto'))`,
			engine.BuildStoreQuery(group))
	})

	t.Run("string literals are escaped", func(t *testing.T) {
		group := &core.FilterGroup{
			Operator: core.LogicAnd,
			Filters: []core.AttributeFilter{
				{Field: "name", Operator: core.OpEquals, Value: core.StringValue("O'Brien")},
			},
		}
		assert.Equal(t,
			`LOWER(metadata #>> '{name}') = LOWER('O''Brien')`,
			engine.BuildStoreQuery(group))
	})

	t.Run("empty group renders TRUE", func(t *testing.T) {
		assert.Equal(t, "TRUE", engine.BuildStoreQuery(&core.FilterGroup{}))
	})

	t.Run("non-pushable filters are omitted", func(t *testing.T) {
		group := &core.FilterGroup{
			Operator: core.LogicAnd,
			Filters: []core.AttributeFilter{
				{Field: "hobbies", Operator: core.OpContains, Value: core.StringValue("hiking")},
				{Field: "city", Operator: core.OpEquals, Value: core.StringValue("Lisbon")},
			},
		}
		assert.Equal(t,
			`LOWER(metadata #>> '{city}') = LOWER('Lisbon')`,
			engine.BuildStoreQuery(group))
	})

	// Push-down deliberately ignores privacy. The fragment includes
	// restricted fields; the application-level re-check is what keeps
	// them from leaking into results.
	t.Run("privacy is not consulted", func(t *testing.T) {
		group := &core.FilterGroup{
			Operator: core.LogicAnd,
			Filters: []core.AttributeFilter{
				{Field: "birthday", Operator: core.OpEquals, Value: core.StringValue("1997-03-14")},
			},
		}
		assert.Equal(t,
			`LOWER(metadata #>> '{birthday}') = LOWER('1997-03-14')`,
			engine.BuildStoreQuery(group))
	})
}
