package filter

import (
	"log/slog"

	"github.com/poiesic/semblance/core"
)

// Engine evaluates filter trees against entities on behalf of a
// requester. It is stateless and safe for concurrent use.
type Engine struct {
	logger        *slog.Logger
	derivedFields map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for privacy-skip diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithDerivedFields sets the field names that are computed at read time
// rather than stored, and therefore can never be pushed to a store.
// Names are matched case-insensitively. Replaces the default set.
func WithDerivedFields(fields ...string) Option {
	return func(e *Engine) {
		e.derivedFields = make(map[string]bool, len(fields))
		for _, f := range fields {
			e.derivedFields[canonicalField(f)] = true
		}
	}
}

// NewEngine creates a filter engine. By default the age and location
// fields are treated as derived.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.Default(),
		derivedFields: map[string]bool{
			"age":      true,
			"location": true,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateFilters reports whether the entity passes the filter tree as
// seen by the requester. enforcePrivacy disabled means every field is
// treated as visible; only trusted internal paths may do that.
//
// Privacy is fail-closed. A filter on a field the requester may not see
// is skipped: it contributes neither a pass nor a fail to its group. A
// group whose inputs were all skipped evaluates to false even under Or,
// so a tree built entirely from hidden fields never matches. An empty
// group matches unconditionally.
func (e *Engine) EvaluateFilters(entity *core.Entity, group *core.FilterGroup, requesterID core.ID, enforcePrivacy bool) (bool, error) {
	if entity == nil {
		return false, ErrEntityRequired
	}
	if group.Empty() {
		return true, nil
	}
	if err := core.ValidateFilterGroup(group); err != nil {
		return false, err
	}

	pass, skipped, err := e.evaluateGroup(entity, group, requesterID, enforcePrivacy)
	if err != nil {
		return false, err
	}
	if skipped {
		return false, nil
	}
	return pass, nil
}

// evaluateGroup combines filter and subgroup results under the group's
// operator. skipped reports that every input was privacy-skipped, in
// which case pass is meaningless and the caller must treat the group as
// contributing nothing, or as false at the top level.
func (e *Engine) evaluateGroup(entity *core.Entity, group *core.FilterGroup, requesterID core.ID, enforcePrivacy bool) (pass, skipped bool, err error) {
	if group.Empty() {
		return true, false, nil
	}

	evaluated := 0
	passed := 0

	for _, f := range group.Filters {
		if enforcePrivacy && !entity.IsVisible(f.Field, requesterID) {
			e.logger.Debug("filter skipped by privacy",
				"entity", entity.Id, "field", f.Field, "requester", requesterID)
			continue
		}
		value, present := ResolveField(entity, f.Field)
		ok, err := evaluateFilter(f, value, present)
		if err != nil {
			return false, false, err
		}
		evaluated++
		if ok {
			passed++
		}
	}

	for i := range group.Groups {
		subPass, subSkipped, err := e.evaluateGroup(entity, &group.Groups[i], requesterID, enforcePrivacy)
		if err != nil {
			return false, false, err
		}
		if subSkipped {
			continue
		}
		evaluated++
		if subPass {
			passed++
		}
	}

	if evaluated == 0 {
		return false, true, nil
	}

	switch group.Operator {
	case core.LogicOr:
		return passed > 0, false, nil
	default:
		return passed == evaluated, false, nil
	}
}

// MatchedAttributes collects the values of the tree's filter fields
// that are visible to the requester and present on the entity, keyed by
// field path. It powers result transparency and never affects matching.
func (e *Engine) MatchedAttributes(entity *core.Entity, group *core.FilterGroup, requesterID core.ID, enforcePrivacy bool) map[string]core.FilterValue {
	if entity == nil || group.Empty() {
		return nil
	}
	out := make(map[string]core.FilterValue)
	e.collectMatched(entity, group, requesterID, enforcePrivacy, out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func (e *Engine) collectMatched(entity *core.Entity, group *core.FilterGroup, requesterID core.ID, enforcePrivacy bool, out map[string]core.FilterValue) {
	for _, f := range group.Filters {
		if _, seen := out[f.Field]; seen {
			continue
		}
		if enforcePrivacy && !entity.IsVisible(f.Field, requesterID) {
			continue
		}
		value, present := ResolveField(entity, f.Field)
		if !present {
			continue
		}
		out[f.Field] = ValueOf(value)
	}
	for i := range group.Groups {
		e.collectMatched(entity, &group.Groups[i], requesterID, enforcePrivacy, out)
	}
}
