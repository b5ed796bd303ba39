package filter

import (
	"strings"

	"github.com/poiesic/semblance/core"
)

// ResolveField walks a dotted field path against an entity, returning
// the value at the path and whether it was present. Each segment is
// matched case-insensitively against the entity's built-in fields and
// metadata keys. A missing segment yields absent for the remainder of
// the path; it is never an error.
func ResolveField(entity *core.Entity, path string) (any, bool) {
	if entity == nil || path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")
	head := segments[0]

	// Built-in fields occupy the top of the namespace.
	switch strings.ToLower(head) {
	case "kind":
		return descend(entity.Kind, segments[1:])
	case "displayname":
		return descend(entity.DisplayName, segments[1:])
	case "searchable":
		return descend(entity.Searchable, segments[1:])
	}

	value, ok := lookupKey(entity.Metadata, head)
	if !ok {
		return nil, false
	}
	return descend(value, segments[1:])
}

// descend walks the remaining segments into nested maps.
func descend(value any, segments []string) (any, bool) {
	for _, segment := range segments {
		nested, ok := asMap(value)
		if !ok {
			return nil, false
		}
		value, ok = lookupKey(nested, segment)
		if !ok {
			return nil, false
		}
	}
	return value, true
}

// lookupKey finds a map entry by case-insensitive key match. An exact
// match wins over a case-folded one.
func lookupKey(m map[string]any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// asMap normalizes the map shapes that show up in metadata: typed
// map[string]any from callers and map[string]string from flat imports.
func asMap(value any) (map[string]any, bool) {
	switch m := value.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, true
	default:
		return nil, false
	}
}
