package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// AnonymousID is the requester identity used when no authenticated
// identity is available. It never matches an entity's own ID.
const AnonymousID ID = 0

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// PrivacyLevel controls who may observe an entity field.
type PrivacyLevel int

const (
	// PrivacyPublic makes a field visible to every requester, anonymous included.
	PrivacyPublic PrivacyLevel = iota + 1
	// PrivacyMembers makes a field visible to any authenticated requester.
	PrivacyMembers
	// PrivacyPrivate makes a field visible only to the entity itself.
	PrivacyPrivate
)

// Entity is a searchable domain object: a person, a job posting, a
// listing. Structured attributes live in the free-form Metadata map;
// per-field visibility rules live in Privacy, keyed by dotted field path.
type Entity struct {
	Id          ID
	Kind        string
	DisplayName string
	Searchable  bool
	Metadata    map[string]any
	Privacy     map[string]PrivacyLevel
	InsertedAt  time.Time
	UpdatedAt   time.Time
}

// IsVisible reports whether the field at the given dotted path may be
// observed by the requester. The most specific declared ancestor of the
// path wins; a path with no declaration is public. Restriction is
// opt-in per field.
func (e *Entity) IsVisible(fieldPath string, requesterID ID) bool {
	level := PrivacyPublic
	path := fieldPath
	for {
		if declared, ok := e.privacyFor(path); ok {
			level = declared
			break
		}
		idx := strings.LastIndex(path, ".")
		if idx < 0 {
			break
		}
		path = path[:idx]
	}

	switch level {
	case PrivacyPublic:
		return true
	case PrivacyMembers:
		return requesterID != AnonymousID
	case PrivacyPrivate:
		return requesterID == e.Id
	default:
		return false
	}
}

// privacyFor looks up a declared privacy level, matching the path
// case-insensitively.
func (e *Entity) privacyFor(path string) (PrivacyLevel, bool) {
	for declared, level := range e.Privacy {
		if strings.EqualFold(declared, path) {
			return level, true
		}
	}
	return 0, false
}

// EmbeddingStatus tracks the lifecycle of an entity's embedding vector.
type EmbeddingStatus int

const (
	// EmbeddingPending means generation has been requested but not completed.
	EmbeddingPending EmbeddingStatus = iota + 1
	// EmbeddingGenerated means the vector is ready for similarity search.
	EmbeddingGenerated
	// EmbeddingFailed means the last generation attempt errored.
	EmbeddingFailed
)

// EmbeddingRecord holds an entity's embedding vector and its generation state.
// Only Generated records with a non-empty vector participate in ranking.
type EmbeddingRecord struct {
	EntityId    ID
	Vector      []float32
	Dimensions  int
	Status      EmbeddingStatus
	Model       string
	GeneratedAt time.Time
	RetryCount  int
	LastError   string
}

// Ready reports whether the record can serve as a similarity reference
// or candidate.
func (r *EmbeddingRecord) Ready() bool {
	return r.Status == EmbeddingGenerated && len(r.Vector) > 0
}

// ValueKind discriminates the variants of a FilterValue.
type ValueKind int

const (
	// ValueAbsent is the zero FilterValue; it matches nothing.
	ValueAbsent ValueKind = iota
	// ValueString holds a string operand.
	ValueString
	// ValueNumber holds a numeric operand, widened to float64.
	ValueNumber
	// ValueBool holds a boolean operand.
	ValueBool
	// ValueList holds an ordered list of operands.
	ValueList
)

// FilterValue is a tagged variant for filter operands, so comparison
// logic can be exhaustive over kinds instead of type-switching on any.
type FilterValue struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	List []FilterValue
}

// StringValue builds a string operand.
func StringValue(s string) FilterValue { return FilterValue{Kind: ValueString, Str: s} }

// NumberValue builds a numeric operand.
func NumberValue(f float64) FilterValue { return FilterValue{Kind: ValueNumber, Num: f} }

// BoolValue builds a boolean operand.
func BoolValue(b bool) FilterValue { return FilterValue{Kind: ValueBool, Bool: b} }

// ListValue builds a list operand.
func ListValue(items ...FilterValue) FilterValue { return FilterValue{Kind: ValueList, List: items} }

// FilterOperator is the comparison applied by an AttributeFilter.
type FilterOperator int

const (
	// OpEquals matches equal values; strings compare case-insensitively.
	OpEquals FilterOperator = iota + 1
	// OpNotEquals is the negation of OpEquals.
	OpNotEquals
	// OpContains matches case-insensitive substrings or list membership.
	OpContains
	// OpNotContains is the negation of OpContains.
	OpNotContains
	// OpGreaterThan requires both operands to be numeric.
	OpGreaterThan
	// OpLessThan requires both operands to be numeric.
	OpLessThan
	// OpGreaterOrEqual requires both operands to be numeric.
	OpGreaterOrEqual
	// OpLessOrEqual requires both operands to be numeric.
	OpLessOrEqual
	// OpInRange matches numeric values within [Min, Max].
	OpInRange
	// OpIsTrue matches a strict boolean true, with no truthy coercion.
	OpIsTrue
	// OpIsFalse matches a strict boolean false.
	OpIsFalse
	// OpExists matches any non-empty value.
	OpExists
	// OpNotExists matches null, empty strings, and empty collections.
	OpNotExists
)

// AttributeFilter is one structured condition on a dotted entity field.
// Min and Max are only consulted by OpInRange.
type AttributeFilter struct {
	Field    string
	Operator FilterOperator
	Value    FilterValue
	Min      FilterValue
	Max      FilterValue
}

// LogicalOperator combines the results inside a FilterGroup.
type LogicalOperator int

const (
	// LogicAnd requires every evaluated input to pass.
	LogicAnd LogicalOperator = iota + 1
	// LogicOr requires at least one evaluated input to pass.
	LogicOr
)

// FilterGroup is a tree of filters combined by a logical operator.
// An empty group (no filters, no nested groups) matches every entity.
type FilterGroup struct {
	Operator LogicalOperator
	Filters  []AttributeFilter
	Groups   []FilterGroup
}

// Empty reports whether the group has no filters and no nested groups.
func (g *FilterGroup) Empty() bool {
	return g == nil || (len(g.Filters) == 0 && len(g.Groups) == 0)
}

// EntityMatch is one row of a similarity search result.
// MatchedAttributes carries the privacy-filtered values of the filter
// fields for caller-facing transparency; it never influences ranking.
type EntityMatch struct {
	EntityId          ID
	Score             float32
	MatchedAttributes map[string]FilterValue
	Entity            *Entity
	DisplayName       string
	UpdatedAt         time.Time
}

// MutualMatch is a pair of entities that each rank the other above the
// similarity threshold. MutualScore is the arithmetic mean of the two legs.
type MutualMatch struct {
	EntityId          ID
	OtherId           ID
	ForwardScore      float32
	ReverseScore      float32
	MutualScore       float32
	DetectedAt        time.Time
	MatchedAttributes map[string]FilterValue
}
