// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "fmt"

// ValidateEntity validates an Entity according to domain rules.
//
// Validation rules:
//   - Kind must not be empty
//   - DisplayName must not be empty
//   - All declared privacy levels must be valid
//
// NOT validated:
//   - Metadata (free-form by design)
//   - ID (0 is valid from database sequences)
func ValidateEntity(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}

	if entity.Kind == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyKind)
	}

	if entity.DisplayName == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyDisplayName)
	}

	for path, level := range entity.Privacy {
		if err := ValidatePrivacyLevel(level); err != nil {
			return fmt.Errorf("%w: field %q: %w", ErrInvalidEntity, path, err)
		}
	}

	return nil
}

// ValidatePrivacyLevel validates that a PrivacyLevel has a valid value.
func ValidatePrivacyLevel(level PrivacyLevel) error {
	switch level {
	case PrivacyPublic, PrivacyMembers, PrivacyPrivate:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidPrivacyLevel, level)
	}
}

// ValidateEmbeddingRecord validates an EmbeddingRecord according to domain rules.
//
// Validation rules:
//   - Status must be valid
//   - A Generated record's vector length must match its declared dimensionality
func ValidateEmbeddingRecord(record *EmbeddingRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidEmbeddingStatus)
	}

	switch record.Status {
	case EmbeddingPending, EmbeddingGenerated, EmbeddingFailed:
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidEmbeddingStatus, record.Status)
	}

	if record.Status == EmbeddingGenerated && record.Dimensions != len(record.Vector) {
		return fmt.Errorf("%w: declared %d, vector has %d", ErrDimensionMismatch,
			record.Dimensions, len(record.Vector))
	}

	return nil
}

// ValidateFilterGroup validates a FilterGroup tree according to domain rules.
//
// Validation rules:
//   - A non-empty group must carry a valid logical operator
//   - Every filter must name a field and carry a valid operator
//   - Nested groups are validated recursively
//
// An empty group is valid; it matches every entity.
func ValidateFilterGroup(group *FilterGroup) error {
	if group.Empty() {
		return nil
	}

	if err := ValidateLogicalOperator(group.Operator); err != nil {
		return err
	}

	for _, f := range group.Filters {
		if f.Field == "" {
			return ErrEmptyFilterField
		}
		if err := ValidateFilterOperator(f.Operator); err != nil {
			return fmt.Errorf("field %q: %w", f.Field, err)
		}
	}

	for i := range group.Groups {
		if err := ValidateFilterGroup(&group.Groups[i]); err != nil {
			return err
		}
	}

	return nil
}

// ValidateFilterOperator validates that a FilterOperator has a valid value.
func ValidateFilterOperator(op FilterOperator) error {
	if op < OpEquals || op > OpNotExists {
		return fmt.Errorf("%w: value %d", ErrInvalidFilterOperator, op)
	}
	return nil
}

// ValidateLogicalOperator validates that a LogicalOperator has a valid value.
func ValidateLogicalOperator(op LogicalOperator) error {
	if op != LogicAnd && op != LogicOr {
		return fmt.Errorf("%w: value %d", ErrInvalidLogicalOperator, op)
	}
	return nil
}
