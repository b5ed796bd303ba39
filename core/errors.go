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

import "errors"

// Domain errors
var (
	// ErrEmbeddingNotReady indicates an embedding record exists but its
	// vector is not usable: status is not Generated, or the vector is empty.
	ErrEmbeddingNotReady = errors.New("embedding not ready")

	// ErrInvalidComparison indicates an ordering operator was applied to
	// non-numeric operands. This is a filter-definition bug, distinct
	// from a filter that evaluated to false.
	ErrInvalidComparison = errors.New("invalid comparison")

	// ErrInvalidEntity indicates an Entity failed validation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrEmptyKind indicates the entity Kind field is empty.
	ErrEmptyKind = errors.New("entity kind cannot be empty")

	// ErrEmptyDisplayName indicates the entity DisplayName field is empty.
	ErrEmptyDisplayName = errors.New("entity display name cannot be empty")

	// ErrInvalidPrivacyLevel indicates an unknown PrivacyLevel value.
	ErrInvalidPrivacyLevel = errors.New("invalid privacy level")

	// ErrInvalidEmbeddingStatus indicates an unknown EmbeddingStatus value.
	ErrInvalidEmbeddingStatus = errors.New("invalid embedding status")

	// ErrDimensionMismatch indicates an embedding vector whose length
	// disagrees with its declared dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidFilterOperator indicates an unknown FilterOperator value.
	ErrInvalidFilterOperator = errors.New("invalid filter operator")

	// ErrInvalidLogicalOperator indicates an unknown LogicalOperator value.
	ErrInvalidLogicalOperator = errors.New("invalid logical operator")

	// ErrEmptyFilterField indicates an AttributeFilter without a field path.
	ErrEmptyFilterField = errors.New("filter field cannot be empty")
)
