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


// Package search provides hybrid similarity search over stored entities.
//
// The Searcher type implements a multi-stage search algorithm:
//   - Vector ranking by cosine similarity against all generated embeddings
//   - Attribute filtering in rank order, with per-field privacy enforcement
//   - Metadata equality checks and optional entity hydration
//
// When filters are present the ranking stage over-fetches beyond the
// requested limit, since filtering thins the candidate set after the fact.
//
// The Matcher type builds on the Searcher to resolve mutual matches:
// pairs of entities that each rank the other above a similarity
// threshold, scored by the mean of the two directional similarities.
package search
