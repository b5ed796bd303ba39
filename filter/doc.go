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


// Package filter evaluates structured attribute conditions over entities.
//
// The Engine type walks a FilterGroup tree and combines per-filter
// results under And/Or semantics. Privacy enforcement is fail-closed: a
// filter on a field the requester may not see is skipped entirely. It
// is neither a pass nor a fail, so private data can never include or
// exclude a result for an unauthorized viewer. A group whose inputs
// were all skipped evaluates to false regardless of its operator.
//
// The engine can also classify filters for push-down: CanPushToStore
// partitions a filter tree into conditions a SQL store can prune
// cheaply versus conditions that must run in the application, and
// BuildStoreQuery renders the former as a WHERE fragment. Push-down
// never consults privacy; it is a pre-filter, and callers must still
// run EvaluateFilters over the loaded rows.
package filter
