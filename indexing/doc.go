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


// Package indexing ingests entities and keeps their embeddings current.
//
// The Pipeline stores entities synchronously and generates embeddings
// asynchronously on a bounded worker pool. Each entity carries an
// EmbeddingRecord whose status moves Pending -> Generated on success or
// Pending -> Failed with a retry count on error. Reindex sweeps pending
// and retryable failed records, which is how a model switch or an AI
// service outage gets repaired.
package indexing
