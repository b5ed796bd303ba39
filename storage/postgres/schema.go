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


package postgres

import (
	"context"
	"fmt"
)

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS vector`

const createEntitiesSQL = `
CREATE TABLE IF NOT EXISTS entities (
	id           BIGINT PRIMARY KEY,
	kind         TEXT NOT NULL,
	display_name TEXT NOT NULL,
	searchable   BOOLEAN NOT NULL DEFAULT TRUE,
	metadata     JSONB NOT NULL DEFAULT '{}',
	privacy      JSONB NOT NULL DEFAULT '{}',
	embedding    vector(%d),
	inserted_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createIndexesSQL = `
CREATE INDEX IF NOT EXISTS entities_kind_idx ON entities (kind);
CREATE INDEX IF NOT EXISTS entities_metadata_idx ON entities USING GIN (metadata)`

// Init creates the pgvector extension, the entities table, and its
// indexes. Safe to call repeatedly.
func (s *Store) Init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	for _, stmt := range []string{
		createExtensionSQL,
		fmt.Sprintf(createEntitiesSQL, s.dims),
		createIndexesSQL,
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init schema: %w", err)
		}
	}
	return nil
}
