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

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the domain types. These are hand-written custom
// serializers: the free-form Entity.Metadata map cannot be described by
// a static schema, so its bytes are embedded as JSON inside the MUS
// frame while every fixed-shape field uses MUS primitives.
var (
	// IDMUS serializes IDs as varint-encoded uint64.
	IDMUS = idMUS{}
	// EntityMUS serializes Entity values.
	EntityMUS = entityMUS{}
	// EmbeddingRecordMUS serializes EmbeddingRecord values.
	EmbeddingRecordMUS = embeddingRecordMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

// Timestamps are stored as microseconds since the Unix epoch.

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

// Raw byte payloads carry a varint length prefix.

func marshalBytes(data []byte, bs []byte) int {
	n := varint.PositiveInt.Marshal(len(data), bs)
	n += copy(bs[n:], data)
	return n
}

func unmarshalBytes(bs []byte) ([]byte, int, error) {
	l, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if l > len(bs)-n {
		return nil, n, mus.ErrTooSmallByteSlice
	}
	data := make([]byte, l)
	n += copy(data, bs[n:n+l])
	return data, n, nil
}

func sizeBytes(data []byte) int {
	return varint.PositiveInt.Size(len(data)) + len(data)
}

type entityMUS struct{}

func (entityMUS) Marshal(e Entity, bs []byte) int {
	n := IDMUS.Marshal(e.Id, bs)
	n += ord.String.Marshal(e.Kind, bs[n:])
	n += ord.String.Marshal(e.DisplayName, bs[n:])
	n += ord.Bool.Marshal(e.Searchable, bs[n:])
	n += marshalBytes(metadataBytes(e.Metadata), bs[n:])
	n += varint.PositiveInt.Marshal(len(e.Privacy), bs[n:])
	for _, path := range sortedPrivacyPaths(e.Privacy) {
		n += ord.String.Marshal(path, bs[n:])
		n += varint.Int.Marshal(int(e.Privacy[path]), bs[n:])
	}
	n += marshalTime(e.InsertedAt, bs[n:])
	n += marshalTime(e.UpdatedAt, bs[n:])
	return n
}

func (entityMUS) Unmarshal(bs []byte) (Entity, int, error) {
	var e Entity
	var err error
	var m int

	e.Id, m, err = IDMUS.Unmarshal(bs)
	n := m
	if err != nil {
		return e, n, err
	}
	e.Kind, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return e, n, err
	}
	e.DisplayName, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return e, n, err
	}
	e.Searchable, m, err = ord.Bool.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return e, n, err
	}
	var meta []byte
	meta, m, err = unmarshalBytes(bs[n:])
	n += m
	if err != nil {
		return e, n, err
	}
	if len(meta) > 0 {
		if err = json.Unmarshal(meta, &e.Metadata); err != nil {
			return e, n, err
		}
	}
	var count int
	count, m, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return e, n, err
	}
	if count > 0 {
		e.Privacy = make(map[string]PrivacyLevel, count)
		for i := 0; i < count; i++ {
			var path string
			path, m, err = ord.String.Unmarshal(bs[n:])
			n += m
			if err != nil {
				return e, n, err
			}
			var level int
			level, m, err = varint.Int.Unmarshal(bs[n:])
			n += m
			if err != nil {
				return e, n, err
			}
			e.Privacy[path] = PrivacyLevel(level)
		}
	}
	e.InsertedAt, m, err = unmarshalTime(bs[n:])
	n += m
	if err != nil {
		return e, n, err
	}
	e.UpdatedAt, m, err = unmarshalTime(bs[n:])
	n += m
	return e, n, err
}

func (entityMUS) Size(e Entity) int {
	size := IDMUS.Size(e.Id)
	size += ord.String.Size(e.Kind)
	size += ord.String.Size(e.DisplayName)
	size += ord.Bool.Size(e.Searchable)
	size += sizeBytes(metadataBytes(e.Metadata))
	size += varint.PositiveInt.Size(len(e.Privacy))
	for path, level := range e.Privacy {
		size += ord.String.Size(path)
		size += varint.Int.Size(int(level))
	}
	size += sizeTime(e.InsertedAt)
	size += sizeTime(e.UpdatedAt)
	return size
}

// metadataBytes encodes the metadata map as JSON. json.Marshal sorts map
// keys, so Size and Marshal stay consistent for the same input.
func metadataBytes(metadata map[string]any) []byte {
	if len(metadata) == 0 {
		return nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil
	}
	return data
}

func sortedPrivacyPaths(privacy map[string]PrivacyLevel) []string {
	paths := make([]string, 0, len(privacy))
	for path := range privacy {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

type embeddingRecordMUS struct{}

func (embeddingRecordMUS) Marshal(r EmbeddingRecord, bs []byte) int {
	n := IDMUS.Marshal(r.EntityId, bs)
	n += varint.PositiveInt.Marshal(len(r.Vector), bs[n:])
	for _, f := range r.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	n += varint.Int.Marshal(r.Dimensions, bs[n:])
	n += varint.Int.Marshal(int(r.Status), bs[n:])
	n += ord.String.Marshal(r.Model, bs[n:])
	n += marshalTime(r.GeneratedAt, bs[n:])
	n += varint.Int.Marshal(r.RetryCount, bs[n:])
	n += ord.String.Marshal(r.LastError, bs[n:])
	return n
}

func (embeddingRecordMUS) Unmarshal(bs []byte) (EmbeddingRecord, int, error) {
	var r EmbeddingRecord
	var err error
	var m int

	r.EntityId, m, err = IDMUS.Unmarshal(bs)
	n := m
	if err != nil {
		return r, n, err
	}
	var count int
	count, m, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return r, n, err
	}
	if count > 0 {
		r.Vector = make([]float32, count)
		for i := 0; i < count; i++ {
			r.Vector[i], m, err = raw.Float32.Unmarshal(bs[n:])
			n += m
			if err != nil {
				return r, n, err
			}
		}
	}
	r.Dimensions, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return r, n, err
	}
	var status int
	status, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return r, n, err
	}
	r.Status = EmbeddingStatus(status)
	r.Model, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return r, n, err
	}
	r.GeneratedAt, m, err = unmarshalTime(bs[n:])
	n += m
	if err != nil {
		return r, n, err
	}
	r.RetryCount, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return r, n, err
	}
	r.LastError, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	return r, n, err
}

func (embeddingRecordMUS) Size(r EmbeddingRecord) int {
	size := IDMUS.Size(r.EntityId)
	size += varint.PositiveInt.Size(len(r.Vector))
	for _, f := range r.Vector {
		size += raw.Float32.Size(f)
	}
	size += varint.Int.Size(r.Dimensions)
	size += varint.Int.Size(int(r.Status))
	size += ord.String.Size(r.Model)
	size += sizeTime(r.GeneratedAt)
	size += varint.Int.Size(r.RetryCount)
	size += ord.String.Size(r.LastError)
	return size
}
