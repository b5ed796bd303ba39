package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityMUSRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	entity := Entity{
		Id:          IDFromContent("alice"),
		Kind:        "person",
		DisplayName: "Alice Navarro",
		Searchable:  true,
		Metadata: map[string]any{
			"age":      float64(29),
			"location": "Lisbon",
			"hobbies":  []any{"hiking", "photography"},
			"contact":  map[string]any{"email": "alice@example.com"},
		},
		Privacy: map[string]PrivacyLevel{
			"age":           PrivacyPrivate,
			"contact.email": PrivacyMembers,
		},
		InsertedAt: now.Add(-time.Hour),
		UpdatedAt:  now,
	}

	buf := make([]byte, EntityMUS.Size(entity))
	written := EntityMUS.Marshal(entity, buf)
	assert.Equal(t, len(buf), written)

	decoded, read, err := EntityMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, written, read)
	assert.Equal(t, entity, decoded)
}

func TestEntityMUSRoundTripMinimal(t *testing.T) {
	entity := Entity{
		Id:          7,
		Kind:        "job",
		DisplayName: "Archived Posting",
	}

	buf := make([]byte, EntityMUS.Size(entity))
	EntityMUS.Marshal(entity, buf)

	decoded, _, err := EntityMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, entity.Id, decoded.Id)
	assert.Nil(t, decoded.Metadata)
	assert.Nil(t, decoded.Privacy)
	assert.False(t, decoded.Searchable)
}

func TestEmbeddingRecordMUSRoundTrip(t *testing.T) {
	record := EmbeddingRecord{
		EntityId:    42,
		Vector:      []float32{0.25, -0.5, 0.125},
		Dimensions:  3,
		Status:      EmbeddingGenerated,
		Model:       "embeddinggemma",
		GeneratedAt: time.Now().UTC().Truncate(time.Microsecond),
		RetryCount:  2,
		LastError:   "timeout waiting for embedding service",
	}

	buf := make([]byte, EmbeddingRecordMUS.Size(record))
	written := EmbeddingRecordMUS.Marshal(record, buf)
	assert.Equal(t, len(buf), written)

	decoded, read, err := EmbeddingRecordMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, written, read)
	assert.Equal(t, record, decoded)
}

func TestEntityMUSUnmarshalTruncated(t *testing.T) {
	entity := Entity{
		Id:          1,
		Kind:        "person",
		DisplayName: "Bob",
		Metadata:    map[string]any{"location": "Lisbon"},
		Privacy:     map[string]PrivacyLevel{"location": PrivacyMembers},
	}
	buf := make([]byte, EntityMUS.Size(entity))
	EntityMUS.Marshal(entity, buf)

	// Every strict prefix must error rather than panic, including cuts
	// inside the metadata payload where the length prefix promises more
	// bytes than the buffer holds.
	for cut := 0; cut < len(buf); cut++ {
		_, _, err := EntityMUS.Unmarshal(buf[:cut])
		assert.Error(t, err, "cut at %d", cut)
	}
}
