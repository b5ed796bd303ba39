package badger

import (
	"fmt"

	"github.com/poiesic/semblance/core"
)

// Key prefixes for different data types
const (
	entityRecordPrefix    = "entrec"
	entityIDSeq           = "entrecseq"
	embeddingRecordPrefix = "embrec"
)

// makeEntityKey generates a key for an entity by ID.
func makeEntityKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", entityRecordPrefix, id))
}

// makeEmbeddingKey generates a key for an embedding record by entity ID.
func makeEmbeddingKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", embeddingRecordPrefix, id))
}
