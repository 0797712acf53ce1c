package badger

import (
	"encoding/json"
	"fmt"

	"github.com/marmos91/dittodrive/pkg/metadata"
)

// Records are stored as JSON. Entities are small and the encoding keeps the
// database inspectable with badger's own tooling.

func encodeEntity(e *metadata.Entity) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entity %s: %w", e.ID, err)
	}
	return data, nil
}

func decodeEntity(data []byte) (*metadata.Entity, error) {
	var e metadata.Entity
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode entity: %w", err)
	}
	return &e, nil
}
