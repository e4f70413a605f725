package embedstore

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// encodeLog serializes the full log in order.
func encodeLog(records []Record) ([]byte, error) {
	data, err := msgpack.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// decodeLog parses a snapshot and checks every record against dim.
func decodeLog(data []byte, dim int) ([]Record, error) {
	var records []Record
	if err := msgpack.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	for i, r := range records {
		if err := r.validate(dim); err != nil {
			return nil, fmt.Errorf("snapshot record %d: %w", i, err)
		}
	}
	return records, nil
}
