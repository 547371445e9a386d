package task

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"
)

// Hash derives the dedup key of a submission from its kind and input.
// The input is encoded as JSON, so struct field order and map key sorting
// make the result stable for identical values.
//
// The key identifies semantically identical submissions. Nothing rejects a
// duplicate: dispatching the same kind and input twice creates two rows.
func Hash(kind string, input any) (string, error) {
	encoded, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s input: %w", kind, err)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(kind))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(encoded)

	return strconv.FormatUint(h.Sum64(), 10), nil
}
