package telemetry

import (
	"strconv"
	"strings"
)

// encodeTermIDs serializes a termid slice as comma-separated decimals
// for storage in a single text column.
func encodeTermIDs(ids []uint32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}

func decodeTermIDs(s string) []uint32 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]uint32, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint32(v))
	}
	return ids
}
