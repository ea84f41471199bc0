package bridge

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ByteSequence is binary data that crosses the boundary as a JSON array of
// byte values ([37,80,68,70]) rather than a base64 string.
type ByteSequence []byte

// Bytes returns the sequence as a plain byte slice.
func (b ByteSequence) Bytes() []byte {
	return []byte(b)
}

func (b ByteSequence) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, len(b)*4+2)
	buf = append(buf, '[')
	for i, v := range b {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendUint(buf, uint64(v), 10)
	}
	return append(buf, ']'), nil
}

func (b *ByteSequence) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = nil
		return nil
	}

	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("byte sequence: %w", err)
	}

	out := make(ByteSequence, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte sequence: value %d at index %d out of range", v, i)
		}
		out[i] = byte(v)
	}

	*b = out
	return nil
}
