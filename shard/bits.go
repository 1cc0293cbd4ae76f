package shard

import (
	"strconv"
	"strings"
)

// RenderBits renders each byte as eight binary digits, most significant bit
// first, with no separators.
func RenderBits(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) * 8)
	for _, b := range data {
		for bit := 7; bit >= 0; bit-- {
			if b&(1<<uint(bit)) != 0 {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return sb.String()
}

// ParseBits is the inverse of RenderBits.
func ParseBits(bits string) ([]byte, error) {
	if len(bits)%8 != 0 {
		return nil, newError(KindShard, "SHARD-BITS-001", "bit string length "+strconv.Itoa(len(bits))+" is not a multiple of 8")
	}
	out := make([]byte, len(bits)/8)
	for i := 0; i < len(bits); i++ {
		var v byte
		switch bits[i] {
		case '0':
		case '1':
			v = 1
		default:
			return nil, newError(KindShard, "SHARD-BITS-002", "invalid bit character at offset "+strconv.Itoa(i))
		}
		out[i/8] = out[i/8]<<1 | v
	}
	return out, nil
}
