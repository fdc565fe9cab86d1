package offset

import (
	"encoding/base64"
	"strconv"
	"strings"
)

const cursorPrefix = "offset:"

// EncodeCursor encodes an item offset as an opaque cursor ("offset:N", URL-safe base64).
func EncodeCursor(offset int) *string {
	encoded := base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
	return &encoded
}

// DecodeCursor extracts the offset from a cursor produced by EncodeCursor.
// It reports false for nil, malformed or negative cursors.
func DecodeCursor(input *string) (int, bool) {
	if input == nil {
		return 0, false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(*input)
	if err != nil {
		return 0, false
	}

	raw, ok := strings.CutPrefix(string(decoded), cursorPrefix)
	if !ok {
		return 0, false
	}

	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		return 0, false
	}
	return offset, true
}
