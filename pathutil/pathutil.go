// Package pathutil implements the per-user filesystem layout used by the
// per-user job log store: hex-encoded user IDs grouped into directory pairs,
// so that no directory ever holds more than 256 user directories' worth of
// entries.
package pathutil

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// UserPathPart returns userID as a hex string with a '/' inserted after
// every second character, and no trailing separator, e.g. 0x1a2b3c ->
// "1a/2b/3c". Odd-length hex strings end up with an uneven last group
// (0x100 -> "10/0") since there's no fixed-width padding before the
// slash-insertion pass — this mirrors the original daemon's behavior.
func UserPathPart(userID int) string {
	hex := strconv.FormatInt(int64(userID), 16)

	var b strings.Builder
	for i, c := range hex {
		b.WriteRune(c)
		if i%2 != 0 {
			b.WriteByte('/')
		}
	}

	return strings.TrimSuffix(b.String(), "/")
}

// Pad2 zero-pads n to at least 2 digits, used when substituting %d/%m into
// the per-user database file name scheme.
func Pad2(n int) string {
	return fmt.Sprintf("%02d", n)
}

// EnsureDir creates dir and any missing parents if it doesn't already
// exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}
	return nil
}
