// Package textutil provides byte-level text helpers shared by the detectors
// and the rewriter: binary sniffing and display width.
package textutil

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrBinary is returned by ReadText for files that look binary.
var ErrBinary = errors.New("binary file")

// BinarySniffLength is the maximum number of bytes scanned for null-byte
// detection. Matches the heuristic used by Git and most editors.
const BinarySniffLength = 8000

// IsBinary returns true if data contains a null byte within the first
// BinarySniffLength bytes. Empty data is not binary.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	sniff := data
	if len(sniff) > BinarySniffLength {
		sniff = sniff[:BinarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// Width returns the length of line in characters, ignoring a trailing
// carriage return. Invalid UTF-8 bytes count as one character each.
func Width(line string) int {
	return utf8.RuneCountInString(strings.TrimRight(line, "\r\n"))
}

// ReadText reads the file at path and rejects binary content.
func ReadText(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if IsBinary(data) {
		return nil, fmt.Errorf("%w: %s", ErrBinary, path)
	}

	return data, nil
}
