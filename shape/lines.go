package shape

import (
	"bytes"

	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/errors"
)

// Record is a parsed Shape along with the location of its text within a buffer
type Record struct {
	Shape  spatial.Shape
	Offset int // Offset is the position of the first byte of the record's text
	Length int // Length is the length of the record's text, excluding the newline
}

// ParseLines parses a buffer of newline-terminated records. Every record must
// be complete: a buffer which does not end with a newline, or which contains
// a line that cannot be parsed, produces a CorruptBufferError.
func ParseLines(data []byte, parse Parser) ([]Record, error) {
	records := make([]Record, 0, bytes.Count(data, []byte{'\n'}))
	offset := 0
	for offset < len(data) {
		end := bytes.IndexByte(data[offset:], '\n')
		if end < 0 {
			return nil, errors.CorruptBufferError{Offset: offset, Reason: "partial trailing record"}
		}
		line := data[offset : offset+end]
		if len(line) > 0 {
			s, err := parse(line)
			if err != nil {
				return nil, errors.CorruptBufferError{Offset: offset, Reason: err.Error()}
			}
			records = append(records, Record{Shape: s, Offset: offset, Length: end})
		}
		offset += end + 1
	}
	return records, nil
}
