package estimator

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
)

// LineLengthSampler produces a SampleFunction which measures the length of a
// random line within a newline-delimited file of the given size. Each sample
// seeks to a random offset, skips the remainder of the line it lands in, and
// returns the length of the following line including its terminator. When the
// random offset lands in the final line, the first line of the file is measured.
func LineLengthSampler(r io.ReaderAt, size int64, rnd *rand.Rand) SampleFunction {
	return func() (float64, error) {
		if size <= 0 {
			return 0, fmt.Errorf("cannot sample an empty file")
		}
		pos := rnd.Int63n(size)
		br := bufio.NewReader(io.NewSectionReader(r, pos, size-pos))
		err := skipLine(br)
		if err == nil {
			_, err = br.Peek(1)
		}
		if err == io.EOF {
			br = bufio.NewReader(io.NewSectionReader(r, 0, size))
		} else if err != nil {
			return 0, err
		}
		length, err := measureLine(br)
		if err != nil {
			return 0, err
		}
		return float64(length), nil
	}
}

// skipLine discards the remainder of the current line
func skipLine(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		if err != bufio.ErrBufferFull {
			return err
		}
	}
}

// measureLine counts the bytes up to and including the next line terminator
func measureLine(br *bufio.Reader) (int, error) {
	length := 0
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return length + 1, nil
		} else if err != nil {
			return 0, err
		}
		length++
		if b == '\n' || b == '\r' {
			return length, nil
		}
	}
}
