package util

import (
	"fmt"

	"github.com/go-sif/spatial"
)

// SafePairSink wraps a PairSink such that panics are recovered and nice error messages are constructed
func SafePairSink(sink spatial.PairSink) (safeSink spatial.PairSink) {
	if sink == nil {
		return nil
	}
	return func(r spatial.Shape, s spatial.Shape) (err error) {
		defer func() {
			if p := recover(); p != nil {
				if anErr, ok := p.(error); ok {
					err = fmt.Errorf("Sink Panic: %w\nR: %s\nS: %s\n%s", anErr, r.AppendText(nil), s.AppendText(nil), GetTrace())
				} else {
					err = fmt.Errorf("Sink Panic: %v\nR: %s\nS: %s\n%s", p, r.AppendText(nil), s.AppendText(nil), GetTrace())
				}
			} else if err != nil {
				err = fmt.Errorf("Sink Error: %w\nR: %s\nS: %s", err, r.AppendText(nil), s.AppendText(nil))
			}
		}()
		err = sink(r, s)
		return
	}
}

// SafeShapeSink wraps a ShapeSink such that panics are recovered and nice error messages are constructed
func SafeShapeSink(sink spatial.ShapeSink) (safeSink spatial.ShapeSink) {
	if sink == nil {
		return nil
	}
	return func(s spatial.Shape) (err error) {
		defer func() {
			if p := recover(); p != nil {
				if anErr, ok := p.(error); ok {
					err = fmt.Errorf("Sink Panic: %w\nShape: %s\n%s", anErr, s.AppendText(nil), GetTrace())
				} else {
					err = fmt.Errorf("Sink Panic: %v\nShape: %s\n%s", p, s.AppendText(nil), GetTrace())
				}
			} else if err != nil {
				err = fmt.Errorf("Sink Error: %w\nShape: %s", err, s.AppendText(nil))
			}
		}()
		err = sink(s)
		return
	}
}
