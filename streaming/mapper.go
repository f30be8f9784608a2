package streaming

import (
	"context"
	"fmt"
	"io"

	"github.com/emptyOVO/logbucket/stamp"
	log "github.com/sirupsen/logrus"
)

// CountValue is the value emitted for every mapped line.
const CountValue = "1"

// MapperStats summarizes one mapper run.
type MapperStats struct {
	Lines         int64
	BadTimestamps int64
}

// RunMapper reads log lines from in and writes "<label>\t1" for each of them
// to out, in order, before reading the next line. It stops at the first line
// without brackets and returns an error naming that line.
func RunMapper(ctx context.Context, in io.Reader, out io.Writer) (MapperStats, error) {
	var st MapperStats
	lr := NewLineReader(in)
	w := NewWriter(out)
	for lr.Next() {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		res, err := stamp.Transform(lr.Text())
		if err != nil {
			return st, fmt.Errorf("line %d: %w", lr.Line(), err)
		}
		st.Lines++
		if !res.Valid {
			st.BadTimestamps++
			log.WithField("line", lr.Line()).Debug("[Mapper] bad timestamp")
		}
		if err := w.Emit(res.Label(), CountValue); err != nil {
			return st, fmt.Errorf("write line %d: %w", lr.Line(), err)
		}
	}
	if err := lr.Err(); err != nil {
		return st, fmt.Errorf("read line %d: %w", lr.Line()+1, err)
	}
	return st, nil
}

// Report publishes the stats as Hadoop counters.
func (st MapperStats) Report(r *Reporter) error {
	if err := r.IncrCounter("lines", st.Lines); err != nil {
		return err
	}
	return r.IncrCounter("bad_timestamp", st.BadTimestamps)
}
