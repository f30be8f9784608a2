package streaming

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReducerStats summarizes one reducer run.
type ReducerStats struct {
	Records int64
	Keys    int64
}

// RunReducer sums the integer values of each run of equal keys. Input must be
// grouped by key, as the shuffle stage delivers it.
func RunReducer(ctx context.Context, in io.Reader, out io.Writer) (ReducerStats, error) {
	var (
		st   ReducerStats
		cur  string
		sum  int64
		open bool
	)
	rd := NewReader(in)
	w := NewWriter(out)
	flush := func() error {
		st.Keys++
		return w.Emit(cur, strconv.FormatInt(sum, 10))
	}
	for rd.Next() {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		kv := rd.Record()
		n, err := strconv.ParseInt(strings.TrimSpace(kv.Value), 10, 64)
		if err != nil {
			return st, fmt.Errorf("line %d: count %q: %w", rd.Line(), kv.Value, err)
		}
		st.Records++
		if open && kv.Key != cur {
			if err := flush(); err != nil {
				return st, err
			}
			sum = 0
		}
		cur = kv.Key
		sum += n
		open = true
	}
	if err := rd.Err(); err != nil {
		return st, err
	}
	if open {
		if err := flush(); err != nil {
			return st, err
		}
	}
	return st, nil
}
