// Package mrapps holds map and reduce functions for the local job runner.
package mrapps

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emptyOVO/logbucket/stamp"
	"github.com/emptyOVO/logbucket/streaming"
	"github.com/emptyOVO/logbucket/worker"
	log "github.com/sirupsen/logrus"
)

// LogMonthMap expects access-log lines and emits key=year-month bucket,
// value=1 for every line. A line without a bracketed timestamp fails the map.
func LogMonthMap(filename string, contents string, ctx worker.MrContext) error {
	lr := streaming.NewLineReader(strings.NewReader(contents))
	for lr.Next() {
		res, err := stamp.Transform(lr.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", lr.Line(), err)
		}
		ctx.EmitIntermediate(res.Label(), streaming.CountValue)
	}
	return lr.Err()
}

// LogMonthReduce sums the counts of each bucket. A non-integer count is
// logged and left out of the sum.
func LogMonthReduce(key string, values []string, ctx worker.MrContext) {
	var total int64
	for _, s := range values {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			log.WithFields(log.Fields{"key": key, "value": s}).Warn("[Reduce] skip malformed count")
			continue
		}
		total += n
	}
	ctx.Emit(key, strconv.FormatInt(total, 10))
}
