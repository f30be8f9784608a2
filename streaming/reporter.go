package streaming

import (
	"fmt"
	"io"
)

// Reporter writes Hadoop streaming control lines, which the task runner
// picks up from the task's stderr.
type Reporter struct {
	w     io.Writer
	group string
}

func NewReporter(w io.Writer, group string) *Reporter {
	return &Reporter{w: w, group: group}
}

// IncrCounter adds amount to the named counter of the reporter's group.
func (r *Reporter) IncrCounter(counter string, amount int64) error {
	_, err := fmt.Fprintf(r.w, "reporter:counter:%s,%s,%d\n", r.group, counter, amount)
	return err
}

// Status replaces the task status message.
func (r *Reporter) Status(msg string) error {
	_, err := fmt.Fprintf(r.w, "reporter:status:%s\n", msg)
	return err
}
