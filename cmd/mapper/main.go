package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/emptyOVO/logbucket/logging"
	"github.com/emptyOVO/logbucket/streaming"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const counterGroup = "logbucket"

func main() {
	logging.Init(log.WarnLevel)
	must(newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute())
}

// newRootCmd leaves SIGTERM and SIGINT at their default disposition: a task
// blocked on an idle stdin must die when the scheduler kills it.
func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "mapper",
		Short: "Streaming mapper: access-log lines in, <year-month>\\t1 records out",
		Long: `mapper reads access-log lines on stdin and writes one "<bucket>\t1" record
per line on stdout, where <bucket> is the YYYY-MM of the line's bracketed
timestamp or "Bad or Missing Timestamp". A line without brackets stops the
task with a non-zero exit status.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := streaming.RunMapper(context.Background(), stdin, stdout)
			if rerr := st.Report(streaming.NewReporter(stderr, counterGroup)); rerr != nil && err == nil {
				err = rerr
			}
			if err != nil {
				log.WithField("lines", st.Lines).Error("[Mapper] abort")
				return err
			}
			return nil
		},
	}
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
