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

func main() {
	logging.Init(log.WarnLevel)

	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Signals keep their default disposition, as in the mapper.
func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:           "reducer",
		Short:         "Streaming reducer: sums key-sorted <key>\\t<count> records",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := streaming.RunReducer(context.Background(), stdin, stdout)
			log.WithFields(log.Fields{
				"records": st.Records,
				"keys":    st.Keys,
			}).Debug("[Reducer] done")
			return err
		},
	}
}
