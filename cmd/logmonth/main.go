package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/emptyOVO/logbucket/batch"
	"github.com/emptyOVO/logbucket/logging"
	"github.com/emptyOVO/logbucket/mrapps"
	"github.com/emptyOVO/logbucket/worker"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	must(newRootCmd().Execute())
}

func newRootCmd() *cobra.Command {
	var logLevel string
	rootCmd := &cobra.Command{
		Use:   "logmonth",
		Short: "Count access-log lines per month",
		Long: `logmonth runs the year-month access-log count on one machine and loads
the reduced counts into MySQL. The mapper and reducer binaries run the same
stages under Hadoop streaming.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(logging.ParseLevel(logLevel))
			return loadDotEnv(".env")
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "trace|debug|info|warn|error")
	rootCmd.AddCommand(newLocalCmd(), newLoadCmd())
	return rootCmd
}

func newLocalCmd() *cobra.Command {
	var (
		inputs    []string
		nReducer  int
		nWorker   int
		inRAM     bool
		outputDir string
	)
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Run map, shuffle and reduce over local files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandInputs(inputs)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no input files matched %v", inputs)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			outputs, err := worker.Run(ctx, worker.Config{
				Files:     files,
				Reducers:  nReducer,
				Workers:   nWorker,
				InRAM:     inRAM,
				OutputDir: outputDir,
			}, mrapps.LogMonthMap, mrapps.LogMonthReduce)
			if err != nil {
				return err
			}
			for _, o := range outputs {
				fmt.Fprintln(cmd.OutOrStdout(), o)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&inputs, "input", "i", []string{}, "Input files (globs allowed)")
	cmd.MarkFlagRequired("input")
	cmd.Flags().IntVarP(&nReducer, "reduce", "r", 1, "Number of reducers")
	cmd.Flags().IntVarP(&nWorker, "worker", "w", 4, "Number of concurrent map workers")
	cmd.Flags().BoolVarP(&inRAM, "inRAM", "m", true, "Whether write the intermediate file in RAM")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "output", "Directory for mr-out-*.txt")
	return cmd
}

func newLoadCmd() *cobra.Command {
	var (
		inputGlob string
		validate  bool
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load reduce outputs into MySQL",
		Long: `load upserts "<bucket>\t<count>" reduce outputs into a MySQL table.
Connection settings come from MYSQL_HOST, MYSQL_PORT, MYSQL_USER,
MYSQL_PASSWORD and MYSQL_DB; the table from TARGET_TABLE, TARGET_KEY_COL and
TARGET_VALUE_COL. A .env file in the working directory is read first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := batch.Open(ctx, dbConfigFromEnv())
			if err != nil {
				return err
			}
			defer db.Close()

			cfg := sinkConfigFromEnv(inputGlob)
			if err := batch.ImportCounts(ctx, db, cfg); err != nil {
				return err
			}
			log.WithField("table", cfg.TargetTable).Info("load done")
			if !validate {
				return nil
			}
			if err := batch.ValidateCounts(ctx, db, cfg); err != nil {
				return err
			}
			log.Info("validate pass")
			return nil
		},
	}
	cmd.Flags().StringVar(&inputGlob, "input-glob", filepath.Join("output", "mr-out-*.txt"), "Reduce output files to load")
	cmd.Flags().BoolVar(&validate, "validate", false, "Compare the table with the reduce outputs after loading")
	return cmd
}

func expandInputs(patterns []string) ([]string, error) {
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
