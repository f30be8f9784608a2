package main

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/emptyOVO/logbucket/batch"
	"github.com/joho/godotenv"
)

// loadDotEnv reads .env from the working directory when it exists. Variables
// already set in the environment win.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func getenvDefault(name, d string) string {
	v := os.Getenv(name)
	if v == "" {
		return d
	}
	return v
}

func getenvInt(name string, d int) int {
	v := os.Getenv(name)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func getenvBool(name string, d bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func dbConfigFromEnv() batch.DBConfig {
	return batch.DBConfig{
		Host:     getenvDefault("MYSQL_HOST", "127.0.0.1"),
		Port:     getenvInt("MYSQL_PORT", 3306),
		User:     getenvDefault("MYSQL_USER", "root"),
		Password: os.Getenv("MYSQL_PASSWORD"),
		Database: os.Getenv("MYSQL_DB"),
	}
}

func sinkConfigFromEnv(inputGlob string) batch.SinkConfig {
	return batch.SinkConfig{
		TargetTable: getenvDefault("TARGET_TABLE", "log_month_counts"),
		KeyColumn:   getenvDefault("TARGET_KEY_COL", "bucket"),
		ValColumn:   getenvDefault("TARGET_VALUE_COL", "hits"),
		InputGlob:   inputGlob,
		Replace:     getenvBool("SINK_REPLACE", true),
		BatchSize:   getenvInt("SINK_BATCH_SIZE", 2000),
	}
}
