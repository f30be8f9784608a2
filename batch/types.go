// Package batch loads reduced bucket counts into MySQL.
package batch

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DBConfig defines MySQL connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Params   map[string]string
}

func (c DBConfig) dsn() string {
	host := c.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}
	params := map[string]string{
		"parseTime": "true",
		"charset":   "utf8mb4",
	}
	for k, v := range c.Params {
		params[k] = v
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, params[k]))
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.User,
		c.Password,
		host,
		port,
		c.Database,
		strings.Join(parts, "&"),
	)
}

// Open opens and pings a MySQL connection.
func Open(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	if cfg.User == "" {
		return nil, fmt.Errorf("db user is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("db database is required")
	}
	db, err := sql.Open("mysql", cfg.dsn())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// SinkConfig configures the import of reduce outputs into MySQL.
type SinkConfig struct {
	TargetTable string `json:"targettable"`
	KeyColumn   string `json:"keycolumn"`
	ValColumn   string `json:"valcolumn"`
	InputGlob   string `json:"inputglob"`
	Replace     bool   `json:"replace"`
	BatchSize   int    `json:"batchsize"`
}

func (c *SinkConfig) WithDefaults() {
	if c.TargetTable == "" {
		c.TargetTable = "log_month_counts"
	}
	if c.KeyColumn == "" {
		c.KeyColumn = "bucket"
	}
	if c.ValColumn == "" {
		c.ValColumn = "hits"
	}
	if c.InputGlob == "" {
		c.InputGlob = "output/mr-out-*.txt"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 2000
	}
}

type sinkIdents struct {
	table, stage, key, val string
}

func (c SinkConfig) idents() (sinkIdents, error) {
	var ids sinkIdents
	var err error
	if ids.table, err = quoteIdentifier(c.TargetTable); err != nil {
		return ids, err
	}
	if ids.stage, err = quoteIdentifier(c.TargetTable + "_staging_tmp"); err != nil {
		return ids, err
	}
	if ids.key, err = quoteIdentifier(c.KeyColumn); err != nil {
		return ids, err
	}
	if ids.val, err = quoteIdentifier(c.ValColumn); err != nil {
		return ids, err
	}
	return ids, nil
}

func quoteIdentifier(s string) (string, error) {
	if !identifierRe.MatchString(s) {
		return "", fmt.Errorf("invalid identifier: %s", s)
	}
	return "`" + s + "`", nil
}
