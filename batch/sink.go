package batch

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/emptyOVO/logbucket/streaming"
	log "github.com/sirupsen/logrus"
)

// Count is one reduced bucket.
type Count struct {
	Key   string
	Value int64
}

// ImportCounts loads the files matched by cfg.InputGlob into the target table
// with a staged batch upsert.
func ImportCounts(ctx context.Context, db *sql.DB, cfg SinkConfig) error {
	cfg.WithDefaults()
	ids, err := cfg.idents()
	if err != nil {
		return err
	}
	files, err := matchInputs(cfg.InputGlob)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"table": cfg.TargetTable,
		"files": len(files),
	}).Info("[Sink] Import reduce outputs")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  %s VARCHAR(255) NOT NULL,
  %s BIGINT NOT NULL,
  PRIMARY KEY (%s)
)`, ids.table, ids.key, ids.val, ids.key)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, ids.stage)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE %s (
  %s VARCHAR(255) NOT NULL,
  %s BIGINT NOT NULL,
  KEY idx_key (%s)
)`, ids.stage, ids.key, ids.val, ids.key)); err != nil {
		return err
	}

	if err := loadFilesIntoStage(ctx, tx, files, ids, cfg.BatchSize); err != nil {
		return err
	}

	if cfg.Replace {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`TRUNCATE TABLE %s`, ids.table)); err != nil {
			return err
		}
	}

	upsertSQL := fmt.Sprintf(`
INSERT INTO %s (%s, %s)
SELECT %s, SUM(%s) AS total
FROM %s
GROUP BY %s
ON DUPLICATE KEY UPDATE %s=VALUES(%s)
`, ids.table, ids.key, ids.val, ids.key, ids.val, ids.stage, ids.key, ids.val, ids.val)
	if _, err := tx.ExecContext(ctx, upsertSQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE %s`, ids.stage)); err != nil {
		return err
	}

	return tx.Commit()
}

func matchInputs(glob string) ([]string, error) {
	files, err := filepath.Glob(glob)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no reduce output files matched: %s", glob)
	}
	return files, nil
}

func loadFilesIntoStage(ctx context.Context, tx *sql.Tx, files []string, ids sinkIdents, batchSize int) error {
	batch := make([]Count, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		args := make([]interface{}, 0, len(batch)*2)
		valueSQL := make([]string, 0, len(batch))
		for _, row := range batch {
			valueSQL = append(valueSQL, "(?, ?)")
			args = append(args, row.Key, row.Value)
		}
		sqlStr := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES %s", ids.stage, ids.key, ids.val, strings.Join(valueSQL, ","))
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for _, file := range files {
		err := readCountFile(file, func(c Count) error {
			batch = append(batch, c)
			if len(batch) >= batchSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return flush()
}

// readCountFile calls fn for every "key\tcount" record of file. Records whose
// count is not an integer are skipped.
func readCountFile(file string, fn func(Count) error) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	rd := streaming.NewReader(f)
	for rd.Next() {
		kv := rd.Record()
		v, err := strconv.ParseInt(strings.TrimSpace(kv.Value), 10, 64)
		if err != nil {
			log.WithFields(log.Fields{"file": file, "line": rd.Line()}).Warn("[Sink] skip malformed record")
			continue
		}
		if err := fn(Count{Key: kv.Key, Value: v}); err != nil {
			return err
		}
	}
	return rd.Err()
}

// ReadCounts sums the records of every file matched by glob, ordered by key.
func ReadCounts(glob string) ([]Count, error) {
	files, err := matchInputs(glob)
	if err != nil {
		return nil, err
	}
	totals := map[string]int64{}
	for _, file := range files {
		if err := readCountFile(file, func(c Count) error {
			totals[c.Key] += c.Value
			return nil
		}); err != nil {
			return nil, err
		}
	}
	out := make([]Count, 0, len(totals))
	for k, v := range totals {
		out = append(out, Count{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
