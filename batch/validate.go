package batch

import (
	"context"
	"database/sql"
	"fmt"
)

// ValidateCounts checks that the target table holds the totals of the reduce
// outputs. With cfg.Replace the table must not hold any other key.
func ValidateCounts(ctx context.Context, db *sql.DB, cfg SinkConfig) error {
	cfg.WithDefaults()
	ids, err := cfg.idents()
	if err != nil {
		return err
	}
	expected, err := ReadCounts(cfg.InputGlob)
	if err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT %s, %s FROM %s`, ids.key, ids.val, ids.table))
	if err != nil {
		return err
	}
	defer rows.Close()

	actual := map[string]int64{}
	for rows.Next() {
		var k string
		var v int64
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		actual[k] = v
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return compareCounts(expected, actual, cfg.Replace)
}

func compareCounts(expected []Count, actual map[string]int64, exact bool) error {
	for _, c := range expected {
		v, ok := actual[c.Key]
		if !ok {
			return fmt.Errorf("validation mismatch: key %q missing from table", c.Key)
		}
		if v != c.Value {
			return fmt.Errorf("validation mismatch for key %q: expected %d, actual %d", c.Key, c.Value, v)
		}
	}
	if exact && len(actual) != len(expected) {
		return fmt.Errorf("row count mismatch in validation: expected %d, actual %d", len(expected), len(actual))
	}
	return nil
}
