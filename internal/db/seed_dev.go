package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/qrscan/internal/qrscan/types"
)

type SeedDevOptions struct {
	// HistoryKey is the kv key holding the scan history blob.
	HistoryKey string
	Now        time.Time
}

// SeedDev writes a few demo scans so a fresh dev database has something to
// list.  It never touches an existing history.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	if opt.HistoryKey == "" {
		return fmt.Errorf("seed: history key is required")
	}
	now := opt.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC().Truncate(time.Millisecond)

	demo := []struct {
		data string
		cat  types.Category
	}{
		{"https://example.com/menu", types.CategoryURL},
		{"hello@example.com", types.CategoryEmail},
		{"+1-555-123-4567", types.CategoryPhone},
		{"WIFI:T:WPA;S:guest;P:welcome;;", types.CategoryWiFi},
	}

	recs := make([]types.ScanRecord, 0, len(demo))
	for i, d := range demo {
		ts := now.Add(-time.Duration(i) * time.Minute)
		rec, err := types.NewScanRecord(ts.UnixMilli(), d.data, ts, d.cat)
		if err != nil {
			return fmt.Errorf("seed record %d: %w", i, err)
		}
		recs = append(recs, rec)
	}

	blob, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("seed marshal: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO kv(key, value, updated_at_ms)
VALUES (?, ?, ?);`, opt.HistoryKey, blob, now.UnixMilli()); err != nil {
		return fmt.Errorf("seed history: %w", err)
	}

	return nil
}
