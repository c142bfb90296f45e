package snapshot

import (
	"database/sql"

	"codeberg.org/mutker/metalsnapd/internal/errors"
)

// Prices are stored as decimal TEXT so purchasing-power fractions keep
// their full precision; SQLite REAL would round them to float64.
const createTablesSQL = `
	CREATE TABLE IF NOT EXISTS snapshots (
	    id             INTEGER PRIMARY KEY AUTOINCREMENT,
	    taken_at       INTEGER NOT NULL,
	    taken_at_date  TEXT NOT NULL,
	    run_slot       TEXT NOT NULL,
	    base_currency  TEXT NOT NULL,
	    usd_per_xau    TEXT NOT NULL,
	    usd_per_xag    TEXT NOT NULL,
	    usd_per_xpt    TEXT NOT NULL,
	    usd_per_xpd    TEXT NOT NULL,
	    xau_per_usd    TEXT NOT NULL,
	    xag_per_usd    TEXT NOT NULL,
	    xpt_per_usd    TEXT NOT NULL,
	    xpd_per_usd    TEXT NOT NULL,
	    source         TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS ux_snapshots_date_slot
	    ON snapshots (taken_at_date, run_slot);
	CREATE TABLE IF NOT EXISTS schedule_state (
	    id            INTEGER PRIMARY KEY CHECK (id = 1),
	    morning_time  TEXT NOT NULL,
	    evening_time  TEXT NOT NULL,
	    updated_at    INTEGER NOT NULL
	);`

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(createTablesSQL); err != nil {
		return errors.Wrap(ErrStorageInit, err)
	}
	return nil
}
