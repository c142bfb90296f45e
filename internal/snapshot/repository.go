package snapshot

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-sqlite3"

	"codeberg.org/mutker/metalsnapd/internal/errors"
	"codeberg.org/mutker/metalsnapd/internal/logger"
)

const defaultDirPerm = 0o755

type Config struct {
	DBPath string
}

type sqliteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens (and if necessary creates) the snapshot database.
func NewStore(cfg Config) (Store, error) {
	if cfg.DBPath == "" {
		return nil, errors.New(ErrInvalidDBPath)
	}

	logger.Debug().Str("path", cfg.DBPath).Msg("Opening snapshot store")

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errors.Wrap(ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, errors.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) InsertSnapshot(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
	    INSERT INTO snapshots (
	        taken_at, taken_at_date, run_slot, base_currency,
	        usd_per_xau, usd_per_xag, usd_per_xpt, usd_per_xpd,
	        xau_per_usd, xag_per_usd, xpt_per_usd, xpd_per_usd,
	        source
	    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.TakenAt.UTC().Unix(),
		snap.Date(),
		snap.Slot,
		snap.BaseCurrency,
		snap.USDPerOunce.XAU.String(),
		snap.USDPerOunce.XAG.String(),
		snap.USDPerOunce.XPT.String(),
		snap.USDPerOunce.XPD.String(),
		snap.OuncePerUSD.XAU.String(),
		snap.OuncePerUSD.XAG.String(),
		snap.OuncePerUSD.XPT.String(),
		snap.OuncePerUSD.XPD.String(),
		snap.Source,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrap(ErrDuplicate, err)
		}
		return errors.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (s *sqliteStore) UpsertScheduleState(ctx context.Context, state ScheduleState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
	    INSERT INTO schedule_state (id, morning_time, evening_time, updated_at)
	    VALUES (1, ?, ?, ?)
	    ON CONFLICT(id) DO UPDATE SET
	        morning_time = excluded.morning_time,
	        evening_time = excluded.evening_time,
	        updated_at   = excluded.updated_at`,
		state.Morning,
		state.Evening,
		state.UpdatedAt.UTC().Unix(),
	)
	if err != nil {
		return errors.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (s *sqliteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return errors.Wrap(ErrStorageClose, err)
	}
	return nil
}

// isUniqueViolation translates the driver's constraint signal; callers
// only ever see the coded duplicate error.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
