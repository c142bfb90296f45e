// Package pipeline drives the snapshot cycle: wait until the next
// scheduled time, fetch, map, persist, repeat until cancelled.
package pipeline

import (
	"context"
	"strings"

	"codeberg.org/mutker/metalsnapd/internal/config"
	"codeberg.org/mutker/metalsnapd/internal/errors"
	"codeberg.org/mutker/metalsnapd/internal/logger"
	"codeberg.org/mutker/metalsnapd/internal/metals"
	"codeberg.org/mutker/metalsnapd/internal/schedule"
	"codeberg.org/mutker/metalsnapd/internal/snapshot"
)

// ConfigSource yields the current configuration snapshot. It is
// consulted at the top of every cycle so schedule edits apply without a
// restart.
type ConfigSource interface {
	Current() config.Config
}

type Pipeline struct {
	cfg    ConfigSource
	source metals.Source
	store  snapshot.Store
	clock  Clock
}

func New(cfg ConfigSource, source metals.Source, store snapshot.Store, clock Clock) *Pipeline {
	if clock == nil {
		clock = SystemClock()
	}
	return &Pipeline{
		cfg:    cfg,
		source: source,
		store:  store,
		clock:  clock,
	}
}

// Errors of these codes abandon the cycle and wait for the next slot.
// Anything else is unanticipated and must surface, not loop silently.
var recoverableCodes = map[errors.ErrorCode]struct{}{
	errors.ErrMissingConfig:     {},
	metals.ErrMissingAPIKey:     {},
	metals.ErrRequestFailed:     {},
	metals.ErrBadStatus:         {},
	metals.ErrProviderError:     {},
	snapshot.ErrIncompleteQuote: {},
	snapshot.ErrStorageAccess:   {},
}

func recoverable(err error) bool {
	_, ok := recoverableCodes[errors.CodeOf(err)]
	return ok
}

// Run executes cycles until ctx is cancelled (clean stop, nil) or an
// unanticipated error escapes (returned for the caller to treat as
// fatal). Cycles are strictly sequential: the next schedule is computed
// only after the previous cycle fully completes.
func (p *Pipeline) Run(ctx context.Context) error {
	logger.Info().Msg("Snapshot pipeline started")

	var lastTable schedule.Table

	for {
		cfg := p.cfg.Current()

		table, err := schedule.Parse(cfg.Times)
		if err != nil {
			// Startup config was validated, so this is a bad live
			// edit: keep the previous table rather than losing the
			// schedule.
			if lastTable == nil {
				return err
			}
			logger.ErrorWithCode(err).Msg("Invalid schedule times in config; keeping previous table")
			table = lastTable
		}
		lastTable = table

		now := p.clock.Now()
		fireAt, slot := schedule.NextRun(now, table)

		logger.Info().
			Time("next_run", fireAt).
			Str("slot", slot).
			Strs("times", table.Strings()).
			Dur("wait", fireAt.Sub(now)).
			Msg("Schedule computed")

		select {
		case <-ctx.Done():
			logger.Info().Msg("Snapshot pipeline stopped")
			return nil
		case <-p.clock.After(fireAt.Sub(now)):
		}

		if err := p.runCycle(ctx, cfg, slot, table); err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("Snapshot pipeline stopped")
				return nil
			}
			if !recoverable(err) {
				return err
			}
			logger.ErrorWithCode(err).
				Str("slot", slot).
				Msg("Cycle failed; waiting for next scheduled run")
		}
	}
}

func (p *Pipeline) runCycle(ctx context.Context, cfg config.Config, slot string, table schedule.Table) error {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return errors.WithData(errors.ErrMissingConfig, "api_key")
	}

	quote, err := p.source.Latest(ctx)
	if err != nil {
		return err
	}

	snap, err := snapshot.FromQuote(quote, slot, p.clock.Now())
	if err != nil {
		return err
	}

	if err := p.store.InsertSnapshot(ctx, snap); err != nil {
		if snapshot.IsDuplicate(err) {
			logger.Warn().
				Str("slot", slot).
				Str("date", snap.Date()).
				Msg("Snapshot already exists for this slot today; skipping")
			return nil
		}
		return err
	}

	if err := p.store.UpsertScheduleState(ctx, stateFor(slot, table, snap)); err != nil {
		return err
	}

	logger.Info().
		Str("slot", slot).
		Str("date", snap.Date()).
		Str("source", snap.Source).
		Msg("Snapshot stored")

	return nil
}

// stateFor records which configured time served as the morning or
// evening run for this cycle.
func stateFor(slot string, table schedule.Table, snap *snapshot.Snapshot) snapshot.ScheduleState {
	state := snapshot.ScheduleState{UpdatedAt: snap.TakenAt}
	if len(table) >= 1 && slot == table.Slot(0) {
		state.Morning = table[0].String()
	}
	if len(table) >= 2 && slot == table.Slot(1) {
		state.Evening = table[1].String()
	}
	return state
}
