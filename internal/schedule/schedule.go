// Package schedule normalizes configured wall-clock capture times and
// computes the next run instant together with its slot label.
package schedule

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/metalsnapd/internal/errors"
)

const ErrInvalidTimeFormat = errors.ErrorCode("schedule_invalid_time_format")

// Slot labels. The first two entries of a table of at least two times
// are the morning and evening runs; everything else is addressed by its
// wall-clock time.
const (
	SlotMorning = "morning"
	SlotEvening = "evening"
)

// Strict zero-padded 24-hour clock. "9:00" is rejected on purpose: the
// slot label is part of the persisted uniqueness key, so lenient
// parsing would silently fork slot identities.
var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Compact returns the "HHMM" form used in t_HHMM slot labels.
func (t TimeOfDay) Compact() string {
	return fmt.Sprintf("%02d%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

// Table is a sorted, deduplicated, non-empty set of daily run times.
type Table []TimeOfDay

// Default returns the fallback schedule used when no times are
// configured.
func Default() Table {
	return Table{{Hour: 9}, {Hour: 18}}
}

// Parse builds a Table from raw "HH:MM" strings. Blank entries are
// dropped, duplicates collapsed, the result sorted ascending. An empty
// result silently becomes the default table; an unparsable entry fails
// the whole parse.
func Parse(raw []string) (Table, error) {
	seen := make(map[TimeOfDay]struct{}, len(raw))
	table := make(Table, 0, len(raw))

	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		m := timePattern.FindStringSubmatch(entry)
		if m == nil {
			return nil, errors.WithData(ErrInvalidTimeFormat, entry)
		}

		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		t := TimeOfDay{Hour: hour, Minute: minute}

		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		table = append(table, t)
	}

	if len(table) == 0 {
		return Default(), nil
	}

	sort.Slice(table, func(i, j int) bool {
		return table[i].minutes() < table[j].minutes()
	})

	return table, nil
}

// Strings returns the table formatted as "HH:MM" entries.
func (tb Table) Strings() []string {
	out := make([]string, len(tb))
	for i, t := range tb {
		out[i] = t.String()
	}
	return out
}

// NextRun returns the next fire instant at or after now, with the slot
// label for that run. A today-occurrence equal to now counts as due
// now; when all of today's occurrences have passed, the earliest table
// entry is scheduled for tomorrow.
func NextRun(now time.Time, table Table) (time.Time, string) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for i, t := range table {
		occurrence := today.Add(time.Duration(t.minutes()) * time.Minute)
		if !occurrence.Before(now) {
			return occurrence, table.Slot(i)
		}
	}

	tomorrow := today.AddDate(0, 0, 1)
	return tomorrow.Add(time.Duration(table[0].minutes()) * time.Minute), table.Slot(0)
}

// Slot returns the label for the table entry at idx. Labels are purely
// positional: with two or more entries the first two are morning and
// evening, the rest t_HHMM. A single-entry table has no meaningful
// morning/evening split, so everything is t_HHMM.
func (tb Table) Slot(idx int) string {
	if len(tb) >= 2 {
		switch idx {
		case 0:
			return SlotMorning
		case 1:
			return SlotEvening
		}
	}
	return "t_" + tb[idx].Compact()
}
