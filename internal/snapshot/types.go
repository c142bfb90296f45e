package snapshot

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date half of the (date, slot) uniqueness
// key.
const DateLayout = "2006-01-02"

// MetalPrices holds one figure per tracked metal.
type MetalPrices struct {
	XAU decimal.Decimal
	XAG decimal.Decimal
	XPT decimal.Decimal
	XPD decimal.Decimal
}

// Snapshot is one immutable capture of the four metal prices. At most
// one may exist per (calendar date, slot); the store enforces that, not
// the caller.
type Snapshot struct {
	TakenAt      time.Time // UTC
	Slot         string
	BaseCurrency string

	// USDPerOunce is the conventional price: USD for one troy ounce.
	USDPerOunce MetalPrices
	// OuncePerUSD is purchasing power: troy ounces for one USD.
	OuncePerUSD MetalPrices

	Source string
}

// Date returns the calendar date of the capture instant.
func (s *Snapshot) Date() string {
	return s.TakenAt.UTC().Format(DateLayout)
}

// ScheduleState is the single metadata row recording which configured
// times were last used as the morning and evening runs. Only the
// pipeline writes it.
type ScheduleState struct {
	Morning   string
	Evening   string
	UpdatedAt time.Time
}

// Store is the persistence boundary. InsertSnapshot surfaces a
// uniqueness conflict as a coded duplicate error (see IsDuplicate)
// rather than leaking driver error codes to callers.
type Store interface {
	InsertSnapshot(ctx context.Context, snap *Snapshot) error
	UpsertScheduleState(ctx context.Context, state ScheduleState) error
	Close() error
}
