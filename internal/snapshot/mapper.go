package snapshot

import (
	"time"

	"github.com/shopspring/decimal"

	"codeberg.org/mutker/metalsnapd/internal/errors"
	"codeberg.org/mutker/metalsnapd/internal/metals"
)

// FromQuote normalizes a raw quote into a Snapshot for the given slot.
// All eight rates must be present; a partial snapshot is never built.
// The capture instant is the provider's timestamp when it reported one,
// otherwise fallback.
func FromQuote(quote *metals.Quote, slot string, fallback time.Time) (*Snapshot, error) {
	usdPerOunce, err := pricesFor(quote, "USDXAU", "USDXAG", "USDXPT", "USDXPD")
	if err != nil {
		return nil, err
	}
	ouncePerUSD, err := pricesFor(quote, "XAU", "XAG", "XPT", "XPD")
	if err != nil {
		return nil, err
	}

	takenAt := quote.Timestamp
	if takenAt.IsZero() {
		takenAt = fallback
	}

	base := quote.Base
	if base == "" {
		base = "USD"
	}

	return &Snapshot{
		TakenAt:      takenAt.UTC(),
		Slot:         slot,
		BaseCurrency: base,
		USDPerOunce:  usdPerOunce,
		OuncePerUSD:  ouncePerUSD,
		Source:       quote.Source,
	}, nil
}

func pricesFor(quote *metals.Quote, xau, xag, xpt, xpd string) (MetalPrices, error) {
	prices := MetalPrices{}
	for _, bind := range []struct {
		symbol string
		dst    *decimal.Decimal
	}{
		{xau, &prices.XAU},
		{xag, &prices.XAG},
		{xpt, &prices.XPT},
		{xpd, &prices.XPD},
	} {
		rate, ok := quote.Rates[bind.symbol]
		if !ok {
			return MetalPrices{}, errors.WithData(ErrIncompleteQuote, bind.symbol)
		}
		*bind.dst = rate
	}
	return prices, nil
}
