// Package metals fetches current USD-denominated precious-metal rates
// from metals-api.com.
package metals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"codeberg.org/mutker/metalsnapd/internal/errors"
)

const (
	// SourceName is the label persisted with every snapshot.
	SourceName = "metals-api.com"

	defaultBaseURL = "https://metals-api.com/api"
	defaultTimeout = 20 * time.Second

	baseCurrency = "USD"

	// XAU..XPD are troy ounces per USD, USDXAU..USDXPD are USD per
	// troy ounce. Both directions are requested so snapshots carry
	// conventional prices and purchasing power side by side.
	symbols = "USD,XAU,XAG,XPT,XPD,USDXAU,USDXAG,USDXPT,USDXPD"
)

// Quote is the normalized result of one provider call.
type Quote struct {
	// Timestamp is the provider-reported capture time, zero when the
	// provider gave none.
	Timestamp time.Time
	Base      string
	Rates     map[string]decimal.Decimal
	Source    string
}

// Source fetches the current rates for the fixed symbol set.
type Source interface {
	Latest(ctx context.Context) (*Quote, error)
}

type Config struct {
	APIKey string

	// KeyFunc, when set, is consulted per request so a reloaded
	// configuration can rotate the key without a restart.
	KeyFunc func() string

	BaseURL string
	Timeout time.Duration
}

// Client is the metals-api.com implementation of Source.
type Client struct {
	http    *resty.Client
	apiKey  string
	keyFunc func() string
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
		apiKey:  cfg.APIKey,
		keyFunc: cfg.KeyFunc,
	}
}

type apiError struct {
	Code int    `json:"code"`
	Type string `json:"type"`
	Info string `json:"info"`
}

type latestResponse struct {
	Success   bool                       `json:"success"`
	Timestamp int64                      `json:"timestamp"`
	Date      string                     `json:"date"`
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	Error     *apiError                  `json:"error"`
}

func (c *Client) key() string {
	if c.keyFunc != nil {
		return c.keyFunc()
	}
	return c.apiKey
}

// Latest fetches the current rates. All failure shapes (transport,
// HTTP status, provider-reported error) come back as coded errors the
// pipeline treats uniformly as a failed cycle.
func (c *Client) Latest(ctx context.Context) (*Quote, error) {
	key := c.key()
	if strings.TrimSpace(key) == "" {
		return nil, errors.New(ErrMissingAPIKey)
	}

	result := latestResponse{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"access_key": key,
			"base":       baseCurrency,
			"symbols":    symbols,
		}).
		SetResult(&result).
		Get("/latest")
	if err != nil {
		return nil, errors.Wrap(ErrRequestFailed, err)
	}
	if resp.IsError() {
		return nil, errors.WithData(ErrBadStatus, resp.Status())
	}

	if !result.Success {
		if result.Error != nil {
			return nil, errors.WithData(ErrProviderError,
				fmt.Sprintf("%d %s: %s", result.Error.Code, result.Error.Type, result.Error.Info))
		}
		return nil, errors.New(ErrProviderError)
	}

	quote := &Quote{
		Base:   result.Base,
		Rates:  result.Rates,
		Source: SourceName,
	}
	if quote.Base == "" {
		quote.Base = baseCurrency
	}
	if result.Timestamp > 0 {
		quote.Timestamp = time.Unix(result.Timestamp, 0).UTC()
	}

	return quote, nil
}
