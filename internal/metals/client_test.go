package metals_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/metalsnapd/internal/errors"
	"codeberg.org/mutker/metalsnapd/internal/metals"
)

const successBody = `{
	"success": true,
	"timestamp": 1750000000,
	"date": "2025-06-15",
	"base": "USD",
	"rates": {
		"XAU": 0.000302890123456789,
		"XAG": 0.027456789012345678,
		"XPT": 0.000812345678901234,
		"XPD": 0.000923456789012345,
		"USDXAU": 3301.55,
		"USDXAG": 36.42,
		"USDXPT": 1231.01,
		"USDXPD": 1082.88
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *metals.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return metals.NewClient(metals.Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	})
}

func TestLatestSuccess(t *testing.T) {
	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"access_key": q.Get("access_key"),
			"base":       q.Get("base"),
			"symbols":    q.Get("symbols"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(successBody))
	})

	quote, err := client.Latest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotQuery["access_key"])
	assert.Equal(t, "USD", gotQuery["base"])
	assert.Equal(t, "USD,XAU,XAG,XPT,XPD,USDXAU,USDXAG,USDXPT,USDXPD", gotQuery["symbols"])

	assert.Equal(t, "USD", quote.Base)
	assert.Equal(t, metals.SourceName, quote.Source)
	assert.Equal(t, time.Unix(1750000000, 0).UTC(), quote.Timestamp)

	// Decimal decoding must not lose precision.
	want := decimal.RequireFromString("0.000302890123456789")
	assert.True(t, quote.Rates["XAU"].Equal(want), "XAU = %s", quote.Rates["XAU"])
	assert.True(t, quote.Rates["USDXAU"].Equal(decimal.RequireFromString("3301.55")))
}

func TestLatestProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false, "error": {"code": 101, "type": "invalid_access_key", "info": "key invalid"}}`))
	})

	_, err := client.Latest(context.Background())
	require.Error(t, err)
	assert.Equal(t, metals.ErrProviderError, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "invalid_access_key")
}

func TestLatestHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Latest(context.Background())
	require.Error(t, err)
	assert.Equal(t, metals.ErrBadStatus, errors.CodeOf(err))
}

func TestLatestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // force a connection failure

	client := metals.NewClient(metals.Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: time.Second,
	})

	_, err := client.Latest(context.Background())
	require.Error(t, err)
	assert.Equal(t, metals.ErrRequestFailed, errors.CodeOf(err))
}

func TestLatestMissingAPIKey(t *testing.T) {
	blank := metals.NewClient(metals.Config{APIKey: "   "})

	_, err := blank.Latest(context.Background())
	require.Error(t, err)
	assert.Equal(t, metals.ErrMissingAPIKey, errors.CodeOf(err))
}

func TestKeyFuncOverridesStaticKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("access_key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(successBody))
	}))
	defer srv.Close()

	client := metals.NewClient(metals.Config{
		APIKey:  "stale",
		KeyFunc: func() string { return "rotated" },
		BaseURL: srv.URL,
	})

	_, err := client.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rotated", gotKey)
}
