package metals

import "codeberg.org/mutker/metalsnapd/internal/errors"

const (
	ErrMissingAPIKey = errors.ErrorCode("metals_missing_api_key")
	ErrRequestFailed = errors.ErrorCode("metals_request_failed")
	ErrBadStatus     = errors.ErrorCode("metals_bad_status")
	ErrProviderError = errors.ErrorCode("metals_provider_error")
)
